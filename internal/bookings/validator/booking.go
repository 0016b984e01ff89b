package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "defensebook/internal/bookings/errors"
	"defensebook/internal/bookings/slots"
	"defensebook/pkg/logger"
	"defensebook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields flattens the errors into a details map for API responses.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

type BookingValidator struct {
	validate   *validator.Validate
	calculator *slots.Calculator
	logger     *logger.Logger
}

func NewBookingValidator(calculator *slots.Calculator, log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Booking validator initialized successfully",
		"open_hour", calculator.OpenHour,
		"close_hour", calculator.CloseHour,
		"horizon", calculator.Horizon,
	)

	return &BookingValidator{
		validate:   v,
		calculator: calculator,
		logger:     log,
	}
}

// ValidateRequest checks a create request. Missing fields fail first, then
// the horizon (ErrOutOfHorizon), then slot alignment: start on a
// business-hour slot and end exactly one slot later.
func (v *BookingValidator) ValidateRequest(req *model.BookingCreate, now time.Time) error {
	if err := v.structErrors(req); err != nil {
		return err
	}

	start, end := *req.StartDate, *req.EndDate
	if err := v.CheckHorizon(start, now); err != nil {
		return err
	}

	var errs ValidationErrors

	if !v.calculator.InBusinessHours(start) {
		errs = append(errs, ValidationError{
			Field: "start_date",
			Message: fmt.Sprintf("start_date must be on the hour between %02d:00 and %02d:00 (%s)",
				v.calculator.OpenHour, v.calculator.CloseHour, v.calculator.Location),
		})
	}
	if !end.Equal(start.Add(model.SlotDuration)) {
		errs = append(errs, ValidationError{
			Field:   "end_date",
			Message: "end_date must be exactly one hour after start_date",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) ValidateStatusUpdate(req *model.BookingStatusUpdate) error {
	return v.structErrors(req)
}

// CheckHorizon requires now < start < now+horizon.
func (v *BookingValidator) CheckHorizon(start, now time.Time) error {
	if !start.After(now) || !start.Before(now.Add(v.calculator.Horizon)) {
		return bookingserrors.ErrOutOfHorizon
	}
	return nil
}

// Validate applies the booking rules in fixed order; the first failure wins.
// requesterActive holds the requester's active bookings and slotActive the
// active bookings of the candidate's day.
func (v *BookingValidator) Validate(candidate *model.Booking, now time.Time, requesterActive, slotActive []*model.Booking) error {
	if err := v.CheckHorizon(candidate.StartDate, now); err != nil {
		return err
	}

	for _, b := range requesterActive {
		if b.IsActive() && b.ID != candidate.ID {
			return bookingserrors.ErrAlreadyBooked
		}
	}

	key := model.SlotKeyFor(candidate.StartDate, v.calculator.Location)
	for _, b := range slotActive {
		if b.IsActive() && b.ID != candidate.ID && model.SlotKeyFor(b.StartDate, v.calculator.Location) == key {
			return bookingserrors.ErrSlotTaken
		}
	}

	return nil
}

func (v *BookingValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
