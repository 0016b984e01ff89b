package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	bookingserrors "defensebook/internal/bookings/errors"
	"defensebook/internal/bookings/events"
	"defensebook/internal/bookings/lifecycle"
	"defensebook/internal/bookings/repository"
	"defensebook/internal/bookings/slots"
	"defensebook/internal/bookings/validator"
	"defensebook/internal/directory"
	"defensebook/pkg/auth"
	apperrors "defensebook/pkg/errors"
	"defensebook/pkg/logger"
	"defensebook/pkg/model"
	"defensebook/pkg/sanitizer"
)

type BookingService interface {
	ListSlots(ctx context.Context, date time.Time) (*slots.DaySchedule, error)
	Calendar(ctx context.Context) ([]slots.DayStatus, error)
	List(ctx context.Context, actor auth.CurrentActor) ([]*model.BookingView, error)
	GetByID(ctx context.Context, id string) (*model.BookingView, error)
	Create(ctx context.Context, actor auth.CurrentActor, req *model.BookingCreate) (*model.Booking, error)
	UpdateStatus(ctx context.Context, actor auth.CurrentActor, id string, req *model.BookingStatusUpdate) (*model.Booking, error)
	Delete(ctx context.Context, actor auth.CurrentActor, id string) error
}

type bookingService struct {
	repo       repository.BookingRepository
	validator  *validator.BookingValidator
	calculator *slots.Calculator
	lifecycle  *lifecycle.Lifecycle
	publisher  events.Publisher
	directory  directory.Directory
	log        *logger.Logger
	now        func() time.Time

	publishTimeout time.Duration
}

const DefaultPublishTimeout = 2 * time.Second

type Option func(*bookingService)

// WithClock replaces the wall clock used for horizon checks.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *bookingService) { s.publisher = p }
}

// WithPublishTimeout bounds how long a single event publish may take.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *bookingService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithDirectory enables display-name enrichment on reads.
func WithDirectory(d directory.Directory) Option {
	return func(s *bookingService) { s.directory = d }
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	calculator *slots.Calculator,
	lifecycle *lifecycle.Lifecycle,
	log *logger.Logger,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repo:       repo,
		validator:  validator,
		calculator: calculator,
		lifecycle:  lifecycle,
		publisher:  events.NopPublisher{},
		log:        log,
		now:        time.Now,

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) ListSlots(ctx context.Context, date time.Time) (*slots.DaySchedule, error) {
	day := s.calculator.DayStart(date)

	active, err := s.repo.ListActiveBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		s.log.Error("Failed to list bookings for day", "date", day.Format(time.DateOnly), "error", err)
		return nil, s.translate(err, "")
	}

	schedule := s.calculator.Day(day, s.now(), active)
	return &schedule, nil
}

func (s *bookingService) Calendar(ctx context.Context) ([]slots.DayStatus, error) {
	now := s.now()
	from := s.calculator.DayStart(now)
	to := s.calculator.DayStart(now.Add(s.calculator.Horizon)).AddDate(0, 0, 1)

	active, err := s.repo.ListActiveBetween(ctx, from, to)
	if err != nil {
		s.log.Error("Failed to list bookings for calendar", "error", err)
		return nil, s.translate(err, "")
	}

	return s.calculator.Calendar(now, active), nil
}

// List returns every active booking. The actor's own booking comes first,
// the rest follow by start time.
func (s *bookingService) List(ctx context.Context, actor auth.CurrentActor) ([]*model.BookingView, error) {
	bookings, err := s.repo.ListActive(ctx)
	if err != nil {
		s.log.Error("Failed to list bookings", "error", err)
		return nil, s.translate(err, "")
	}

	own := ""
	if actor != nil {
		own = actor.ID()
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		iOwn, jOwn := bookings[i].RequesterID == own, bookings[j].RequesterID == own
		if iOwn != jOwn {
			return iOwn
		}
		return bookings[i].StartDate.Before(bookings[j].StartDate)
	})

	return s.views(ctx, bookings), nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.BookingView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}

	return s.views(ctx, []*model.Booking{booking})[0], nil
}

// Create validates and inserts as one transaction. A store failure reruns
// the whole unit once with fresh reads; rule rejections are final.
func (s *bookingService) Create(ctx context.Context, actor auth.CurrentActor, req *model.BookingCreate) (*model.Booking, error) {
	if actor == nil || actor.ID() == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	if err := s.validator.ValidateRequest(req, s.now()); err != nil {
		s.log.Warn("Booking request validation failed", "requester_id", actor.ID(), "error", err)
		if errors.Is(err, bookingserrors.ErrOutOfHorizon) {
			return nil, s.translate(err, "")
		}
		return nil, validationError("Invalid booking request", err)
	}

	booking := &model.Booking{
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		Description: sanitizer.NormalizeDescription(req.Description),
		RequesterID: actor.ID(),
	}

	err := s.createOnce(ctx, booking, false)
	if errors.Is(err, bookingserrors.ErrStore) {
		s.log.Warn("Booking store failed, retrying once", "requester_id", actor.ID(), "error", err)
		err = s.createOnce(ctx, booking, true)
	}
	if err != nil {
		s.logRejection("Failed to create booking", err,
			"requester_id", actor.ID(),
			"start_date", booking.StartDate,
		)
		return nil, s.translate(err, "")
	}

	s.log.Info("Booking created successfully",
		"id", booking.ID,
		"requester_id", booking.RequesterID,
		"start_date", booking.StartDate,
	)
	s.publish(ctx, events.TypeCreated, actor.ID(), booking)
	return booking, nil
}

// createOnce runs one read-validate-insert unit. On a retry, an active
// booking of the same requester on the same slot means the first attempt
// committed before its error; that booking is adopted as the result.
func (s *bookingService) createOnce(ctx context.Context, booking *model.Booking, retry bool) error {
	slotKey := model.SlotKeyFor(booking.StartDate, s.calculator.Location)

	return s.repo.RunInTransaction(ctx, func(tx context.Context) error {
		requesterActive, err := s.repo.FindActiveByRequester(tx, booking.RequesterID)
		if err != nil {
			return err
		}
		if retry {
			for _, b := range requesterActive {
				if b.IsActive() && model.SlotKeyFor(b.StartDate, s.calculator.Location) == slotKey {
					*booking = *b
					return nil
				}
			}
		}
		slotActive, err := s.repo.FindActiveBySlot(tx, slotKey)
		if err != nil {
			return err
		}
		if err := s.validator.Validate(booking, s.now(), requesterActive, slotActive); err != nil {
			return err
		}
		return s.repo.Create(tx, booking)
	})
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor auth.CurrentActor, id string, req *model.BookingStatusUpdate) (*model.Booking, error) {
	if actor == nil || actor.ID() == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}
	if err := s.validator.ValidateStatusUpdate(req); err != nil {
		return nil, validationError("Invalid status update", err)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}

	if err := s.lifecycle.Decide(actor, existing, req.Status); err != nil {
		s.logRejection("Booking status change refused", err,
			"id", id,
			"actor_id", actor.ID(),
			"from", existing.Status,
			"to", req.Status,
		)
		return nil, s.translate(err, id)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, req.Status, actor.ID())
	if err != nil {
		s.logRejection("Failed to update booking status", err, "id", id, "to", req.Status)
		return nil, s.translate(err, id)
	}

	s.log.Info("Booking status updated",
		"id", id,
		"status", updated.Status,
		"actor_id", actor.ID(),
	)
	s.publish(ctx, events.TypeForStatus(updated.Status), actor.ID(), updated)
	return updated, nil
}

// Delete withdraws a pending booking. Repeating it is a no-op.
func (s *bookingService) Delete(ctx context.Context, actor auth.CurrentActor, id string) error {
	if actor == nil || actor.ID() == "" {
		return apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translate(err, id)
	}

	done, err := s.lifecycle.Withdraw(actor, existing)
	if err != nil {
		s.logRejection("Booking withdrawal refused", err, "id", id, "actor_id", actor.ID())
		return s.translate(err, id)
	}
	if done {
		return nil
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		s.logRejection("Failed to withdraw booking", err, "id", id)
		return s.translate(err, id)
	}

	existing.IsDeleted = true
	s.log.Info("Booking withdrawn", "id", id, "actor_id", actor.ID())
	s.publish(ctx, events.TypeWithdrawn, actor.ID(), existing)
	return nil
}

// --- Helpers ---

func (s *bookingService) views(ctx context.Context, bookings []*model.Booking) []*model.BookingView {
	var names map[string]*model.DisplayName
	if s.directory != nil && len(bookings) > 0 {
		ids := make([]string, 0, len(bookings)*2)
		for _, b := range bookings {
			ids = append(ids, b.RequesterID)
			if b.ApproverID != "" {
				ids = append(ids, b.ApproverID)
			}
		}
		names = s.directory.Resolve(ctx, ids)
	}

	views := make([]*model.BookingView, 0, len(bookings))
	for _, b := range bookings {
		view := &model.BookingView{Booking: b}
		if names != nil {
			view.Requester = names[b.RequesterID]
			if b.ApproverID != "" {
				view.Approver = names[b.ApproverID]
			}
		}
		views = append(views, view)
	}
	return views
}

// publish runs on its own deadline, detached from the request's, since the
// write it reports has already committed.
func (s *bookingService) publish(ctx context.Context, eventType, actorID string, b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := events.NewBookingEvent(eventType, actorID, b, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish booking event", "id", b.ID, "type", eventType, "error", err)
	}
}

// logRejection logs rule outcomes at Warn and infrastructure failures at Error.
func (s *bookingService) logRejection(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.Is(err, bookingserrors.ErrStore) || !isRuleError(err) {
		s.log.Error(msg, args...)
		return
	}
	s.log.Warn(msg, args...)
}

func isRuleError(err error) bool {
	for _, target := range []error{
		bookingserrors.ErrOutOfHorizon,
		bookingserrors.ErrAlreadyBooked,
		bookingserrors.ErrSlotTaken,
		bookingserrors.ErrInvalidTransition,
		bookingserrors.ErrNotFound,
		bookingserrors.ErrInvalidID,
		lifecycle.ErrNotApprover,
		lifecycle.ErrNotRequester,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// translate maps domain and store errors onto the API taxonomy. Each rule
// keeps its own code; the sentinel stays reachable via errors.Is.
func (s *bookingService) translate(err error, id string) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, bookingserrors.ErrOutOfHorizon):
		return apperrors.Rejected(apperrors.CodeOutOfHorizon,
			fmt.Sprintf("Booking must start after now and within %s", s.calculator.Horizon),
			http.StatusUnprocessableEntity, err)
	case errors.Is(err, bookingserrors.ErrAlreadyBooked):
		return apperrors.Rejected(apperrors.CodeAlreadyBooked,
			"You already have an active booking", http.StatusConflict, err)
	case errors.Is(err, bookingserrors.ErrSlotTaken):
		return apperrors.Rejected(apperrors.CodeSlotTaken,
			"This slot is already reserved", http.StatusConflict, err)
	case errors.Is(err, bookingserrors.ErrInvalidTransition):
		return apperrors.Rejected(apperrors.CodeInvalidTransition,
			"Booking status cannot change from its current state", http.StatusConflict, err)
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, lifecycle.ErrNotApprover), errors.Is(err, lifecycle.ErrNotRequester):
		return apperrors.Forbidden(err.Error())
	case errors.Is(err, bookingserrors.ErrStore),
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.Store("Booking store unavailable, please retry", err)
	default:
		return apperrors.Internal("Unexpected booking failure", err)
	}
}

func validationError(message string, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation(message, fieldErrs.Fields())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
