package validator

import (
	"errors"
	"strings"
	"testing"
	"time"

	bookingserrors "defensebook/internal/bookings/errors"
	"defensebook/internal/bookings/slots"
	"defensebook/pkg/logger"
	"defensebook/pkg/model"
)

var zone = time.FixedZone("UTC+3", 3*3600)

func newTestValidator() *BookingValidator {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return NewBookingValidator(slots.NewCalculator(9, 17, zone, 30*24*time.Hour), log)
}

func slotAt(t time.Time) *model.Booking {
	return &model.Booking{
		ID:        "b-" + t.Format("0102T15"),
		StartDate: t,
		EndDate:   t.Add(time.Hour),
		Status:    model.StatusPending,
	}
}

func TestValidate_Order(t *testing.T) {
	v := newTestValidator()
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, zone)
	start := time.Date(2024, 4, 15, 10, 0, 0, 0, zone)
	existing := slotAt(start)

	tests := []struct {
		name            string
		start           time.Time
		requesterActive []*model.Booking
		slotActive      []*model.Booking
		want            error
	}{
		{
			name:  "valid",
			start: start,
		},
		{
			name:  "start in the past",
			start: now.Add(-time.Hour),
			want:  bookingserrors.ErrOutOfHorizon,
		},
		{
			name:  "start equals now",
			start: now,
			want:  bookingserrors.ErrOutOfHorizon,
		},
		{
			name:  "start beyond 30 days",
			start: now.Add(31 * 24 * time.Hour),
			want:  bookingserrors.ErrOutOfHorizon,
		},
		{
			name:  "start exactly at horizon",
			start: now.Add(30 * 24 * time.Hour),
			want:  bookingserrors.ErrOutOfHorizon,
		},
		{
			name:            "requester already holds a booking",
			start:           start,
			requesterActive: []*model.Booking{slotAt(time.Date(2024, 4, 20, 9, 0, 0, 0, zone))},
			want:            bookingserrors.ErrAlreadyBooked,
		},
		{
			name:       "slot taken",
			start:      start,
			slotActive: []*model.Booking{existing},
			want:       bookingserrors.ErrSlotTaken,
		},
		{
			name:            "horizon wins over the other rules",
			start:           now.Add(-time.Hour),
			requesterActive: []*model.Booking{existing},
			slotActive:      []*model.Booking{existing},
			want:            bookingserrors.ErrOutOfHorizon,
		},
		{
			name:            "already booked wins over slot taken",
			start:           start,
			requesterActive: []*model.Booking{existing},
			slotActive:      []*model.Booking{existing},
			want:            bookingserrors.ErrAlreadyBooked,
		},
		{
			name:       "other hour on the same day is free",
			start:      start.Add(time.Hour),
			slotActive: []*model.Booking{existing},
		},
		{
			name:       "rejected booking frees its slot",
			start:      start,
			slotActive: []*model.Booking{{ID: "r", StartDate: start, Status: model.StatusRejected}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := &model.Booking{StartDate: tt.start, EndDate: tt.start.Add(time.Hour)}
			err := v.Validate(candidate, now, tt.requesterActive, tt.slotActive)
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	v := newTestValidator()
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, zone)
	start := time.Date(2024, 4, 15, 10, 0, 0, 0, zone)
	end := start.Add(time.Hour)
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name      string
		req       model.BookingCreate
		wantField string
	}{
		{
			name: "valid",
			req:  model.BookingCreate{StartDate: ptr(start), EndDate: ptr(end), Description: "Thesis defense"},
		},
		{
			name:      "missing start",
			req:       model.BookingCreate{EndDate: ptr(end)},
			wantField: "start_date",
		},
		{
			name:      "end not one hour later",
			req:       model.BookingCreate{StartDate: ptr(start), EndDate: ptr(start.Add(2 * time.Hour))},
			wantField: "end_date",
		},
		{
			name:      "not on the hour",
			req:       model.BookingCreate{StartDate: ptr(start.Add(15 * time.Minute)), EndDate: ptr(end.Add(15 * time.Minute))},
			wantField: "start_date",
		},
		{
			name:      "after closing",
			req:       model.BookingCreate{StartDate: ptr(start.Add(7 * time.Hour)), EndDate: ptr(end.Add(7 * time.Hour))},
			wantField: "start_date",
		},
		{
			name:      "description too long",
			req:       model.BookingCreate{StartDate: ptr(start), EndDate: ptr(end), Description: strings.Repeat("x", 501)},
			wantField: "description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(&tt.req, now)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T (%v)", err, err)
			}
			if _, ok := verrs.Fields()[tt.wantField]; !ok {
				t.Errorf("expected error on field %s, got %v", tt.wantField, verrs.Fields())
			}
		})
	}
}

func TestValidateStatusUpdate(t *testing.T) {
	v := newTestValidator()

	for _, status := range []model.BookingStatus{model.StatusApproved, model.StatusRejected} {
		if err := v.ValidateStatusUpdate(&model.BookingStatusUpdate{Status: status}); err != nil {
			t.Errorf("expected %s to be accepted, got %v", status, err)
		}
	}
	for _, status := range []model.BookingStatus{"", model.StatusPending, "CANCELLED"} {
		if err := v.ValidateStatusUpdate(&model.BookingStatusUpdate{Status: status}); err == nil {
			t.Errorf("expected %q to be rejected", status)
		}
	}
}

func TestValidateRequest_HorizonBeforeAlignment(t *testing.T) {
	v := newTestValidator()
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name string
		now  time.Time
		off  time.Duration
	}{
		{name: "past start, clock off the hour", now: time.Date(2024, 4, 10, 12, 23, 0, 0, zone), off: -time.Hour},
		{name: "far start, clock off the hour", now: time.Date(2024, 4, 10, 12, 23, 0, 0, zone), off: 31 * 24 * time.Hour},
		{name: "past start, clock after closing", now: time.Date(2024, 4, 10, 20, 0, 0, 0, zone), off: -time.Hour},
		{name: "far start, clock after closing", now: time.Date(2024, 4, 10, 20, 0, 0, 0, zone), off: 31 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := tt.now.Add(tt.off)
			req := model.BookingCreate{StartDate: ptr(start), EndDate: ptr(start.Add(time.Hour))}
			if err := v.ValidateRequest(&req, tt.now); !errors.Is(err, bookingserrors.ErrOutOfHorizon) {
				t.Errorf("expected ErrOutOfHorizon, got %v", err)
			}
		})
	}
}
