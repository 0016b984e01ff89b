package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "defensebook/internal/bookings/errors"
	apperrors "defensebook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKey(index string) error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: defensebook.Bookings index: " + index + " dup key: { : true }",
		}},
	}
}

func TestTranslateWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "requester index", err: duplicateKey(IndexActiveRequester), want: bookingserrors.ErrAlreadyBooked},
		{name: "slot index", err: duplicateKey(IndexActiveSlot), want: bookingserrors.ErrSlotTaken},
		{name: "unknown index", err: duplicateKey("_id_"), want: bookingserrors.ErrStore},
		{name: "network failure", err: errors.New("connection reset"), want: bookingserrors.ErrStore},
		{name: "deadline", err: context.DeadlineExceeded, want: bookingserrors.ErrStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateWriteError("create booking", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("translateWriteError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := storeError("list bookings", cause)
	if !errors.Is(err, bookingserrors.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the driver error to stay in the chain")
	}
	if got := err.Error(); got != "booking store unavailable: failed to list bookings: boom" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestTranslateWriteErrorKeepsErrorLabels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		label string
	}{
		{
			name:  "write conflict",
			err:   mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}},
			label: "TransientTransactionError",
		},
		{
			name:  "unknown commit result",
			err:   mongo.CommandError{Code: 50, Name: "MaxTimeMSExpired", Labels: []string{"UnknownTransactionCommitResult"}},
			label: "UnknownTransactionCommitResult",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateWriteError("create booking", tt.err)
			if !errors.Is(got, bookingserrors.ErrStore) {
				t.Fatalf("expected ErrStore, got %v", got)
			}
			var le mongo.LabeledError
			if !errors.As(got, &le) {
				t.Fatalf("expected a labeled error in the chain of %v", got)
			}
			if !le.HasErrorLabel(tt.label) {
				t.Errorf("expected label %s to survive wrapping", tt.label)
			}
		})
	}
}

func TestIsDomainError(t *testing.T) {
	if !isDomainError(bookingserrors.ErrSlotTaken) {
		t.Error("slot taken should pass through transactions")
	}
	if !isDomainError(apperrors.NotFound("booking")) {
		t.Error("app errors should pass through transactions")
	}
	if isDomainError(errors.New("write conflict")) {
		t.Error("driver errors should be wrapped as store errors")
	}
}

func TestWithTimeout(t *testing.T) {
	t.Run("applies timeout", func(t *testing.T) {
		ctx, cancel := withTimeout(context.Background(), time.Second)
		defer cancel()

		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected deadline")
		}
		if time.Until(deadline) > time.Second {
			t.Errorf("deadline too far: %v", deadline)
		}
	})

	t.Run("keeps earlier parent deadline", func(t *testing.T) {
		parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer parentCancel()

		ctx, cancel := withTimeout(parent, time.Hour)
		defer cancel()

		want, _ := parent.Deadline()
		got, _ := ctx.Deadline()
		if !got.Equal(want) {
			t.Errorf("deadline = %v, want %v", got, want)
		}
	})
}
