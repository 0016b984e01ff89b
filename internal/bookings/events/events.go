// Package events announces booking lifecycle changes to downstream services.
package events

import (
	"context"
	"fmt"
	"time"

	"defensebook/pkg/kafka"
	"defensebook/pkg/middleware"
	"defensebook/pkg/model"
)

const (
	TypeCreated   = "booking.created"
	TypeApproved  = "booking.approved"
	TypeRejected  = "booking.rejected"
	TypeWithdrawn = "booking.withdrawn"

	SchemaVersion = "1"
)

// BookingEvent is the payload of every booking message.
type BookingEvent struct {
	Type        string              `json:"type"`
	BookingID   string              `json:"booking_id"`
	RequesterID string              `json:"requester_id"`
	ApproverID  string              `json:"approver_id,omitempty"`
	ActorID     string              `json:"actor_id"`
	Status      model.BookingStatus `json:"status"`
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

func NewBookingEvent(eventType, actorID string, b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		RequesterID: b.RequesterID,
		ApproverID:  b.ApproverID,
		ActorID:     actorID,
		Status:      b.Status,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		OccurredAt:  at.UTC(),
	}
}

// TypeForStatus names the event emitted when a booking reaches status.
func TypeForStatus(status model.BookingStatus) string {
	switch status {
	case model.StatusApproved:
		return TypeApproved
	case model.StatusRejected:
		return TypeRejected
	default:
		return TypeCreated
	}
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
	source   string
}

func NewKafkaPublisher(producer messagePublisher, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

// Publish keys the message by booking id so one booking's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }
