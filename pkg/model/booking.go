package model

import (
	"time"
)

type BookingStatus string

const (
	StatusPending  BookingStatus = "PENDING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// SlotDuration is the fixed length of every defense slot.
const SlotDuration = time.Hour

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Booking struct {
	ID          string        `json:"id" bson:"_id,omitempty"`
	StartDate   time.Time     `json:"start_date" bson:"start_date"`
	EndDate     time.Time     `json:"end_date" bson:"end_date"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	RequesterID string        `json:"requester_id" bson:"requester_id"`
	ApproverID  string        `json:"approver_id,omitempty" bson:"approver_id,omitempty"`
	Status      BookingStatus `json:"status" bson:"status"`
	IsDeleted   bool          `json:"is_deleted" bson:"is_deleted"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`

	// SlotKey and Active back the unique indexes; they are derived on write.
	SlotKey string `json:"-" bson:"slot_key"`
	Active  bool   `json:"-" bson:"active"`
}

// IsActive reports whether the booking still occupies its slot.
func (b *Booking) IsActive() bool {
	return !b.IsDeleted && b.Status != StatusRejected
}

// Terminal reports whether the booking can no longer change.
func (b *Booking) Terminal() bool {
	return b.IsDeleted || b.Status.Terminal()
}

// SlotKeyFor identifies the (day, hour) a slot starting at start occupies in loc.
func SlotKeyFor(start time.Time, loc *time.Location) string {
	return start.In(loc).Format("2006-01-02T15")
}

type BookingCreate struct {
	StartDate   *time.Time `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date" validate:"required"`
	Description string     `json:"description,omitempty" validate:"max=500"`
}

type BookingStatusUpdate struct {
	Status BookingStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

type DisplayName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (n DisplayName) Empty() bool {
	return n.FirstName == "" && n.LastName == ""
}

// BookingView is a booking enriched with participant names for reading.
type BookingView struct {
	*Booking
	Requester *DisplayName `json:"requester,omitempty"`
	Approver  *DisplayName `json:"approver,omitempty"`
}
