// Package lifecycle holds the booking state machine. Who may act is decided
// by an injected Authorizer, never by the booking itself.
package lifecycle

import (
	"errors"
	"slices"

	bookingserrors "defensebook/internal/bookings/errors"
	"defensebook/pkg/auth"
	"defensebook/pkg/model"
)

var (
	ErrNotApprover  = errors.New("actor may not approve or reject bookings")
	ErrNotRequester = errors.New("only the requester may withdraw a booking")
)

type Authorizer interface {
	CanDecide(actor auth.CurrentActor) bool
	CanWithdraw(actor auth.CurrentActor, booking *model.Booking) bool
}

// RoleAuthorizer grants the approver capability to a fixed set of roles and
// lets only the original requester withdraw.
type RoleAuthorizer struct {
	approverRoles []string
}

func NewRoleAuthorizer(approverRoles []string) *RoleAuthorizer {
	return &RoleAuthorizer{approverRoles: approverRoles}
}

func (a *RoleAuthorizer) CanDecide(actor auth.CurrentActor) bool {
	return actor.ID() != "" && slices.Contains(a.approverRoles, actor.Role())
}

func (a *RoleAuthorizer) CanWithdraw(actor auth.CurrentActor, booking *model.Booking) bool {
	return actor.ID() != "" && actor.ID() == booking.RequesterID
}

var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending: {model.StatusApproved, model.StatusRejected},
}

// CanTransition reports whether a booking in from may move to to.
func CanTransition(from, to model.BookingStatus) bool {
	return slices.Contains(transitions[from], to)
}

type Lifecycle struct {
	authorizer Authorizer
}

func New(authorizer Authorizer) *Lifecycle {
	return &Lifecycle{authorizer: authorizer}
}

// Decide checks that actor may move booking to status. It does not mutate.
func (l *Lifecycle) Decide(actor auth.CurrentActor, booking *model.Booking, to model.BookingStatus) error {
	if !l.authorizer.CanDecide(actor) {
		return ErrNotApprover
	}
	if booking.IsDeleted || !CanTransition(booking.Status, to) {
		return bookingserrors.ErrInvalidTransition
	}
	return nil
}

// Withdraw checks that actor may soft-delete booking. It reports done=true
// when the booking is already withdrawn so callers can treat a repeat as a
// no-op.
func (l *Lifecycle) Withdraw(actor auth.CurrentActor, booking *model.Booking) (done bool, err error) {
	if !l.authorizer.CanWithdraw(actor, booking) {
		return false, ErrNotRequester
	}
	if booking.IsDeleted {
		return true, nil
	}
	if booking.Status != model.StatusPending {
		return false, bookingserrors.ErrInvalidTransition
	}
	return false, nil
}
