package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingState represents the lifecycle state of a booking
type BookingState string

const (
	BookingStateOpen      BookingState = "open"
	BookingStateBlocked   BookingState = "blocked"
	BookingStateAccepted  BookingState = "accepted"
	BookingStateDenied    BookingState = "denied"
	BookingStateCancelled BookingState = "cancelled"
)

// IsValid checks if the state is a valid BookingState
func (s BookingState) IsValid() bool {
	switch s {
	case BookingStateOpen, BookingStateBlocked, BookingStateAccepted,
		BookingStateDenied, BookingStateCancelled:
		return true
	}
	return false
}

// String returns the string representation of BookingState
func (s BookingState) String() string {
	return string(s)
}

// Booking links an attendee to an occasion within a period. Before the
// period is confirmed a booking is a wish; afterwards it is an actual
// booking whose state is managed by the matching engine.
type Booking struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	AttendeeID uuid.UUID    `json:"attendee_id"`
	OccasionID uuid.UUID    `json:"occasion_id"`
	PeriodID   uuid.UUID    `json:"period_id"`
	Priority   int          `json:"priority"`
	GroupCode  string       `json:"group_code,omitempty"`
	State      BookingState `json:"state"`
	Cost       float64      `json:"cost"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	// Score is assigned by a matching pass right before the bookings are
	// handed to the deferred-acceptance core. It is never persisted.
	Score float64 `json:"-"`
}

// Validate validates the booking's references and state
func (b *Booking) Validate() error {
	if b.ID == uuid.Nil {
		return ErrInvalidBookingID
	}
	if b.AttendeeID == uuid.Nil {
		return ErrInvalidAttendeeID
	}
	if b.OccasionID == uuid.Nil {
		return ErrInvalidOccasionID
	}
	if !b.State.IsValid() {
		return ErrInvalidBookingState
	}
	return nil
}

// CanAccept checks if the booking may transition to accepted
func (b *Booking) CanAccept() bool {
	return b.State == BookingStateOpen || b.State == BookingStateDenied
}

// IsAccepted checks if the booking is in accepted state
func (b *Booking) IsAccepted() bool {
	return b.State == BookingStateAccepted
}

// IsCancelled checks if the booking is in cancelled state
func (b *Booking) IsCancelled() bool {
	return b.State == BookingStateCancelled
}

// BelongsToAttendee checks if the booking belongs to the given attendee
func (b *Booking) BelongsToAttendee(attendeeID uuid.UUID) bool {
	return b.AttendeeID == attendeeID
}
