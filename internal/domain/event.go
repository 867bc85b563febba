package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a booking state transition
type EventType string

const (
	EventOpened    EventType = "booking.opened"
	EventAccepted  EventType = "booking.accepted"
	EventBlocked   EventType = "booking.blocked"
	EventUnblocked EventType = "booking.unblocked"
	EventDenied    EventType = "booking.denied"
	EventCancelled EventType = "booking.cancelled"
)

// Event records a single booking state transition. Cascades emit one
// event per hop, so the sequence of events reconstructs the whole chain.
type Event struct {
	Type       EventType `json:"type"`
	BookingID  uuid.UUID `json:"booking_id"`
	AttendeeID uuid.UUID `json:"attendee_id"`
	OccasionID uuid.UUID `json:"occasion_id"`
	PeriodID   uuid.UUID `json:"period_id"`
	At         time.Time `json:"at"`
}

// NewEvent creates a transition event for the given booking
func NewEvent(eventType EventType, b *Booking) *Event {
	return &Event{
		Type:       eventType,
		BookingID:  b.ID,
		AttendeeID: b.AttendeeID,
		OccasionID: b.OccasionID,
		PeriodID:   b.PeriodID,
		At:         time.Now().UTC(),
	}
}
