package domain

import (
	"time"

	"github.com/google/uuid"
)

// Alignment controls the granularity of the overlap check. With day
// alignment a four hour occasion blocks out the whole day; with half-day
// alignment it blocks out its morning or afternoon.
type Alignment string

const (
	AlignmentNone    Alignment = ""
	AlignmentDay     Alignment = "day"
	AlignmentHalfDay Alignment = "half-day"
)

// IsValid checks if the alignment is a known value
func (a Alignment) IsValid() bool {
	switch a {
	case AlignmentNone, AlignmentDay, AlignmentHalfDay:
		return true
	}
	return false
}

// PeriodPhase describes where a period currently stands in its lifecycle
type PeriodPhase string

const (
	PhaseInactive  PeriodPhase = "inactive"
	PhaseWishlist  PeriodPhase = "wishlist"
	PhaseBooking   PeriodPhase = "booking"
	PhasePayment   PeriodPhase = "payment"
	PhaseExecution PeriodPhase = "execution"
	PhaseArchive   PeriodPhase = "archive"
)

// Period is the administrative campaign window bounding a batch of
// occasions and bookings. Before confirmation, bookings are wishes and
// the matching engine may reassign them freely.
type Period struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	Confirmed bool      `json:"confirmed"`
	Finalized bool      `json:"finalized"`

	PrebookingStart time.Time `json:"prebooking_start"`
	PrebookingEnd   time.Time `json:"prebooking_end"`
	BookingStart    time.Time `json:"booking_start"`
	BookingEnd      time.Time `json:"booking_end"`
	ExecutionStart  time.Time `json:"execution_start"`
	ExecutionEnd    time.Time `json:"execution_end"`

	// BookingLimit is the maximum number of accepted bookings per attendee.
	// Zero means no limit.
	BookingLimit int `json:"booking_limit"`

	// BookingCost is the period's base cost per booking (or per period if
	// all-inclusive).
	BookingCost float64 `json:"booking_cost"`

	// AllInclusive selects whether the period-wide BookingLimit governs
	// unblocking (true) or the per-attendee override does (false).
	AllInclusive bool `json:"all_inclusive"`

	// MinutesBetween is the transfer time required between two bookings.
	MinutesBetween int `json:"minutes_between"`

	Alignment Alignment `json:"alignment,omitempty"`
}

// Phase returns the period's lifecycle phase at the given time
func (p *Period) Phase(now time.Time) PeriodPhase {
	if !p.Active || now.Before(p.PrebookingStart) {
		return PhaseInactive
	}
	if !p.Confirmed {
		return PhaseWishlist
	}
	if now.Before(p.BookingStart) {
		return PhaseInactive
	}
	if !p.Finalized {
		if now.After(endOfDay(p.BookingEnd)) {
			return PhaseInactive
		}
		return PhaseBooking
	}
	if now.Before(p.ExecutionStart) {
		return PhasePayment
	}
	if !now.After(endOfDay(p.ExecutionEnd)) {
		return PhaseExecution
	}
	return PhaseArchive
}

// WishlistPhase checks if the period is in the wishlist phase
func (p *Period) WishlistPhase(now time.Time) bool {
	return p.Phase(now) == PhaseWishlist
}

// BookingPhase checks if the period is in the booking phase
func (p *Period) BookingPhase(now time.Time) bool {
	return p.Phase(now) == PhaseBooking
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
