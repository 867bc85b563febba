package domain

import "errors"

// Domain errors
var (
	// Lookup errors
	ErrBookingNotFound  = errors.New("booking not found")
	ErrOccasionNotFound = errors.New("occasion not found")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrPeriodNotFound   = errors.New("period not found")

	// Validation errors
	ErrInvalidBookingID    = errors.New("invalid booking id")
	ErrInvalidAttendeeID   = errors.New("invalid attendee id")
	ErrInvalidOccasionID   = errors.New("invalid occasion id")
	ErrInvalidBookingState = errors.New("invalid booking state")
	ErrInvalidAlignment    = errors.New("invalid alignment")

	// Precondition violations, fatal to the caller
	ErrPeriodNotConfirmed = errors.New("period is not confirmed")
	ErrOccasionFull       = errors.New("occasion is full")

	// ErrBookingLimitReached signals that the attendee's accepted-booking
	// quota is exhausted. Cascades catch it and move on to the next
	// candidate; it is the only recoverable error in this package.
	ErrBookingLimitReached = errors.New("attendee booking limit reached")

	// ErrConflictingBooking means two accepted bookings of one attendee
	// overlap. The matching invariant was already broken before the call
	// that reports it.
	ErrConflictingBooking = errors.New("conflicting accepted booking")

	// Matching errors
	ErrLoopBudgetExceeded = errors.New("matching loop budget exceeded")
	ErrMatchingInvalid    = errors.New("matching produced overlapping accepted bookings")
	ErrMatchingUnstable   = errors.New("matching result is not stable")
)
