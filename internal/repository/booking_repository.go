package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/campflow/matching-engine/internal/domain"
)

// BookingRepository defines the read/write view of a period's bookings
// the matching engine works against. Implementations must provide
// read-your-writes within one logical operation: bookings updated during
// a cascade are observed by subsequent queries of the same cascade.
type BookingRepository interface {
	// Period retrieves a period by its ID
	Period(ctx context.Context, id uuid.UUID) (*domain.Period, error)

	// UpdatePeriod updates an existing period
	UpdatePeriod(ctx context.Context, period *domain.Period) error

	// Attendee retrieves an attendee by its ID
	Attendee(ctx context.Context, id uuid.UUID) (*domain.Attendee, error)

	// AttendeesByPeriod retrieves the attendees holding bookings in a period
	AttendeesByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Attendee, error)

	// Occasion retrieves an occasion by its ID
	Occasion(ctx context.Context, id uuid.UUID) (*domain.Occasion, error)

	// OccasionsByPeriod retrieves all occasions of a period
	OccasionsByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Occasion, error)

	// Booking retrieves a booking by its ID
	Booking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)

	// BookingsByPeriod retrieves a period's bookings, cancelled ones excluded
	BookingsByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Booking, error)

	// BookingsByOccasion retrieves an occasion's bookings, cancelled ones excluded
	BookingsByOccasion(ctx context.Context, occasionID uuid.UUID) ([]*domain.Booking, error)

	// Siblings retrieves an attendee's bookings in a period, excluding
	// the given booking and cancelled ones
	Siblings(ctx context.Context, attendeeID, periodID, exclude uuid.UUID) ([]*domain.Booking, error)

	// AcceptedCount counts an occasion's accepted bookings
	AcceptedCount(ctx context.Context, occasionID uuid.UUID) (int, error)

	// AdminUserIDs retrieves the user ids carrying the admin role
	AdminUserIDs(ctx context.Context) (map[uuid.UUID]struct{}, error)

	// UpdateBooking updates an existing booking
	UpdateBooking(ctx context.Context, booking *domain.Booking) error

	// Flush makes pending writes visible to subsequent reads
	Flush(ctx context.Context) error
}
