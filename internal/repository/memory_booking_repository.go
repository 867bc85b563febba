package repository

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/campflow/matching-engine/internal/domain"
)

// MemoryBookingRepository implements BookingRepository in memory. It
// backs the engine's tests and any caller that assembles a period
// outside a database. All reads return entities sorted by ID so repeated
// runs observe the same order.
type MemoryBookingRepository struct {
	mu        sync.RWMutex
	periods   map[uuid.UUID]*domain.Period
	attendees map[uuid.UUID]*domain.Attendee
	occasions map[uuid.UUID]*domain.Occasion
	bookings  map[uuid.UUID]*domain.Booking
	admins    map[uuid.UUID]struct{}
}

// NewMemoryBookingRepository creates an empty MemoryBookingRepository
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		periods:   make(map[uuid.UUID]*domain.Period),
		attendees: make(map[uuid.UUID]*domain.Attendee),
		occasions: make(map[uuid.UUID]*domain.Occasion),
		bookings:  make(map[uuid.UUID]*domain.Booking),
		admins:    make(map[uuid.UUID]struct{}),
	}
}

// AddPeriod stores a period
func (r *MemoryBookingRepository) AddPeriod(p *domain.Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[p.ID] = p
}

// AddAttendee stores an attendee
func (r *MemoryBookingRepository) AddAttendee(a *domain.Attendee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attendees[a.ID] = a
}

// AddOccasion stores an occasion
func (r *MemoryBookingRepository) AddOccasion(o *domain.Occasion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.occasions[o.ID] = o
}

// AddBooking stores a booking
func (r *MemoryBookingRepository) AddBooking(b *domain.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
}

// SetAdmins replaces the set of admin user ids
func (r *MemoryBookingRepository) SetAdmins(userIDs ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		r.admins[id] = struct{}{}
	}
}

// Period retrieves a period by its ID
func (r *MemoryBookingRepository) Period(_ context.Context, id uuid.UUID) (*domain.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.periods[id]
	if !ok {
		return nil, domain.ErrPeriodNotFound
	}
	return p, nil
}

// UpdatePeriod updates an existing period
func (r *MemoryBookingRepository) UpdatePeriod(_ context.Context, period *domain.Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.periods[period.ID]; !ok {
		return domain.ErrPeriodNotFound
	}
	r.periods[period.ID] = period
	return nil
}

// Attendee retrieves an attendee by its ID
func (r *MemoryBookingRepository) Attendee(_ context.Context, id uuid.UUID) (*domain.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.attendees[id]
	if !ok {
		return nil, domain.ErrAttendeeNotFound
	}
	return a, nil
}

// AttendeesByPeriod retrieves the attendees holding bookings in a period
func (r *MemoryBookingRepository) AttendeesByPeriod(_ context.Context, periodID uuid.UUID) ([]*domain.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var attendees []*domain.Attendee

	for _, b := range r.bookings {
		if b.PeriodID != periodID {
			continue
		}
		if _, ok := seen[b.AttendeeID]; ok {
			continue
		}
		seen[b.AttendeeID] = struct{}{}

		if a, ok := r.attendees[b.AttendeeID]; ok {
			attendees = append(attendees, a)
		}
	}

	slices.SortFunc(attendees, func(a, b *domain.Attendee) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return attendees, nil
}

// Occasion retrieves an occasion by its ID
func (r *MemoryBookingRepository) Occasion(_ context.Context, id uuid.UUID) (*domain.Occasion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.occasions[id]
	if !ok {
		return nil, domain.ErrOccasionNotFound
	}
	return o, nil
}

// OccasionsByPeriod retrieves all occasions of a period
func (r *MemoryBookingRepository) OccasionsByPeriod(_ context.Context, periodID uuid.UUID) ([]*domain.Occasion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var occasions []*domain.Occasion
	for _, o := range r.occasions {
		if o.PeriodID == periodID {
			occasions = append(occasions, o)
		}
	}

	slices.SortFunc(occasions, func(a, b *domain.Occasion) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return occasions, nil
}

// Booking retrieves a booking by its ID
func (r *MemoryBookingRepository) Booking(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

// BookingsByPeriod retrieves a period's bookings, cancelled ones excluded
func (r *MemoryBookingRepository) BookingsByPeriod(_ context.Context, periodID uuid.UUID) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(b *domain.Booking) bool {
		return b.PeriodID == periodID && !b.IsCancelled()
	}), nil
}

// BookingsByOccasion retrieves an occasion's bookings, cancelled ones excluded
func (r *MemoryBookingRepository) BookingsByOccasion(_ context.Context, occasionID uuid.UUID) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(b *domain.Booking) bool {
		return b.OccasionID == occasionID && !b.IsCancelled()
	}), nil
}

// Siblings retrieves an attendee's remaining bookings in a period
func (r *MemoryBookingRepository) Siblings(_ context.Context, attendeeID, periodID, exclude uuid.UUID) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(b *domain.Booking) bool {
		return b.AttendeeID == attendeeID &&
			b.PeriodID == periodID &&
			b.ID != exclude &&
			!b.IsCancelled()
	}), nil
}

// AcceptedCount counts an occasion's accepted bookings
func (r *MemoryBookingRepository) AcceptedCount(_ context.Context, occasionID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, b := range r.bookings {
		if b.OccasionID == occasionID && b.IsAccepted() {
			count++
		}
	}
	return count, nil
}

// AdminUserIDs retrieves the user ids carrying the admin role
func (r *MemoryBookingRepository) AdminUserIDs(_ context.Context) (map[uuid.UUID]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	admins := make(map[uuid.UUID]struct{}, len(r.admins))
	for id := range r.admins {
		admins[id] = struct{}{}
	}
	return admins, nil
}

// UpdateBooking updates an existing booking
func (r *MemoryBookingRepository) UpdateBooking(_ context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	r.bookings[booking.ID] = booking
	return nil
}

// Flush is a no-op; writes are immediately visible
func (r *MemoryBookingRepository) Flush(_ context.Context) error {
	return nil
}

func (r *MemoryBookingRepository) filter(keep func(*domain.Booking) bool) []*domain.Booking {
	var bookings []*domain.Booking
	for _, b := range r.bookings {
		if keep(b) {
			bookings = append(bookings, b)
		}
	}

	slices.SortFunc(bookings, func(a, b *domain.Booking) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return bookings
}

// Ensure MemoryBookingRepository implements BookingRepository
var _ BookingRepository = (*MemoryBookingRepository)(nil)
