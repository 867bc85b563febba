package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campflow/matching-engine/internal/domain"
)

func testID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func seedRepository() *MemoryBookingRepository {
	repo := NewMemoryBookingRepository()

	repo.AddPeriod(&domain.Period{ID: testID(1), Confirmed: true})
	repo.AddAttendee(&domain.Attendee{ID: testID(10), Name: "Mia"})
	repo.AddAttendee(&domain.Attendee{ID: testID(11), Name: "Noah"})
	repo.AddOccasion(&domain.Occasion{ID: testID(20), PeriodID: testID(1), MaxSpots: 2})
	repo.AddOccasion(&domain.Occasion{ID: testID(21), PeriodID: testID(1), MaxSpots: 1})

	repo.AddBooking(&domain.Booking{
		ID: testID(32), AttendeeID: testID(10), OccasionID: testID(20),
		PeriodID: testID(1), State: domain.BookingStateAccepted,
	})
	repo.AddBooking(&domain.Booking{
		ID: testID(30), AttendeeID: testID(10), OccasionID: testID(21),
		PeriodID: testID(1), State: domain.BookingStateBlocked,
	})
	repo.AddBooking(&domain.Booking{
		ID: testID(31), AttendeeID: testID(11), OccasionID: testID(20),
		PeriodID: testID(1), State: domain.BookingStateCancelled,
	})

	return repo
}

func TestMemoryBookingRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := seedRepository()

	t.Run("found", func(t *testing.T) {
		period, err := repo.Period(ctx, testID(1))
		require.NoError(t, err)
		assert.True(t, period.Confirmed)

		booking, err := repo.Booking(ctx, testID(30))
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStateBlocked, booking.State)

		occasion, err := repo.Occasion(ctx, testID(20))
		require.NoError(t, err)
		assert.Equal(t, 2, occasion.MaxSpots)

		attendee, err := repo.Attendee(ctx, testID(10))
		require.NoError(t, err)
		assert.Equal(t, "Mia", attendee.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Period(ctx, testID(99))
		assert.ErrorIs(t, err, domain.ErrPeriodNotFound)

		_, err = repo.Booking(ctx, testID(99))
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)

		_, err = repo.Occasion(ctx, testID(99))
		assert.ErrorIs(t, err, domain.ErrOccasionNotFound)

		_, err = repo.Attendee(ctx, testID(99))
		assert.ErrorIs(t, err, domain.ErrAttendeeNotFound)
	})
}

func TestMemoryBookingRepositoryPeriodQueries(t *testing.T) {
	ctx := context.Background()
	repo := seedRepository()

	t.Run("bookings sorted, cancelled excluded", func(t *testing.T) {
		bookings, err := repo.BookingsByPeriod(ctx, testID(1))
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, testID(30), bookings[0].ID)
		assert.Equal(t, testID(32), bookings[1].ID)
	})

	t.Run("occasions sorted", func(t *testing.T) {
		occasions, err := repo.OccasionsByPeriod(ctx, testID(1))
		require.NoError(t, err)
		require.Len(t, occasions, 2)
		assert.Equal(t, testID(20), occasions[0].ID)
		assert.Equal(t, testID(21), occasions[1].ID)
	})

	t.Run("attendees deduplicated and sorted", func(t *testing.T) {
		attendees, err := repo.AttendeesByPeriod(ctx, testID(1))
		require.NoError(t, err)
		require.Len(t, attendees, 2)
		assert.Equal(t, testID(10), attendees[0].ID)
		assert.Equal(t, testID(11), attendees[1].ID)
	})

	t.Run("unknown period is empty", func(t *testing.T) {
		bookings, err := repo.BookingsByPeriod(ctx, testID(99))
		require.NoError(t, err)
		assert.Empty(t, bookings)
	})
}

func TestMemoryBookingRepositorySiblings(t *testing.T) {
	ctx := context.Background()
	repo := seedRepository()

	siblings, err := repo.Siblings(ctx, testID(10), testID(1), testID(32))
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, testID(30), siblings[0].ID)

	// the cancelled booking is the attendee's only other one
	siblings, err = repo.Siblings(ctx, testID(11), testID(1), testID(99))
	require.NoError(t, err)
	assert.Empty(t, siblings)
}

func TestMemoryBookingRepositoryAcceptedCount(t *testing.T) {
	ctx := context.Background()
	repo := seedRepository()

	count, err := repo.AcceptedCount(ctx, testID(20))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.AcceptedCount(ctx, testID(21))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryBookingRepositoryUpdates(t *testing.T) {
	ctx := context.Background()
	repo := seedRepository()

	booking, err := repo.Booking(ctx, testID(30))
	require.NoError(t, err)

	booking.State = domain.BookingStateDenied
	require.NoError(t, repo.UpdateBooking(ctx, booking))

	reloaded, err := repo.Booking(ctx, testID(30))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStateDenied, reloaded.State)

	err = repo.UpdateBooking(ctx, &domain.Booking{ID: testID(99)})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	period, err := repo.Period(ctx, testID(1))
	require.NoError(t, err)
	period.Finalized = true
	require.NoError(t, repo.UpdatePeriod(ctx, period))

	err = repo.UpdatePeriod(ctx, &domain.Period{ID: testID(99)})
	assert.ErrorIs(t, err, domain.ErrPeriodNotFound)

	assert.NoError(t, repo.Flush(ctx))
}

func TestMemoryBookingRepositoryAdmins(t *testing.T) {
	ctx := context.Background()
	repo := seedRepository()

	admins, err := repo.AdminUserIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, admins)

	repo.SetAdmins(testID(50), testID(51))

	admins, err = repo.AdminUserIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 2)
	assert.Contains(t, admins, testID(50))
	assert.Contains(t, admins, testID(51))
}
