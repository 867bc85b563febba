package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBookingState(t *testing.T) {
	valid := []BookingState{
		BookingStateOpen, BookingStateBlocked, BookingStateAccepted,
		BookingStateDenied, BookingStateCancelled,
	}
	for _, state := range valid {
		assert.True(t, state.IsValid(), state.String())
	}
	assert.False(t, BookingState("pending").IsValid())
}

func TestBookingValidate(t *testing.T) {
	booking := func() *Booking {
		return &Booking{
			ID:         uuid.New(),
			AttendeeID: uuid.New(),
			OccasionID: uuid.New(),
			State:      BookingStateOpen,
		}
	}

	assert.NoError(t, booking().Validate())

	b := booking()
	b.ID = uuid.Nil
	assert.ErrorIs(t, b.Validate(), ErrInvalidBookingID)

	b = booking()
	b.AttendeeID = uuid.Nil
	assert.ErrorIs(t, b.Validate(), ErrInvalidAttendeeID)

	b = booking()
	b.OccasionID = uuid.Nil
	assert.ErrorIs(t, b.Validate(), ErrInvalidOccasionID)

	b = booking()
	b.State = BookingState("pending")
	assert.ErrorIs(t, b.Validate(), ErrInvalidBookingState)
}

func TestBookingCanAccept(t *testing.T) {
	acceptable := map[BookingState]bool{
		BookingStateOpen:      true,
		BookingStateDenied:    true,
		BookingStateBlocked:   false,
		BookingStateAccepted:  false,
		BookingStateCancelled: false,
	}
	for state, want := range acceptable {
		b := &Booking{State: state}
		assert.Equal(t, want, b.CanAccept(), state.String())
	}
}

func TestAlignmentIsValid(t *testing.T) {
	assert.True(t, AlignmentNone.IsValid())
	assert.True(t, AlignmentDay.IsValid())
	assert.True(t, AlignmentHalfDay.IsValid())
	assert.False(t, Alignment("weekly").IsValid())
}

func TestAttendeeAgeAt(t *testing.T) {
	attendee := &Attendee{
		BirthDate: time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, 10, attendee.AgeAt(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9, attendee.AgeAt(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10, attendee.AgeAt(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, attendee.AgeAt(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestOccasionBounds(t *testing.T) {
	occasion := &Occasion{
		Dates: []DateRange{
			{
				Start: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 7, 8, 12, 0, 0, 0, time.UTC),
			},
			{
				Start: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}

	assert.Equal(t, time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), occasion.Start())
	assert.Equal(t, time.Date(2024, 7, 8, 12, 0, 0, 0, time.UTC), occasion.End())
	assert.Equal(t, 2*time.Hour, occasion.Dates[0].Duration())
}

func TestOccasionTotalCost(t *testing.T) {
	occasion := &Occasion{Cost: 50}

	assert.Equal(t, 60.0, occasion.TotalCost(&Period{BookingCost: 10}))
	assert.Equal(t, 50.0, occasion.TotalCost(&Period{BookingCost: 10, AllInclusive: true}))
	assert.Equal(t, 50.0, occasion.TotalCost(nil))
}

func TestPeriodPhase(t *testing.T) {
	base := Period{
		Active:          true,
		PrebookingStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PrebookingEnd:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		BookingStart:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		BookingEnd:      time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		ExecutionStart:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		ExecutionEnd:    time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
	}

	at := func(month, day int) time.Time {
		return time.Date(2024, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name      string
		mutate    func(*Period)
		now       time.Time
		wantPhase PeriodPhase
	}{
		{
			name:      "inactive period",
			mutate:    func(p *Period) { p.Active = false },
			now:       at(2, 1),
			wantPhase: PhaseInactive,
		},
		{
			name:      "before prebooking",
			mutate:    func(p *Period) {},
			now:       time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			wantPhase: PhaseInactive,
		},
		{
			name:      "wishlist",
			mutate:    func(p *Period) {},
			now:       at(2, 1),
			wantPhase: PhaseWishlist,
		},
		{
			name:      "confirmed but before booking start",
			mutate:    func(p *Period) { p.Confirmed = true },
			now:       at(2, 1),
			wantPhase: PhaseInactive,
		},
		{
			name:      "booking",
			mutate:    func(p *Period) { p.Confirmed = true },
			now:       at(4, 1),
			wantPhase: PhaseBooking,
		},
		{
			name:      "booking window closed",
			mutate:    func(p *Period) { p.Confirmed = true },
			now:       at(5, 15),
			wantPhase: PhaseInactive,
		},
		{
			name:      "payment",
			mutate:    func(p *Period) { p.Confirmed = true; p.Finalized = true },
			now:       at(5, 15),
			wantPhase: PhasePayment,
		},
		{
			name:      "execution",
			mutate:    func(p *Period) { p.Confirmed = true; p.Finalized = true },
			now:       at(7, 15),
			wantPhase: PhaseExecution,
		},
		{
			name:      "archive",
			mutate:    func(p *Period) { p.Confirmed = true; p.Finalized = true },
			now:       at(9, 15),
			wantPhase: PhaseArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			period := base
			tt.mutate(&period)
			assert.Equal(t, tt.wantPhase, period.Phase(tt.now))

			assert.Equal(t, tt.wantPhase == PhaseWishlist, period.WishlistPhase(tt.now))
			assert.Equal(t, tt.wantPhase == PhaseBooking, period.BookingPhase(tt.now))
		})
	}
}
