package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campflow/matching-engine/internal/domain"
)

func TestPreferMotivated(t *testing.T) {
	c := PreferMotivated{}

	assert.Equal(t, 0.0, c.Score(&domain.Booking{Priority: 0}))
	assert.Equal(t, 1.0, c.Score(&domain.Booking{Priority: 1}))
	assert.Equal(t, 7.0, c.Score(&domain.Booking{Priority: 7}))
}

func TestPreferInAgeBracket(t *testing.T) {
	c := PreferInAgeBracket{
		AgeRange:    func(*domain.Booking) (int, int) { return 10, 20 },
		AttendeeAge: func(b *domain.Booking) int { return b.Priority },
	}

	// the booking's priority doubles as the age here
	age := func(years int) *domain.Booking { return &domain.Booking{Priority: years} }

	assert.Equal(t, 1.0, c.Score(age(10)))
	assert.Equal(t, 1.0, c.Score(age(15)))
	assert.Equal(t, 1.0, c.Score(age(20)))

	// the preference decays by 0.1 per year outside the bracket
	assert.InDelta(t, 0.9, c.Score(age(21)), 1e-9)
	assert.InDelta(t, 0.8, c.Score(age(22)), 1e-9)
	assert.InDelta(t, 0.7, c.Score(age(7)), 1e-9)
	assert.InDelta(t, 0.5, c.Score(age(25)), 1e-9)
	assert.Equal(t, 0.0, c.Score(age(30)))
	assert.Equal(t, 0.0, c.Score(age(45)))
}

func TestPreferOrganiserChildren(t *testing.T) {
	organiser := testID(701)
	c := PreferOrganiserChildren{
		IsOrganiserChild: func(b *domain.Booking) bool { return b.UserID == organiser },
	}

	assert.Equal(t, 1.5, c.Score(&domain.Booking{UserID: organiser}))
	assert.Equal(t, 0.0, c.Score(&domain.Booking{UserID: testID(702)}))
}

func TestPreferAdminChildren(t *testing.T) {
	admin := testID(703)
	c := PreferAdminChildren{
		IsAdminChild: func(b *domain.Booking) bool { return b.UserID == admin },
	}

	assert.Equal(t, 1.5, c.Score(&domain.Booking{UserID: admin}))
	assert.Equal(t, 0.0, c.Score(&domain.Booking{UserID: testID(704)}))
}

func TestPreferGroups(t *testing.T) {
	sizes := map[string]int{"pair": 2, "trio": 3, "club": 8, "solo": 1}
	c := PreferGroups{GroupSize: func(code string) int { return sizes[code] }}

	t.Run("no group code scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, c.Score(&domain.Booking{}))
	})

	t.Run("a group of one scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, c.Score(&domain.Booking{GroupCode: "solo"}))
	})

	t.Run("a pair outweighs one priority point", func(t *testing.T) {
		score := c.Score(&domain.Booking{GroupCode: "pair"})
		assert.Greater(t, score, 1.0)
		assert.Less(t, score, 1.5)
	})

	t.Run("larger groups do not outweigh a priority point", func(t *testing.T) {
		pair := c.Score(&domain.Booking{GroupCode: "pair"})
		trio := c.Score(&domain.Booking{GroupCode: "trio"})
		club := c.Score(&domain.Booking{GroupCode: "club"})

		assert.Less(t, trio, pair-1)
		assert.Less(t, club, trio)
		assert.Greater(t, trio, 0.0)
	})

	t.Run("the same code always scores the same", func(t *testing.T) {
		a := c.Score(&domain.Booking{GroupCode: "trio"})
		b := c.Score(&domain.Booking{GroupCode: "trio"})
		assert.Equal(t, a, b)
	})
}

func TestScoring(t *testing.T) {
	t.Run("priority is always part of the score", func(t *testing.T) {
		s := NewScoring()
		assert.Equal(t, 2.0, s.Score(&domain.Booking{Priority: 2}))
	})

	t.Run("criteria scores are added up", func(t *testing.T) {
		s := NewScoring(PreferAdminChildren{
			IsAdminChild: func(*domain.Booking) bool { return true },
		})
		assert.Equal(t, 2.5, s.Score(&domain.Booking{Priority: 1}))
	})

	t.Run("settings round trip", func(t *testing.T) {
		settings := map[string]bool{
			SettingPreferInAgeBracket: true,
			SettingPreferOrganiser:    true,
			SettingPreferAdmins:       true,
			SettingPreferGroups:       true,
		}

		ctx := NewContext(time.Now(), &domain.Period{}, nil, nil, nil, nil)
		s := ScoringFromSettings(settings, ctx)

		require.Len(t, s.Criteria(), 5)
		assert.Equal(t, settings, s.Settings())
	})

	t.Run("empty settings leave only the priority", func(t *testing.T) {
		ctx := NewContext(time.Now(), &domain.Period{}, nil, nil, nil, nil)
		s := ScoringFromSettings(nil, ctx)

		require.Len(t, s.Criteria(), 1)
		assert.Empty(t, s.Settings())
	})
}

func TestCompareBookings(t *testing.T) {
	b := func(n int, score float64, priority int) *domain.Booking {
		return &domain.Booking{ID: testID(n), Score: score, Priority: priority}
	}

	t.Run("score wins", func(t *testing.T) {
		assert.Negative(t, CompareBookings(b(2, 2, 0), b(1, 1, 5)))
	})

	t.Run("priority breaks score ties", func(t *testing.T) {
		assert.Negative(t, CompareBookings(b(2, 1, 3), b(1, 1, 1)))
	})

	t.Run("id breaks full ties", func(t *testing.T) {
		assert.Negative(t, CompareBookings(b(1, 1, 1), b(2, 1, 1)))
	})

	t.Run("sort is best first and deterministic", func(t *testing.T) {
		bookings := []*domain.Booking{b(3, 1, 1), b(1, 2, 0), b(2, 1, 1)}
		SortBookings(bookings)

		got := []uuid.UUID{bookings[0].ID, bookings[1].ID, bookings[2].ID}
		assert.Equal(t, []uuid.UUID{testID(1), testID(2), testID(3)}, got)
	})
}

func TestContext(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	period := &domain.Period{ID: testID(801)}

	organiser := testID(811)
	admin := testID(812)

	occasions := []*domain.Occasion{
		{ID: testID(821), OrganiserID: organiser, MinAge: 8, MaxAge: 12},
	}
	attendees := []*domain.Attendee{
		{ID: testID(831), BirthDate: time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	bookings := []*domain.Booking{
		{ID: testID(841), AttendeeID: testID(831), OccasionID: testID(821), GroupCode: "g1"},
		{ID: testID(842), AttendeeID: testID(832), OccasionID: testID(821), GroupCode: "g1"},
		{ID: testID(843), AttendeeID: testID(833), OccasionID: testID(821)},
	}

	ctx := NewContext(now, period, occasions, attendees, bookings,
		map[uuid.UUID]struct{}{admin: {}})

	assert.True(t, ctx.IsOrganiser(organiser))
	assert.False(t, ctx.IsOrganiser(admin))
	assert.True(t, ctx.IsAdmin(admin))

	assert.Equal(t, 2, ctx.GroupSize("g1"))
	assert.Equal(t, 0, ctx.GroupSize("unknown"))

	minAge, maxAge, ok := ctx.AgeRange(bookings[0])
	require.True(t, ok)
	assert.Equal(t, 8, minAge)
	assert.Equal(t, 12, maxAge)

	age, ok := ctx.AttendeeAge(bookings[0])
	require.True(t, ok)
	assert.Equal(t, 10, age)
}
