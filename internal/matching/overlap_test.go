package matching

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/campflow/matching-engine/internal/domain"
)

func july(day, hour int) time.Time {
	return time.Date(2024, 7, day, hour, 0, 0, 0, time.UTC)
}

func ranges(spans ...[4]int) []domain.DateRange {
	var out []domain.DateRange
	for _, s := range spans {
		out = append(out, domain.DateRange{Start: july(s[0], s[1]), End: july(s[2], s[3])})
	}
	return out
}

func testID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func TestDatesOverlap(t *testing.T) {
	t.Run("overlapping ranges conflict", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 12})
		b := ranges([4]int{1, 11, 1, 13})
		assert.True(t, DatesOverlap(a, b, 0, domain.AlignmentNone))
		assert.True(t, DatesOverlap(b, a, 0, domain.AlignmentNone))
	})

	t.Run("touching ranges do not conflict", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 11})
		b := ranges([4]int{1, 11, 1, 12})
		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentNone))
		assert.False(t, DatesOverlap(b, a, 0, domain.AlignmentNone))
	})

	t.Run("disjoint ranges do not conflict", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 11})
		b := ranges([4]int{1, 12, 1, 13})
		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentNone))
	})

	t.Run("minutes between extend each end", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 11})
		b := ranges([4]int{1, 11, 1, 12})

		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentNone))
		assert.True(t, DatesOverlap(a, b, 1, domain.AlignmentNone))
		assert.True(t, DatesOverlap(b, a, 1, domain.AlignmentNone))

		c := ranges([4]int{1, 12, 1, 13})
		assert.False(t, DatesOverlap(a, c, 60, domain.AlignmentNone))
		assert.True(t, DatesOverlap(a, c, 61, domain.AlignmentNone))
	})

	t.Run("multiple date ranges", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 12}, [4]int{8, 10, 8, 12})
		b := ranges([4]int{8, 11, 8, 13})
		assert.True(t, DatesOverlap(a, b, 0, domain.AlignmentNone))

		c := ranges([4]int{15, 10, 15, 12})
		assert.False(t, DatesOverlap(a, c, 0, domain.AlignmentNone))
	})

	t.Run("day alignment stretches to whole days", func(t *testing.T) {
		a := ranges([4]int{1, 8, 1, 10})
		b := ranges([4]int{1, 14, 1, 16})

		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentNone))
		assert.True(t, DatesOverlap(a, b, 0, domain.AlignmentDay))
	})

	t.Run("day alignment keeps adjacent days apart", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 12})
		b := ranges([4]int{2, 10, 2, 12})
		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentDay))
	})

	t.Run("day alignment spans multi day ranges", func(t *testing.T) {
		a := ranges([4]int{1, 10, 2, 12})
		b := ranges([4]int{2, 16, 3, 12})

		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentNone))
		assert.True(t, DatesOverlap(a, b, 0, domain.AlignmentDay))
	})

	t.Run("end on a day boundary stays put", func(t *testing.T) {
		a := ranges([4]int{1, 8, 2, 0})
		b := ranges([4]int{2, 10, 2, 12})
		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentDay))
	})

	t.Run("half day alignment separates morning and afternoon", func(t *testing.T) {
		a := ranges([4]int{1, 8, 1, 10})
		b := ranges([4]int{1, 13, 1, 15})

		assert.False(t, DatesOverlap(a, b, 0, domain.AlignmentHalfDay))
		assert.True(t, DatesOverlap(a, b, 0, domain.AlignmentDay))

		c := ranges([4]int{1, 9, 1, 11})
		assert.True(t, DatesOverlap(a, c, 0, domain.AlignmentHalfDay))
	})

	t.Run("half day alignment stretches across noon", func(t *testing.T) {
		a := ranges([4]int{1, 10, 1, 14})
		b := ranges([4]int{1, 15, 1, 17})
		assert.True(t, DatesOverlap(a, b, 0, domain.AlignmentHalfDay))
	})
}

func TestOverlaps(t *testing.T) {
	attendee := testID(901)

	occ := func(n int, dates []domain.DateRange) *domain.Occasion {
		return &domain.Occasion{ID: testID(n), Dates: dates}
	}
	bkg := func(n int, occasionID uuid.UUID) *domain.Booking {
		return &domain.Booking{ID: testID(n), AttendeeID: attendee, OccasionID: occasionID}
	}

	oa := occ(1, ranges([4]int{1, 10, 1, 12}))
	ob := occ(2, ranges([4]int{1, 11, 1, 13}))

	t.Run("conflicting dates", func(t *testing.T) {
		assert.True(t, Overlaps(bkg(11, oa.ID), bkg(12, ob.ID), oa, ob, OverlapOptions{}))
	})

	t.Run("same booking never conflicts", func(t *testing.T) {
		b := bkg(11, oa.ID)
		assert.False(t, Overlaps(b, b, oa, oa, OverlapOptions{}))
	})

	t.Run("same occasion never conflicts", func(t *testing.T) {
		assert.False(t, Overlaps(bkg(11, oa.ID), bkg(12, oa.ID), oa, oa, OverlapOptions{}))
	})

	t.Run("exclusion flag suppresses the check", func(t *testing.T) {
		excluded := occ(3, ranges([4]int{1, 11, 1, 13}))
		excluded.ExcludeFromOverlapCheck = true

		assert.False(t, Overlaps(bkg(11, oa.ID), bkg(12, excluded.ID), oa, excluded, OverlapOptions{}))
	})

	t.Run("anti affinity group conflicts without date overlap", func(t *testing.T) {
		week1 := occ(4, ranges([4]int{1, 8, 5, 17}))
		week2 := occ(5, ranges([4]int{8, 8, 12, 17}))
		week1.AntiAffinityGroup = "soccer-camp"
		week2.AntiAffinityGroup = "soccer-camp"

		opts := OverlapOptions{AntiAffinityCheck: true}
		assert.True(t, Overlaps(bkg(11, week1.ID), bkg(12, week2.ID), week1, week2, opts))

		// without the check the disjoint dates win
		assert.False(t, Overlaps(bkg(11, week1.ID), bkg(12, week2.ID), week1, week2, OverlapOptions{}))
	})

	t.Run("anti affinity only applies within one attendee", func(t *testing.T) {
		week1 := occ(4, ranges([4]int{1, 8, 5, 17}))
		week2 := occ(5, ranges([4]int{8, 8, 12, 17}))
		week1.AntiAffinityGroup = "soccer-camp"
		week2.AntiAffinityGroup = "soccer-camp"

		other := &domain.Booking{ID: testID(12), AttendeeID: testID(902), OccasionID: week2.ID}
		opts := OverlapOptions{AntiAffinityCheck: true}
		assert.False(t, Overlaps(bkg(11, week1.ID), other, week1, week2, opts))
	})

	t.Run("anti affinity beats the exclusion flag", func(t *testing.T) {
		week1 := occ(4, ranges([4]int{1, 8, 5, 17}))
		week2 := occ(5, ranges([4]int{8, 8, 12, 17}))
		week1.AntiAffinityGroup = "soccer-camp"
		week2.AntiAffinityGroup = "soccer-camp"
		week1.ExcludeFromOverlapCheck = true
		week2.ExcludeFromOverlapCheck = true

		opts := OverlapOptions{AntiAffinityCheck: true}
		assert.True(t, Overlaps(bkg(11, week1.ID), bkg(12, week2.ID), week1, week2, opts))
	})
}
