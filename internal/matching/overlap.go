package matching

import (
	"time"

	"github.com/campflow/matching-engine/internal/domain"
)

// OverlapOptions configures the conflict check between two bookings
type OverlapOptions struct {
	// MinutesBetween is the transfer time between bookings. It acts as a
	// suffix to each date range, extending its end by n minutes.
	MinutesBetween int

	// Alignment stretches every date range to the given granularity
	// before comparing.
	Alignment domain.Alignment

	// AntiAffinityCheck additionally treats occasions sharing an
	// anti-affinity group as conflicting for the same attendee.
	AntiAffinityCheck bool
}

// Overlaps reports whether booking a conflicts with booking b, given
// their occasions. Bookings on the same occasion never conflict with
// each other (an occasion may well have dates on the same day). The
// anti-affinity check takes precedence over the overlap exclusion flags.
func Overlaps(a, b *domain.Booking, oa, ob *domain.Occasion, opts OverlapOptions) bool {
	if a.ID == b.ID {
		return false
	}
	if oa.ID == ob.ID {
		return false
	}

	if opts.AntiAffinityCheck && a.AttendeeID == b.AttendeeID {
		if oa.AntiAffinityGroup != "" && oa.AntiAffinityGroup == ob.AntiAffinityGroup {
			return true
		}
	}

	if oa.ExcludeFromOverlapCheck || ob.ExcludeFromOverlapCheck {
		return false
	}

	return DatesOverlap(oa.Dates, ob.Dates, opts.MinutesBetween, opts.Alignment)
}

// DatesOverlap reports whether any range of a conflicts with any range
// of b after alignment and the transfer-time suffix have been applied.
// Ranges touching at a single instant do not conflict.
func DatesOverlap(a, b []domain.DateRange, minutesBetween int, alignment domain.Alignment) bool {
	suffix := time.Duration(minutesBetween) * time.Minute

	for _, ra := range a {
		ra = alignRange(ra, alignment)

		for _, rb := range b {
			rb = alignRange(rb, alignment)

			if ra.Start.Before(rb.End.Add(suffix)) && rb.Start.Before(ra.End.Add(suffix)) {
				return true
			}
		}
	}

	return false
}

// alignRange stretches the range to cover whole days or half-days. Ends
// landing exactly on a boundary stay put, everything else is rounded up
// to the next boundary. A zero-length range still covers one full unit.
func alignRange(r domain.DateRange, alignment domain.Alignment) domain.DateRange {
	switch alignment {
	case domain.AlignmentDay:
		return stretch(r, 24*time.Hour)
	case domain.AlignmentHalfDay:
		return stretch(r, 12*time.Hour)
	default:
		return r
	}
}

func stretch(r domain.DateRange, unit time.Duration) domain.DateRange {
	start := floorTo(r.Start, unit)

	end := floorTo(r.End, unit)
	if !r.End.Equal(end) || !r.End.After(start) {
		end = end.Add(unit)
	}

	return domain.DateRange{Start: start, End: end}
}

// floorTo rounds down to the previous unit boundary in the time's own
// location, so that day boundaries follow the occasion's timezone.
func floorTo(t time.Time, unit time.Duration) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	if unit < 24*time.Hour && t.Sub(day) >= unit {
		return day.Add(unit)
	}
	return day
}
