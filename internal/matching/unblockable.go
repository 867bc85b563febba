package matching

import (
	"github.com/google/uuid"

	"github.com/campflow/matching-engine/internal/domain"
)

// Unblockable returns the blocked bookings which no longer conflict with
// any accepted booking, best score first. Callers cancel an accepted
// booking, then use this to decide what to offer for re-acceptance.
func Unblockable(
	accepted, blocked []*domain.Booking,
	occasions map[uuid.UUID]*domain.Occasion,
	opts OverlapOptions,
) []*domain.Booking {

	var free []*domain.Booking

	for _, candidate := range blocked {
		if conflictsWithAny(candidate, accepted, occasions, opts) {
			continue
		}
		free = append(free, candidate)
	}

	SortBookings(free)
	return free
}

func conflictsWithAny(
	b *domain.Booking,
	others []*domain.Booking,
	occasions map[uuid.UUID]*domain.Occasion,
	opts OverlapOptions,
) bool {
	ob, ok := occasions[b.OccasionID]
	if !ok {
		return false
	}

	for _, other := range others {
		oo, ok := occasions[other.OccasionID]
		if !ok {
			continue
		}
		if Overlaps(b, other, ob, oo, opts) {
			return true
		}
	}
	return false
}
