package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateRange is a half-open time span [Start, End) of an occasion. Two
// ranges that merely touch at an instant do not overlap.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the range
func (d DateRange) Duration() time.Duration {
	return d.End.Sub(d.Start)
}

// Occasion is a concrete, bookable time slot of an activity within a
// period. Its capacity is the half-open spot interval [MinSpots, MaxSpots).
type Occasion struct {
	ID          uuid.UUID   `json:"id"`
	ActivityID  uuid.UUID   `json:"activity_id"`
	PeriodID    uuid.UUID   `json:"period_id"`
	OrganiserID uuid.UUID   `json:"organiser_id"`
	Dates       []DateRange `json:"dates"`
	MinSpots    int         `json:"min_spots"`
	MaxSpots    int         `json:"max_spots"`
	MinAge      int         `json:"min_age"`
	MaxAge      int         `json:"max_age"`
	Cost        float64     `json:"cost"`

	// ExcludeFromOverlapCheck removes the occasion from all date conflict
	// checks. Multi-week occasions running alongside everything else use
	// this.
	ExcludeFromOverlapCheck bool `json:"exclude_from_overlap_check"`

	// AntiAffinityGroup marks occasions which must not be booked together
	// by the same attendee, even if their dates never touch.
	AntiAffinityGroup string `json:"anti_affinity_group,omitempty"`

	Cancelled bool `json:"cancelled"`
}

// Start returns the earliest start of the occasion's dates
func (o *Occasion) Start() time.Time {
	var start time.Time
	for _, d := range o.Dates {
		if start.IsZero() || d.Start.Before(start) {
			start = d.Start
		}
	}
	return start
}

// End returns the latest end of the occasion's dates
func (o *Occasion) End() time.Time {
	var end time.Time
	for _, d := range o.Dates {
		if d.End.After(end) {
			end = d.End
		}
	}
	return end
}

// TotalCost returns the cost of a booking for this occasion. Unless the
// period is all-inclusive, the period's per-booking cost is added on top
// of the occasion's own cost.
func (o *Occasion) TotalCost(p *Period) float64 {
	if p != nil && !p.AllInclusive {
		return o.Cost + p.BookingCost
	}
	return o.Cost
}
