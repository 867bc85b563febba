package matching

import (
	"cmp"
	"slices"

	"github.com/campflow/matching-engine/internal/domain"
)

// ScoreFunc ranks a booking. Occasions prefer bookings with a higher
// score over bookings with a lower score. The function must return a
// constant value for each booking during a matching run.
type ScoreFunc func(b *domain.Booking) float64

// Scoring combines criteria into one additive score. PreferMotivated is
// always included; further criteria are optional and round-trip through
// Settings for persistence alongside the period.
type Scoring struct {
	criteria []Criterion
}

// NewScoring creates a scoring function from the given optional criteria
func NewScoring(criteria ...Criterion) *Scoring {
	return &Scoring{
		criteria: append([]Criterion{PreferMotivated{}}, criteria...),
	}
}

// ScoringFromSettings restores a Scoring from its persisted settings
func ScoringFromSettings(settings map[string]bool, ctx *Context) *Scoring {
	var criteria []Criterion

	if settings[SettingPreferInAgeBracket] {
		criteria = append(criteria, NewPreferInAgeBracket(ctx))
	}
	if settings[SettingPreferOrganiser] {
		criteria = append(criteria, NewPreferOrganiserChildren(ctx))
	}
	if settings[SettingPreferAdmins] {
		criteria = append(criteria, NewPreferAdminChildren(ctx))
	}
	if settings[SettingPreferGroups] {
		criteria = append(criteria, NewPreferGroups(ctx))
	}

	return NewScoring(criteria...)
}

// Criteria returns the scoring's criteria, base criterion included
func (s *Scoring) Criteria() []Criterion {
	return s.criteria
}

// Settings returns the keys of the enabled optional criteria
func (s *Scoring) Settings() map[string]bool {
	settings := make(map[string]bool)
	for _, c := range s.criteria {
		if c.Name() == (PreferMotivated{}).Name() {
			continue
		}
		settings[c.Name()] = true
	}
	return settings
}

// Score sums the criteria scores for the booking
func (s *Scoring) Score(b *domain.Booking) float64 {
	var total float64
	for _, c := range s.criteria {
		total += c.Score(b)
	}
	return total
}

// CompareBookings orders bookings for matching: score descending, then
// priority descending, then booking id ascending. The id keeps the order
// a strict total order, which makes reruns reproducible.
func CompareBookings(a, b *domain.Booking) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// SortBookings sorts bookings best first, per CompareBookings
func SortBookings(bookings []*domain.Booking) {
	slices.SortFunc(bookings, CompareBookings)
}
