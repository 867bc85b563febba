package matching

import (
	"hash/fnv"

	"github.com/campflow/matching-engine/internal/domain"
)

// Setting keys of the optional criteria, as stored on the period
const (
	SettingPreferInAgeBracket = "prefer_in_age_bracket"
	SettingPreferOrganiser    = "prefer_organiser"
	SettingPreferAdmins       = "prefer_admins"
	SettingPreferGroups       = "prefer_groups"
)

// Criterion contributes a partial score to a booking. The combined score
// of a booking is the sum over all criteria of a Scoring; higher wins.
type Criterion interface {
	// Name returns the criterion's settings key
	Name() string

	// Score returns the criterion's contribution for the booking
	Score(b *domain.Booking) float64
}

// PreferMotivated scores a booking by the priority its guardian gave it.
// It is part of every Scoring.
type PreferMotivated struct{}

func (PreferMotivated) Name() string { return "prefer_motivated" }

func (PreferMotivated) Score(b *domain.Booking) float64 {
	return float64(b.Priority)
}

// PreferInAgeBracket prefers attendees whose age falls into the
// occasion's age bracket. The preference decays by 0.1 per year of
// distance outside the bracket.
type PreferInAgeBracket struct {
	AgeRange    func(b *domain.Booking) (minAge, maxAge int)
	AttendeeAge func(b *domain.Booking) int
}

// NewPreferInAgeBracket builds the criterion from a scoring context
func NewPreferInAgeBracket(ctx *Context) PreferInAgeBracket {
	return PreferInAgeBracket{
		AgeRange: func(b *domain.Booking) (int, int) {
			minAge, maxAge, _ := ctx.AgeRange(b)
			return minAge, maxAge
		},
		AttendeeAge: func(b *domain.Booking) int {
			age, _ := ctx.AttendeeAge(b)
			return age
		},
	}
}

func (PreferInAgeBracket) Name() string { return SettingPreferInAgeBracket }

func (c PreferInAgeBracket) Score(b *domain.Booking) float64 {
	minAge, maxAge := c.AgeRange(b)
	age := c.AttendeeAge(b)

	if minAge <= age && age <= maxAge {
		return 1.0
	}

	distance := age - maxAge
	if age < minAge {
		distance = minAge - age
	}

	score := 1.0 - float64(distance)/10
	if score < 0 {
		return 0
	}
	return score
}

// PreferOrganiserChildren prefers bookings whose owning user organises
// an occasion in the current period.
type PreferOrganiserChildren struct {
	IsOrganiserChild func(b *domain.Booking) bool
}

// NewPreferOrganiserChildren builds the criterion from a scoring context
func NewPreferOrganiserChildren(ctx *Context) PreferOrganiserChildren {
	return PreferOrganiserChildren{
		IsOrganiserChild: func(b *domain.Booking) bool {
			return ctx.IsOrganiser(b.UserID)
		},
	}
}

func (PreferOrganiserChildren) Name() string { return SettingPreferOrganiser }

func (c PreferOrganiserChildren) Score(b *domain.Booking) float64 {
	if c.IsOrganiserChild(b) {
		return 1.5
	}
	return 0
}

// PreferAdminChildren prefers bookings whose owning user carries the
// admin role.
type PreferAdminChildren struct {
	IsAdminChild func(b *domain.Booking) bool
}

// NewPreferAdminChildren builds the criterion from a scoring context
func NewPreferAdminChildren(ctx *Context) PreferAdminChildren {
	return PreferAdminChildren{
		IsAdminChild: func(b *domain.Booking) bool {
			return ctx.IsAdmin(b.UserID)
		},
	}
}

func (PreferAdminChildren) Name() string { return SettingPreferAdmins }

func (c PreferAdminChildren) Score(b *domain.Booking) float64 {
	if c.IsAdminChild(b) {
		return 1.5
	}
	return 0
}

// PreferGroups keeps bookings sharing a group code together, with the
// preference getting weaker the larger the group is. A pair outweighs a
// single priority point, larger groups do not. Ties between equal-sized
// groups are broken by a small deterministic component derived from the
// group code, so reruns resolve them the same way.
type PreferGroups struct {
	GroupSize func(code string) int
}

// NewPreferGroups builds the criterion from a scoring context
func NewPreferGroups(ctx *Context) PreferGroups {
	return PreferGroups{GroupSize: ctx.GroupSize}
}

func (PreferGroups) Name() string { return SettingPreferGroups }

func (c PreferGroups) Score(b *domain.Booking) float64 {
	if b.GroupCode == "" {
		return 0
	}

	size := c.GroupSize(b.GroupCode)
	if size < 2 {
		return 0
	}

	jitter := groupCodeJitter(b.GroupCode)
	if size == 2 {
		return 1.25 + jitter
	}
	return 1.0/float64(size*size) + jitter
}

// groupCodeJitter maps a group code to [0, 0.05)
func groupCodeJitter(code string) float64 {
	h := fnv.New32a()
	h.Write([]byte(code))
	return float64(h.Sum32()%1000) / 20000
}
