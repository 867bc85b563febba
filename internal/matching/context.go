package matching

import (
	"time"

	"github.com/google/uuid"

	"github.com/campflow/matching-engine/internal/domain"
)

// Context is the read-only view of a period the scoring criteria work
// against. It is assembled once per matching pass so criteria stay pure;
// in particular "now" is fixed for the whole run.
type Context struct {
	Now    time.Time
	Period *domain.Period

	Occasions map[uuid.UUID]*domain.Occasion
	Attendees map[uuid.UUID]*domain.Attendee

	// Admins holds the user ids carrying the admin role.
	Admins map[uuid.UUID]struct{}

	// Organisers holds the user ids organising at least one occasion in
	// the current period. Organising in another period does not count.
	Organisers map[uuid.UUID]struct{}

	// GroupSizes counts the bookings sharing each group code.
	GroupSizes map[string]int
}

// NewContext builds a scoring context for one period. Organisers and
// group sizes are derived from the given occasions and bookings.
func NewContext(
	now time.Time,
	period *domain.Period,
	occasions []*domain.Occasion,
	attendees []*domain.Attendee,
	bookings []*domain.Booking,
	admins map[uuid.UUID]struct{},
) *Context {
	ctx := &Context{
		Now:        now,
		Period:     period,
		Occasions:  make(map[uuid.UUID]*domain.Occasion, len(occasions)),
		Attendees:  make(map[uuid.UUID]*domain.Attendee, len(attendees)),
		Admins:     admins,
		Organisers: make(map[uuid.UUID]struct{}),
		GroupSizes: make(map[string]int),
	}
	if ctx.Admins == nil {
		ctx.Admins = make(map[uuid.UUID]struct{})
	}

	for _, o := range occasions {
		ctx.Occasions[o.ID] = o
		if o.OrganiserID != uuid.Nil {
			ctx.Organisers[o.OrganiserID] = struct{}{}
		}
	}
	for _, a := range attendees {
		ctx.Attendees[a.ID] = a
	}
	for _, b := range bookings {
		if b.GroupCode != "" {
			ctx.GroupSizes[b.GroupCode]++
		}
	}

	return ctx
}

// IsAdmin checks if the user carries the admin role
func (c *Context) IsAdmin(userID uuid.UUID) bool {
	_, ok := c.Admins[userID]
	return ok
}

// IsOrganiser checks if the user organises an occasion in this period
func (c *Context) IsOrganiser(userID uuid.UUID) bool {
	_, ok := c.Organisers[userID]
	return ok
}

// AgeRange returns the age bracket of the booking's occasion
func (c *Context) AgeRange(b *domain.Booking) (minAge, maxAge int, ok bool) {
	o, found := c.Occasions[b.OccasionID]
	if !found {
		return 0, 0, false
	}
	return o.MinAge, o.MaxAge, true
}

// AttendeeAge returns the booking's attendee age at the context's "now"
func (c *Context) AttendeeAge(b *domain.Booking) (int, bool) {
	a, found := c.Attendees[b.AttendeeID]
	if !found {
		return 0, false
	}
	return a.AgeAt(c.Now), true
}

// GroupSize returns the number of bookings sharing the group code
func (c *Context) GroupSize(code string) int {
	return c.GroupSizes[code]
}
