package matching

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/campflow/matching-engine/internal/domain"
)

// Options configures a deferred-acceptance run
type Options struct {
	// Score ranks competing bookings. Defaults to NewScoring().Score.
	Score ScoreFunc

	// ValidityCheck verifies that the run produced no overlapping
	// accepted bookings. Runs in O(b²) per attendee.
	ValidityCheck bool

	// StabilityCheck verifies that the result contains no blocking
	// pairs. Far too slow for production, meant for tests.
	StabilityCheck bool

	// HardBudget turns an exhausted loop budget into an error instead
	// of silently stopping.
	HardBudget bool

	// DefaultLimit caps the accepted bookings per attendee. Zero means
	// no limit.
	DefaultLimit int

	// AttendeeLimits overrides DefaultLimit per attendee.
	AttendeeLimits map[uuid.UUID]int

	MinutesBetween int
	Alignment      domain.Alignment
}

// Result is the stable assignment produced by a run. Every input booking
// lands in exactly one of the three sets.
type Result struct {
	Open     []*domain.Booking
	Accepted []*domain.Booking
	Blocked  []*domain.Booking
}

// States maps each booking id to its assigned state
func (r *Result) States() map[uuid.UUID]domain.BookingState {
	states := make(map[uuid.UUID]domain.BookingState,
		len(r.Open)+len(r.Accepted)+len(r.Blocked))

	for _, b := range r.Open {
		states[b.ID] = domain.BookingStateOpen
	}
	for _, b := range r.Accepted {
		states[b.ID] = domain.BookingStateAccepted
	}
	for _, b := range r.Blocked {
		states[b.ID] = domain.BookingStateBlocked
	}
	return states
}

// DeferredAcceptance matches bookings with occasions.
//
// Attendee agents try to get the best occasions according to the wishes
// of the attendee, occasion agents accept the best bookings according to
// the score function, revoking provisional acceptances when a better
// candidate shows up. Rounds repeat until no agent can improve, which is
// a stable state. The input states are ignored; only the sets matter, so
// rerunning on an unchanged input reproduces the same result.
func DeferredAcceptance(
	bookings []*domain.Booking,
	occasions []*domain.Occasion,
	opts Options,
) (*Result, error) {

	if !opts.Alignment.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAlignment, opts.Alignment)
	}

	score := opts.Score
	if score == nil {
		score = NewScoring().Score
	}

	// pre-calculate the scores; agents only compare the cached value
	for _, b := range bookings {
		b.Score = score(b)
	}

	r := &run{
		occasions: make(map[uuid.UUID]*occasionAgent, len(occasions)),
		overlap: OverlapOptions{
			MinutesBetween:    opts.MinutesBetween,
			Alignment:         opts.Alignment,
			AntiAffinityCheck: true,
		},
	}
	for _, o := range occasions {
		r.occasions[o.ID] = &occasionAgent{
			occasion:  o,
			attendees: make(map[uuid.UUID]*attendeeAgent),
			score:     cachedScore,
		}
	}

	byAttendee := make(map[uuid.UUID][]*domain.Booking)
	for _, b := range bookings {
		byAttendee[b.AttendeeID] = append(byAttendee[b.AttendeeID], b)
	}

	for id, wishes := range byAttendee {
		limit := opts.DefaultLimit
		if override, ok := opts.AttendeeLimits[id]; ok {
			limit = override
		}

		agent := &attendeeAgent{id: id, limit: limit, run: r}
		agent.wishlist = append(agent.wishlist, wishes...)
		SortBookings(agent.wishlist)

		r.attendees = append(r.attendees, agent)
	}

	// processing order is part of the contract: always by attendee id
	slices.SortFunc(r.attendees, func(a, b *attendeeAgent) int {
		return strings.Compare(a.id.String(), b.id.String())
	})

	budget := &loopBudget{max: len(bookings) * len(r.attendees)}

	for r.hasWishes() {
		if budget.limitReached() {
			if opts.HardBudget {
				return nil, fmt.Errorf("%w after %d rounds",
					domain.ErrLoopBudgetExceeded, budget.ticks)
			}
			break
		}

		matched := 0

		for _, candidate := range r.candidates() {
			// the wishlist changes under a successful match, so walk a
			// snapshot and start over with the next candidate
			for _, booking := range slices.Clone(candidate.wishlist) {
				occasion, ok := r.occasions[booking.OccasionID]
				if !ok {
					continue
				}
				if occasion.match(candidate, booking) {
					matched++
					break
				}
			}
		}

		// if no matches were possible the situation can't be improved
		if matched == 0 {
			break
		}
	}

	if opts.ValidityCheck {
		for _, agent := range r.attendees {
			if !agent.isValid() {
				return nil, fmt.Errorf("%w: attendee %s",
					domain.ErrMatchingInvalid, agent.id)
			}
		}
	}

	if opts.StabilityCheck && !isStable(r.attendees, r.occasionList()) {
		return nil, domain.ErrMatchingUnstable
	}

	return r.result(), nil
}

func cachedScore(b *domain.Booking) float64 {
	return b.Score
}

// run holds the shared state of one deferred-acceptance pass
type run struct {
	attendees []*attendeeAgent
	occasions map[uuid.UUID]*occasionAgent
	overlap   OverlapOptions
}

func (r *run) hasWishes() bool {
	for _, a := range r.attendees {
		if len(a.wishlist) > 0 {
			return true
		}
	}
	return false
}

func (r *run) candidates() []*attendeeAgent {
	var c []*attendeeAgent
	for _, a := range r.attendees {
		if len(a.wishlist) > 0 {
			c = append(c, a)
		}
	}
	return c
}

func (r *run) occasionList() []*occasionAgent {
	list := make([]*occasionAgent, 0, len(r.occasions))
	for _, o := range r.occasions {
		list = append(list, o)
	}
	slices.SortFunc(list, func(a, b *occasionAgent) int {
		return strings.Compare(a.occasion.ID.String(), b.occasion.ID.String())
	})
	return list
}

func (r *run) blocks(subject, other *domain.Booking) bool {
	os, ok := r.occasions[subject.OccasionID]
	if !ok {
		return false
	}
	oo, ok := r.occasions[other.OccasionID]
	if !ok {
		return false
	}
	return Overlaps(subject, other, os.occasion, oo.occasion, r.overlap)
}

func (r *run) result() *Result {
	res := &Result{}
	for _, a := range r.attendees {
		res.Open = append(res.Open, a.wishlist...)
		res.Accepted = append(res.Accepted, a.accepted...)
		res.Blocked = append(res.Blocked, a.blocked...)
	}

	byID := func(a, b *domain.Booking) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	}
	slices.SortFunc(res.Open, byID)
	slices.SortFunc(res.Accepted, byID)
	slices.SortFunc(res.Blocked, byID)

	return res
}

// attendeeAgent acts on behalf of one attendee, holding their wishlist
// in score order and tracking what has been accepted or blocked so far.
type attendeeAgent struct {
	id       uuid.UUID
	limit    int
	wishlist []*domain.Booking
	accepted []*domain.Booking
	blocked  []*domain.Booking
	run      *run
}

func (a *attendeeAgent) accept(booking *domain.Booking) {
	a.wishlist = removeBooking(a.wishlist, booking)
	a.accepted = append(a.accepted, booking)

	if a.limit > 0 && len(a.accepted) >= a.limit {
		// the limit is exhausted, nothing else may be accepted
		a.blocked = append(a.blocked, a.wishlist...)
		a.wishlist = nil
		return
	}

	kept := a.wishlist[:0]
	for _, w := range a.wishlist {
		if a.run.blocks(booking, w) {
			a.blocked = append(a.blocked, w)
		} else {
			kept = append(kept, w)
		}
	}
	a.wishlist = kept
}

func (a *attendeeAgent) deny(booking *domain.Booking) {
	a.accepted = removeBooking(a.accepted, booking)
	a.addWish(booking)

	// bookings blocked by the denied one may re-enter the wishlist
	for _, freed := range Unblockable(
		a.accepted, a.blocked, a.run.occasionMap(), a.run.overlap) {

		a.blocked = removeBooking(a.blocked, freed)
		a.addWish(freed)
	}
}

func (a *attendeeAgent) addWish(booking *domain.Booking) {
	at, _ := slices.BinarySearchFunc(a.wishlist, booking, CompareBookings)
	a.wishlist = slices.Insert(a.wishlist, at, booking)
}

// isValid reports whether no two accepted bookings conflict. The
// algorithm should never let that happen; this is the safety net.
func (a *attendeeAgent) isValid() bool {
	for i, x := range a.accepted {
		for _, y := range a.accepted[i+1:] {
			if a.run.blocks(x, y) {
				return false
			}
		}
	}
	return true
}

func (r *run) occasionMap() map[uuid.UUID]*domain.Occasion {
	m := make(map[uuid.UUID]*domain.Occasion, len(r.occasions))
	for id, agent := range r.occasions {
		m[id] = agent.occasion
	}
	return m
}

// occasionAgent represents the other side of the attendee/occasion pair.
// It accepts the best-scored bookings up to capacity, throwing a weaker
// booking out when a better one arrives.
type occasionAgent struct {
	occasion  *domain.Occasion
	bookings  []*domain.Booking
	attendees map[uuid.UUID]*attendeeAgent
	score     ScoreFunc
}

func (o *occasionAgent) full() bool {
	return len(o.bookings) >= o.occasion.MaxSpots
}

// preferred returns the weakest booking scoring below the given one, or
// nil if the given booking is not preferred over anything held.
func (o *occasionAgent) preferred(booking *domain.Booking) *domain.Booking {
	var weakest *domain.Booking

	for _, held := range o.bookings {
		if o.score(held) >= o.score(booking) {
			continue
		}
		if weakest == nil || o.score(held) < o.score(weakest) {
			weakest = held
			continue
		}
		if o.score(held) == o.score(weakest) &&
			strings.Compare(held.ID.String(), weakest.ID.String()) > 0 {
			weakest = held
		}
	}

	return weakest
}

func (o *occasionAgent) accept(attendee *attendeeAgent, booking *domain.Booking) {
	o.attendees[booking.ID] = attendee
	o.bookings = append(o.bookings, booking)
	attendee.accept(booking)
}

func (o *occasionAgent) deny(booking *domain.Booking) {
	o.attendees[booking.ID].deny(booking)
	o.bookings = removeBooking(o.bookings, booking)
	delete(o.attendees, booking.ID)
}

func (o *occasionAgent) match(attendee *attendeeAgent, booking *domain.Booking) bool {
	// as long as there are spots, automatically accept new requests
	if !o.full() {
		o.accept(attendee, booking)
		return true
	}

	// otherwise accept the booking by throwing a weaker one out
	if over := o.preferred(booking); over != nil {
		o.deny(over)
		o.accept(attendee, booking)
		return true
	}

	return false
}

// isStable returns true if no accepted booking and occasion pair would
// rather be matched with each other than with their current partners.
// O(n⁴) over bookings and occasions, a testing tool only.
func isStable(attendees []*attendeeAgent, occasions []*occasionAgent) bool {
	for _, attendee := range attendees {
		for _, booking := range attendee.accepted {
			for _, occasion := range occasions {

				if slices.Contains(occasion.bookings, booking) {
					continue
				}

				over := occasion.preferred(booking)
				if over == nil {
					continue
				}

				for _, other := range occasions {
					if other == occasion {
						continue
					}

					switched := other.preferred(over)
					if switched != nil && occasion.preferred(switched) != nil {
						return false
					}
				}
			}
		}
	}
	return true
}

type loopBudget struct {
	ticks int
	max   int
}

// limitReached consumes a tick; nobody has proven the matching loop
// always halts, so the budget makes sure it does.
func (l *loopBudget) limitReached() bool {
	l.ticks++
	return l.ticks > l.max
}

func removeBooking(list []*domain.Booking, booking *domain.Booking) []*domain.Booking {
	for i, b := range list {
		if b.ID == booking.ID {
			return slices.Delete(list, i, i+1)
		}
	}
	return list
}
