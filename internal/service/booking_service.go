package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campflow/matching-engine/internal/domain"
	"github.com/campflow/matching-engine/internal/events"
	"github.com/campflow/matching-engine/internal/logger"
	"github.com/campflow/matching-engine/internal/matching"
	"github.com/campflow/matching-engine/internal/repository"
)

// CancelOptions controls the side effects of a cancellation
type CancelOptions struct {
	// Cascade re-accepts bookings freed up by the cancellation. Only
	// cancelling an accepted booking cascades.
	Cascade bool

	// Score ranks the candidates considered during the cascade. Nil means
	// priority-only scoring.
	Score matching.ScoreFunc
}

// DefaultCancelOptions returns the default cancellation behaviour
func DefaultCancelOptions() *CancelOptions {
	return &CancelOptions{Cascade: true}
}

// BookingService defines the interface for single-booking transitions
type BookingService interface {
	// Accept accepts a booking, blocking the attendee's conflicting
	// bookings as a side effect. Returns ErrBookingLimitReached when the
	// attendee's quota is exhausted; callers inside a cascade catch it and
	// move on.
	Accept(ctx context.Context, bookingID uuid.UUID) error

	// Cancel cancels a booking. With CancelOptions.Cascade, cancelling an
	// accepted booking re-accepts the best bookings freed up by it, both
	// for the attendee and for the vacated occasion.
	Cancel(ctx context.Context, bookingID uuid.UUID, opts *CancelOptions) error
}

// bookingService implements BookingService
type bookingService struct {
	repo      repository.BookingRepository
	publisher events.Publisher
}

// NewBookingService creates a new booking service
func NewBookingService(repo repository.BookingRepository, publisher events.Publisher) BookingService {
	if publisher == nil {
		publisher = events.NewMemoryPublisher()
	}
	return &bookingService{
		repo:      repo,
		publisher: publisher,
	}
}

// Accept accepts a booking
func (s *bookingService) Accept(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.Booking(ctx, bookingID)
	if err != nil {
		return err
	}

	period, err := s.repo.Period(ctx, booking.PeriodID)
	if err != nil {
		return err
	}
	if !period.Confirmed {
		return domain.ErrPeriodNotConfirmed
	}

	if !booking.CanAccept() {
		return fmt.Errorf("%w: cannot accept %s booking", domain.ErrInvalidBookingState, booking.State)
	}

	occasion, err := s.repo.Occasion(ctx, booking.OccasionID)
	if err != nil {
		return err
	}

	acceptedCount, err := s.repo.AcceptedCount(ctx, occasion.ID)
	if err != nil {
		return err
	}
	if acceptedCount >= occasion.MaxSpots {
		return domain.ErrOccasionFull
	}

	attendee, err := s.repo.Attendee(ctx, booking.AttendeeID)
	if err != nil {
		return err
	}

	siblings, err := s.repo.Siblings(ctx, booking.AttendeeID, booking.PeriodID, booking.ID)
	if err != nil {
		return err
	}

	limit := effectiveLimit(period, attendee)
	acceptedSiblings := 0
	for _, sibling := range siblings {
		if sibling.IsAccepted() {
			acceptedSiblings++
		}
	}
	if limit > 0 && acceptedSiblings >= limit {
		return domain.ErrBookingLimitReached
	}

	occasions, err := s.occasionsByID(ctx, booking.PeriodID)
	if err != nil {
		return err
	}
	overlap := overlapOptions(period)

	// an accepted sibling overlapping the booking means the stable
	// matching invariant was broken before this call
	for _, sibling := range siblings {
		if sibling.IsAccepted() && overlaps(booking, sibling, occasions, overlap) {
			return fmt.Errorf("%w: bookings %s and %s", domain.ErrConflictingBooking, booking.ID, sibling.ID)
		}
	}

	booking.State = domain.BookingStateAccepted
	booking.Cost = occasion.TotalCost(period)
	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, domain.NewEvent(domain.EventAccepted, booking)); err != nil {
		return err
	}

	// once the limit is hit exactly, no sibling may be accepted without a
	// cancellation freeing a slot, so all of them are blocked
	limitExhausted := limit > 0 && acceptedSiblings+1 >= limit

	for _, sibling := range siblings {
		if sibling.IsAccepted() || sibling.IsCancelled() || sibling.State == domain.BookingStateBlocked {
			continue
		}
		if !limitExhausted && !overlaps(booking, sibling, occasions, overlap) {
			continue
		}

		sibling.State = domain.BookingStateBlocked
		if err := s.repo.UpdateBooking(ctx, sibling); err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, domain.NewEvent(domain.EventBlocked, sibling)); err != nil {
			return err
		}
	}

	logger.Get().Info("booking accepted",
		zap.String("booking_id", booking.ID.String()),
		zap.String("occasion_id", occasion.ID.String()),
		zap.String("attendee_id", attendee.ID.String()),
	)

	return s.repo.Flush(ctx)
}

// Cancel cancels a booking
func (s *bookingService) Cancel(ctx context.Context, bookingID uuid.UUID, opts *CancelOptions) error {
	if opts == nil {
		opts = DefaultCancelOptions()
	}
	score := opts.Score
	if score == nil {
		score = matching.NewScoring().Score
	}

	booking, err := s.repo.Booking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.IsCancelled() {
		return nil
	}

	period, err := s.repo.Period(ctx, booking.PeriodID)
	if err != nil {
		return err
	}
	if !period.Confirmed {
		return domain.ErrPeriodNotConfirmed
	}

	cascade := opts.Cascade && booking.IsAccepted()

	booking.State = domain.BookingStateCancelled
	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, domain.NewEvent(domain.EventCancelled, booking)); err != nil {
		return err
	}
	if err := s.repo.Flush(ctx); err != nil {
		return err
	}

	if !cascade {
		return nil
	}

	logger.Get().Info("booking cancelled, cascading",
		zap.String("booking_id", booking.ID.String()),
		zap.String("occasion_id", booking.OccasionID.String()),
	)

	occasions, err := s.occasionsByID(ctx, booking.PeriodID)
	if err != nil {
		return err
	}
	overlap := overlapOptions(period)

	if err := s.unblockSiblings(ctx, booking, period, occasions, overlap, score); err != nil {
		return err
	}

	return s.refillOccasion(ctx, booking.OccasionID, score)
}

// unblockSiblings re-stages and accepts the attendee's blocked bookings
// which no longer conflict with anything after the cancellation.
func (s *bookingService) unblockSiblings(
	ctx context.Context,
	cancelled *domain.Booking,
	period *domain.Period,
	occasions map[uuid.UUID]*domain.Occasion,
	overlap matching.OverlapOptions,
	score matching.ScoreFunc,
) error {

	attendee, err := s.repo.Attendee(ctx, cancelled.AttendeeID)
	if err != nil {
		return err
	}

	siblings, err := s.repo.Siblings(ctx, cancelled.AttendeeID, cancelled.PeriodID, cancelled.ID)
	if err != nil {
		return err
	}

	var accepted, blocked []*domain.Booking
	for _, sibling := range siblings {
		sibling.Score = score(sibling)
		switch sibling.State {
		case domain.BookingStateAccepted:
			accepted = append(accepted, sibling)
		case domain.BookingStateBlocked:
			blocked = append(blocked, sibling)
		}
	}

	// re-stage the freed bookings as denied, best score first, stopping
	// once the limit would be exceeded
	budget := -1
	if limit := effectiveLimit(period, attendee); limit > 0 {
		budget = limit - len(accepted)
	}

	var unblocked []*domain.Booking
	for _, candidate := range matching.Unblockable(accepted, blocked, occasions, overlap) {
		if budget == 0 {
			break
		}
		if budget > 0 {
			budget--
		}

		candidate.State = domain.BookingStateDenied
		if err := s.repo.UpdateBooking(ctx, candidate); err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, domain.NewEvent(domain.EventUnblocked, candidate)); err != nil {
			return err
		}
		unblocked = append(unblocked, candidate)
	}
	if err := s.repo.Flush(ctx); err != nil {
		return err
	}

	for _, candidate := range unblocked {
		// accepting one candidate may have blocked another in the meantime
		current, err := s.repo.Booking(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if current.State != domain.BookingStateDenied {
			continue
		}

		occasion, ok := occasions[current.OccasionID]
		if !ok {
			continue
		}
		count, err := s.repo.AcceptedCount(ctx, occasion.ID)
		if err != nil {
			return err
		}
		if count >= occasion.MaxSpots {
			continue
		}

		if err := s.Accept(ctx, current.ID); err != nil {
			if errors.Is(err, domain.ErrBookingLimitReached) {
				continue
			}
			return err
		}
	}

	return nil
}

// refillOccasion offers the spot vacated by a cancellation to the
// occasion's remaining open and denied bookings, best score first.
func (s *bookingService) refillOccasion(ctx context.Context, occasionID uuid.UUID, score matching.ScoreFunc) error {
	occasion, err := s.repo.Occasion(ctx, occasionID)
	if err != nil {
		return err
	}

	bookings, err := s.repo.BookingsByOccasion(ctx, occasionID)
	if err != nil {
		return err
	}

	var candidates []*domain.Booking
	for _, b := range bookings {
		if b.State == domain.BookingStateOpen || b.State == domain.BookingStateDenied {
			b.Score = score(b)
			candidates = append(candidates, b)
		}
	}
	matching.SortBookings(candidates)

	for _, candidate := range candidates {
		count, err := s.repo.AcceptedCount(ctx, occasionID)
		if err != nil {
			return err
		}
		if count >= occasion.MaxSpots {
			break
		}

		if err := s.Accept(ctx, candidate.ID); err != nil {
			if errors.Is(err, domain.ErrBookingLimitReached) {
				continue
			}
			return err
		}
	}

	return s.repo.Flush(ctx)
}

func (s *bookingService) occasionsByID(ctx context.Context, periodID uuid.UUID) (map[uuid.UUID]*domain.Occasion, error) {
	occasions, err := s.repo.OccasionsByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*domain.Occasion, len(occasions))
	for _, o := range occasions {
		byID[o.ID] = o
	}
	return byID, nil
}

// effectiveLimit picks the accepted-booking quota for an attendee. An
// all-inclusive period's own limit wins; otherwise the attendee override
// applies, falling back to the period limit.
func effectiveLimit(period *domain.Period, attendee *domain.Attendee) int {
	if period.AllInclusive && period.BookingLimit > 0 {
		return period.BookingLimit
	}
	if attendee.Limit > 0 {
		return attendee.Limit
	}
	return period.BookingLimit
}

func overlapOptions(period *domain.Period) matching.OverlapOptions {
	return matching.OverlapOptions{
		MinutesBetween:    period.MinutesBetween,
		Alignment:         period.Alignment,
		AntiAffinityCheck: true,
	}
}

func overlaps(a, b *domain.Booking, occasions map[uuid.UUID]*domain.Occasion, opts matching.OverlapOptions) bool {
	oa, ok := occasions[a.OccasionID]
	if !ok {
		return false
	}
	ob, ok := occasions[b.OccasionID]
	if !ok {
		return false
	}
	return matching.Overlaps(a, b, oa, ob, opts)
}
