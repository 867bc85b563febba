package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/campflow/matching-engine/internal/domain"
	"github.com/campflow/matching-engine/internal/events"
	"github.com/campflow/matching-engine/internal/lock"
	"github.com/campflow/matching-engine/internal/logger"
	"github.com/campflow/matching-engine/internal/matching"
	"github.com/campflow/matching-engine/internal/repository"
)

// MatchOptions controls a matching run
type MatchOptions struct {
	// Scoring overrides the score function. Nil builds one from Settings.
	Scoring *matching.Scoring

	// Settings toggles the optional criteria by name, as stored on the
	// period's settings. Ignored when Scoring is set.
	Settings map[string]bool

	// ValidityCheck verifies that no attendee ends up with overlapping
	// accepted bookings. StabilityCheck verifies the result is stable.
	// Both re-verify the whole result and are meant for diagnostics.
	ValidityCheck  bool
	StabilityCheck bool

	// HardBudget turns loop budget exhaustion into an error instead of
	// settling for the assignment reached so far.
	HardBudget bool
}

// MatcherService defines the interface for period-wide matching
type MatcherService interface {
	// MatchPeriod runs deferred acceptance over all wishes of a period and
	// persists the resulting states. Runs on one period are serialised;
	// a concurrent run returns lock.ErrAlreadyLocked.
	MatchPeriod(ctx context.Context, periodID uuid.UUID, opts *MatchOptions) (*matching.Result, error)

	// ConfirmPeriod confirms a period, turning wishes into bookings. Open
	// bookings become denied and accepted bookings get their final cost.
	ConfirmPeriod(ctx context.Context, periodID uuid.UUID) error
}

// matcherService implements MatcherService
type matcherService struct {
	repo      repository.BookingRepository
	publisher events.Publisher
	locks     lock.PeriodLock
	now       func() time.Time
}

// NewMatcherService creates a new matcher service
func NewMatcherService(repo repository.BookingRepository, publisher events.Publisher, locks lock.PeriodLock) MatcherService {
	if publisher == nil {
		publisher = events.NewMemoryPublisher()
	}
	if locks == nil {
		locks = lock.NewMemoryPeriodLock()
	}
	return &matcherService{
		repo:      repo,
		publisher: publisher,
		locks:     locks,
		now:       time.Now,
	}
}

// MatchPeriod runs deferred acceptance over a period
func (s *matcherService) MatchPeriod(ctx context.Context, periodID uuid.UUID, opts *MatchOptions) (*matching.Result, error) {
	if opts == nil {
		opts = &MatchOptions{}
	}

	ctx, span := otel.Tracer("matching-engine").Start(ctx, "MatchPeriod",
		trace.WithAttributes(attribute.String("period_id", periodID.String())))
	defer span.End()

	release, err := s.locks.Acquire(ctx, periodID)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	period, err := s.repo.Period(ctx, periodID)
	if err != nil {
		return nil, err
	}

	occasions, err := s.repo.OccasionsByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	attendees, err := s.repo.AttendeesByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.BookingsByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	admins, err := s.repo.AdminUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	// cancelled occasions and their wishes sit out the run
	active := make(map[uuid.UUID]*domain.Occasion, len(occasions))
	var matchable []*domain.Occasion
	for _, o := range occasions {
		if o.Cancelled {
			continue
		}
		active[o.ID] = o
		matchable = append(matchable, o)
	}
	var wishes []*domain.Booking
	for _, b := range bookings {
		if _, ok := active[b.OccasionID]; ok {
			wishes = append(wishes, b)
		}
	}

	scoring := opts.Scoring
	if scoring == nil {
		matchCtx := matching.NewContext(s.now(), period, matchable, attendees, wishes, admins)
		scoring = matching.ScoringFromSettings(opts.Settings, matchCtx)
	}

	result, err := matching.DeferredAcceptance(wishes, matchable, matching.Options{
		Score:          scoring.Score,
		ValidityCheck:  opts.ValidityCheck,
		StabilityCheck: opts.StabilityCheck,
		HardBudget:     opts.HardBudget,
		DefaultLimit:   period.BookingLimit,
		AttendeeLimits: attendeeLimits(period, attendees),
		MinutesBetween: period.MinutesBetween,
		Alignment:      period.Alignment,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	changed, err := s.applyStates(ctx, wishes, result.States())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Flush(ctx); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("bookings", len(wishes)),
		attribute.Int("accepted", len(result.Accepted)),
		attribute.Int("blocked", len(result.Blocked)),
		attribute.Int("open", len(result.Open)),
		attribute.Int("changed", changed),
	)
	logger.Get().Info("matching run finished",
		zap.String("period_id", periodID.String()),
		zap.Int("bookings", len(wishes)),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("blocked", len(result.Blocked)),
		zap.Int("open", len(result.Open)),
		zap.Int("changed", changed),
	)

	return result, nil
}

// ConfirmPeriod confirms a period
func (s *matcherService) ConfirmPeriod(ctx context.Context, periodID uuid.UUID) error {
	ctx, span := otel.Tracer("matching-engine").Start(ctx, "ConfirmPeriod",
		trace.WithAttributes(attribute.String("period_id", periodID.String())))
	defer span.End()

	release, err := s.locks.Acquire(ctx, periodID)
	if err != nil {
		return err
	}
	defer release(context.WithoutCancel(ctx))

	period, err := s.repo.Period(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Confirmed {
		return nil
	}

	period.Confirmed = true
	if err := s.repo.UpdatePeriod(ctx, period); err != nil {
		return err
	}

	bookings, err := s.repo.BookingsByPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	occasions, err := s.repo.OccasionsByPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*domain.Occasion, len(occasions))
	for _, o := range occasions {
		byID[o.ID] = o
	}

	for _, b := range bookings {
		switch b.State {
		case domain.BookingStateOpen:
			// wishes that never made it are denied once the period locks in
			b.State = domain.BookingStateDenied
			if err := s.repo.UpdateBooking(ctx, b); err != nil {
				return err
			}
			if err := s.publisher.Publish(ctx, domain.NewEvent(domain.EventDenied, b)); err != nil {
				return err
			}
		case domain.BookingStateAccepted:
			occasion, ok := byID[b.OccasionID]
			if !ok {
				continue
			}
			b.Cost = occasion.TotalCost(period)
			if err := s.repo.UpdateBooking(ctx, b); err != nil {
				return err
			}
		}
	}

	logger.Get().Info("period confirmed",
		zap.String("period_id", periodID.String()),
		zap.Int("bookings", len(bookings)),
	)

	return s.repo.Flush(ctx)
}

// applyStates persists the state changes of a matching run and emits one
// event per change. Bookings already in their target state are untouched.
func (s *matcherService) applyStates(
	ctx context.Context,
	bookings []*domain.Booking,
	states map[uuid.UUID]domain.BookingState,
) (int, error) {

	changed := 0
	for _, b := range bookings {
		state, ok := states[b.ID]
		if !ok || b.State == state {
			continue
		}

		b.State = state
		if err := s.repo.UpdateBooking(ctx, b); err != nil {
			return changed, err
		}

		var eventType domain.EventType
		switch state {
		case domain.BookingStateAccepted:
			eventType = domain.EventAccepted
		case domain.BookingStateBlocked:
			eventType = domain.EventBlocked
		default:
			eventType = domain.EventOpened
		}
		if err := s.publisher.Publish(ctx, domain.NewEvent(eventType, b)); err != nil {
			return changed, err
		}

		changed++
	}
	return changed, nil
}

// attendeeLimits collects the per-attendee overrides. An all-inclusive
// period with its own limit ignores them.
func attendeeLimits(period *domain.Period, attendees []*domain.Attendee) map[uuid.UUID]int {
	if period.AllInclusive && period.BookingLimit > 0 {
		return nil
	}

	limits := make(map[uuid.UUID]int)
	for _, a := range attendees {
		if a.Limit > 0 {
			limits[a.ID] = a.Limit
		}
	}
	return limits
}
