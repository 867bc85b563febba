package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campflow/matching-engine/internal/domain"
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// Period retrieves a period by its ID
func (r *PostgresBookingRepository) Period(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	query := `
		SELECT
			id, title, active, confirmed, finalized,
			prebooking_start, prebooking_end,
			booking_start, booking_end,
			execution_start, execution_end,
			booking_limit, booking_cost, all_inclusive,
			minutes_between, alignment
		FROM periods
		WHERE id = $1
	`

	period := &domain.Period{}
	var alignment string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&period.ID,
		&period.Title,
		&period.Active,
		&period.Confirmed,
		&period.Finalized,
		&period.PrebookingStart,
		&period.PrebookingEnd,
		&period.BookingStart,
		&period.BookingEnd,
		&period.ExecutionStart,
		&period.ExecutionEnd,
		&period.BookingLimit,
		&period.BookingCost,
		&period.AllInclusive,
		&period.MinutesBetween,
		&alignment,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to get period: %w", err)
	}

	period.Alignment = domain.Alignment(alignment)
	return period, nil
}

// UpdatePeriod updates an existing period
func (r *PostgresBookingRepository) UpdatePeriod(ctx context.Context, period *domain.Period) error {
	query := `
		UPDATE periods SET
			title = $2,
			active = $3,
			confirmed = $4,
			finalized = $5,
			booking_limit = $6,
			booking_cost = $7,
			all_inclusive = $8,
			minutes_between = $9,
			alignment = $10,
			updated_at = $11
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		period.ID,
		period.Title,
		period.Active,
		period.Confirmed,
		period.Finalized,
		period.BookingLimit,
		period.BookingCost,
		period.AllInclusive,
		period.MinutesBetween,
		string(period.Alignment),
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPeriodNotFound
	}

	return nil
}

// Attendee retrieves an attendee by its ID
func (r *PostgresBookingRepository) Attendee(ctx context.Context, id uuid.UUID) (*domain.Attendee, error) {
	query := `
		SELECT id, user_id, name, birth_date, booking_limit
		FROM attendees
		WHERE id = $1
	`

	attendee := &domain.Attendee{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&attendee.ID,
		&attendee.UserID,
		&attendee.Name,
		&attendee.BirthDate,
		&attendee.Limit,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAttendeeNotFound
		}
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}

	return attendee, nil
}

// AttendeesByPeriod retrieves the attendees holding bookings in a period
func (r *PostgresBookingRepository) AttendeesByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Attendee, error) {
	query := `
		SELECT DISTINCT a.id, a.user_id, a.name, a.birth_date, a.booking_limit
		FROM attendees a
		JOIN bookings b ON b.attendee_id = a.id
		WHERE b.period_id = $1
		ORDER BY a.id
	`

	rows, err := r.pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendees by period: %w", err)
	}
	defer rows.Close()

	var attendees []*domain.Attendee
	for rows.Next() {
		attendee := &domain.Attendee{}
		err := rows.Scan(
			&attendee.ID,
			&attendee.UserID,
			&attendee.Name,
			&attendee.BirthDate,
			&attendee.Limit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, attendee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendees: %w", err)
	}

	return attendees, nil
}

// Occasion retrieves an occasion by its ID, dates included
func (r *PostgresBookingRepository) Occasion(ctx context.Context, id uuid.UUID) (*domain.Occasion, error) {
	query := `
		SELECT
			id, activity_id, period_id, organiser_id,
			min_spots, max_spots, min_age, max_age, cost,
			exclude_from_overlap_check, anti_affinity_group, cancelled
		FROM occasions
		WHERE id = $1
	`

	occasion, err := r.scanOccasion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOccasionNotFound
		}
		return nil, fmt.Errorf("failed to get occasion: %w", err)
	}

	if err := r.loadOccasionDates(ctx, map[uuid.UUID]*domain.Occasion{occasion.ID: occasion}); err != nil {
		return nil, err
	}

	return occasion, nil
}

// OccasionsByPeriod retrieves all occasions of a period, dates included
func (r *PostgresBookingRepository) OccasionsByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Occasion, error) {
	query := `
		SELECT
			id, activity_id, period_id, organiser_id,
			min_spots, max_spots, min_age, max_age, cost,
			exclude_from_overlap_check, anti_affinity_group, cancelled
		FROM occasions
		WHERE period_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get occasions by period: %w", err)
	}
	defer rows.Close()

	var occasions []*domain.Occasion
	byID := make(map[uuid.UUID]*domain.Occasion)

	for rows.Next() {
		occasion, err := r.scanOccasion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occasion: %w", err)
		}
		occasions = append(occasions, occasion)
		byID[occasion.ID] = occasion
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occasions: %w", err)
	}

	if err := r.loadOccasionDates(ctx, byID); err != nil {
		return nil, err
	}

	return occasions, nil
}

// Booking retrieves a booking by its ID
func (r *PostgresBookingRepository) Booking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := bookingSelect + `WHERE id = $1`

	booking, err := r.scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

// BookingsByPeriod retrieves a period's bookings, cancelled ones excluded
func (r *PostgresBookingRepository) BookingsByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Booking, error) {
	query := bookingSelect + `
		WHERE period_id = $1 AND state != 'cancelled'
		ORDER BY id
	`
	return r.queryBookings(ctx, query, periodID)
}

// BookingsByOccasion retrieves an occasion's bookings, cancelled ones excluded
func (r *PostgresBookingRepository) BookingsByOccasion(ctx context.Context, occasionID uuid.UUID) ([]*domain.Booking, error) {
	query := bookingSelect + `
		WHERE occasion_id = $1 AND state != 'cancelled'
		ORDER BY id
	`
	return r.queryBookings(ctx, query, occasionID)
}

// Siblings retrieves an attendee's remaining bookings in a period
func (r *PostgresBookingRepository) Siblings(ctx context.Context, attendeeID, periodID, exclude uuid.UUID) ([]*domain.Booking, error) {
	query := bookingSelect + `
		WHERE attendee_id = $1 AND period_id = $2 AND id != $3 AND state != 'cancelled'
		ORDER BY id
	`
	return r.queryBookings(ctx, query, attendeeID, periodID, exclude)
}

// AcceptedCount counts an occasion's accepted bookings
func (r *PostgresBookingRepository) AcceptedCount(ctx context.Context, occasionID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE occasion_id = $1 AND state = 'accepted'
	`

	var count int
	err := r.pool.QueryRow(ctx, query, occasionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accepted bookings: %w", err)
	}

	return count, nil
}

// AdminUserIDs retrieves the user ids carrying the admin role
func (r *PostgresBookingRepository) AdminUserIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	query := `SELECT id FROM users WHERE role = 'admin'`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user ids: %w", err)
	}
	defer rows.Close()

	admins := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		admins[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}

	return admins, nil
}

// UpdateBooking updates an existing booking
func (r *PostgresBookingRepository) UpdateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings SET
			priority = $2,
			group_code = $3,
			state = $4,
			cost = $5,
			updated_at = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		booking.ID,
		booking.Priority,
		nullIfEmpty(booking.GroupCode),
		booking.State.String(),
		booking.Cost,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}

	return nil
}

// Flush is a no-op; every write is issued against the pool directly
func (r *PostgresBookingRepository) Flush(_ context.Context) error {
	return nil
}

const bookingSelect = `
	SELECT
		id, user_id, attendee_id, occasion_id, period_id,
		priority, group_code, state, cost,
		created_at, updated_at
	FROM bookings
`

func (r *PostgresBookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

func (r *PostgresBookingRepository) scanBooking(row pgx.Row) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		state     string
		groupCode *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.AttendeeID,
		&booking.OccasionID,
		&booking.PeriodID,
		&booking.Priority,
		&groupCode,
		&state,
		&booking.Cost,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.State = domain.BookingState(state)
	if groupCode != nil {
		booking.GroupCode = *groupCode
	}

	return booking, nil
}

func (r *PostgresBookingRepository) scanOccasion(row pgx.Row) (*domain.Occasion, error) {
	occasion := &domain.Occasion{}
	var antiAffinityGroup *string

	err := row.Scan(
		&occasion.ID,
		&occasion.ActivityID,
		&occasion.PeriodID,
		&occasion.OrganiserID,
		&occasion.MinSpots,
		&occasion.MaxSpots,
		&occasion.MinAge,
		&occasion.MaxAge,
		&occasion.Cost,
		&occasion.ExcludeFromOverlapCheck,
		&antiAffinityGroup,
		&occasion.Cancelled,
	)
	if err != nil {
		return nil, err
	}

	if antiAffinityGroup != nil {
		occasion.AntiAffinityGroup = *antiAffinityGroup
	}

	return occasion, nil
}

// loadOccasionDates attaches the date ranges of each occasion in the map.
// Dates live in their own table so an occasion can span any number of
// disjoint ranges.
func (r *PostgresBookingRepository) loadOccasionDates(ctx context.Context, occasions map[uuid.UUID]*domain.Occasion) error {
	if len(occasions) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(occasions))
	for id := range occasions {
		ids = append(ids, id)
	}

	query := `
		SELECT occasion_id, starts_at, ends_at
		FROM occasion_dates
		WHERE occasion_id = ANY($1)
		ORDER BY occasion_id, starts_at
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to get occasion dates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			occasionID uuid.UUID
			dates      domain.DateRange
		)
		if err := rows.Scan(&occasionID, &dates.Start, &dates.End); err != nil {
			return fmt.Errorf("failed to scan occasion date: %w", err)
		}
		if occasion, ok := occasions[occasionID]; ok {
			occasion.Dates = append(occasion.Dates, dates)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating occasion dates: %w", err)
	}

	return nil
}

// Helper to convert empty string to NULL
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresBookingRepository implements BookingRepository
var _ BookingRepository = (*PostgresBookingRepository)(nil)
