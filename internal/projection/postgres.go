package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/terraskye/booking/internal/domain/accommodation"
	"github.com/terraskye/booking/internal/domain/booking"
)

const bookingSchema = `
CREATE TABLE IF NOT EXISTS booking_read_models (
    id            UUID PRIMARY KEY,
    user_id       UUID NOT NULL,
    status        TEXT NOT NULL,
    start_date    TIMESTAMPTZ NOT NULL,
    end_date      TIMESTAMPTZ NOT NULL,
    items         JSONB NOT NULL,
    notes         TEXT NOT NULL DEFAULT '',
    version       BIGINT NOT NULL,
    last_event_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS booking_read_models_user_idx ON booking_read_models (user_id);
CREATE INDEX IF NOT EXISTS booking_read_models_range_idx ON booking_read_models (start_date, end_date);
`

const accommodationSchema = `
CREATE TABLE IF NOT EXISTS accommodation_read_models (
    id            UUID PRIMARY KEY,
    name          TEXT NOT NULL,
    type          TEXT NOT NULL,
    max_capacity  INT NOT NULL,
    is_active     BOOLEAN NOT NULL,
    version       BIGINT NOT NULL,
    last_event_at TIMESTAMPTZ NOT NULL
);
`

// PostgresBookingRepository stores booking read models in PostgreSQL.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

var _ BookingRepository = (*PostgresBookingRepository)(nil)

// NewPostgresBookingRepository creates the repository and ensures its table
// exists.
func NewPostgresBookingRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresBookingRepository, error) {
	if _, err := pool.Exec(ctx, bookingSchema); err != nil {
		return nil, fmt.Errorf("create booking read model schema: %w", err)
	}
	return &PostgresBookingRepository{pool: pool}, nil
}

func (r *PostgresBookingRepository) Get(ctx context.Context, id uuid.UUID) (*BookingReadModel, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, status, start_date, end_date, items, notes, version, last_event_at
		FROM booking_read_models WHERE id = $1`, id)

	model, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return model, nil
}

func (r *PostgresBookingRepository) List(ctx context.Context) ([]*BookingReadModel, error) {
	return r.query(ctx, `
		SELECT id, user_id, status, start_date, end_date, items, notes, version, last_event_at
		FROM booking_read_models ORDER BY start_date, id`)
}

func (r *PostgresBookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*BookingReadModel, error) {
	return r.query(ctx, `
		SELECT id, user_id, status, start_date, end_date, items, notes, version, last_event_at
		FROM booking_read_models WHERE user_id = $1 ORDER BY start_date, id`, userID)
}

func (r *PostgresBookingRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]*BookingReadModel, error) {
	// Half-open interval overlap: [start_date, end_date) meets [start, end).
	return r.query(ctx, `
		SELECT id, user_id, status, start_date, end_date, items, notes, version, last_event_at
		FROM booking_read_models
		WHERE start_date < $2 AND $1 < end_date
		ORDER BY start_date, id`, start, end)
}

func (r *PostgresBookingRepository) Save(ctx context.Context, model *BookingReadModel) error {
	items, err := json.Marshal(model.Items)
	if err != nil {
		return fmt.Errorf("marshal booking items: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO booking_read_models (id, user_id, status, start_date, end_date, items, notes, version, last_event_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			items = EXCLUDED.items,
			notes = EXCLUDED.notes,
			version = EXCLUDED.version,
			last_event_at = EXCLUDED.last_event_at`,
		model.ID, model.UserID, string(model.Status), model.Start, model.End,
		items, model.Notes, model.Version, model.LastEventAt)
	if err != nil {
		return fmt.Errorf("save booking %s: %w", model.ID, err)
	}
	return nil
}

func (r *PostgresBookingRepository) query(ctx context.Context, sql string, args ...any) ([]*BookingReadModel, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]*BookingReadModel, 0)
	for rows.Next() {
		model, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.Row) (*BookingReadModel, error) {
	var (
		model  BookingReadModel
		status string
		items  []byte
	)
	if err := row.Scan(&model.ID, &model.UserID, &status, &model.Start, &model.End,
		&items, &model.Notes, &model.Version, &model.LastEventAt); err != nil {
		return nil, err
	}
	model.Status = booking.Status(status)
	if err := json.Unmarshal(items, &model.Items); err != nil {
		return nil, fmt.Errorf("unmarshal booking items: %w", err)
	}
	return &model, nil
}

// PostgresAccommodationRepository stores accommodation read models in
// PostgreSQL.
type PostgresAccommodationRepository struct {
	pool *pgxpool.Pool
}

var _ AccommodationRepository = (*PostgresAccommodationRepository)(nil)

// NewPostgresAccommodationRepository creates the repository and ensures its
// table exists.
func NewPostgresAccommodationRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresAccommodationRepository, error) {
	if _, err := pool.Exec(ctx, accommodationSchema); err != nil {
		return nil, fmt.Errorf("create accommodation read model schema: %w", err)
	}
	return &PostgresAccommodationRepository{pool: pool}, nil
}

func (r *PostgresAccommodationRepository) Get(ctx context.Context, id uuid.UUID) (*AccommodationReadModel, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, type, max_capacity, is_active, version, last_event_at
		FROM accommodation_read_models WHERE id = $1`, id)

	model, err := scanAccommodation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("accommodation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get accommodation %s: %w", id, err)
	}
	return model, nil
}

func (r *PostgresAccommodationRepository) List(ctx context.Context) ([]*AccommodationReadModel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, type, max_capacity, is_active, version, last_event_at
		FROM accommodation_read_models ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query accommodations: %w", err)
	}
	defer rows.Close()

	out := make([]*AccommodationReadModel, 0)
	for rows.Next() {
		model, err := scanAccommodation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan accommodation: %w", err)
		}
		out = append(out, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accommodations: %w", err)
	}
	return out, nil
}

func (r *PostgresAccommodationRepository) Save(ctx context.Context, model *AccommodationReadModel) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accommodation_read_models (id, name, type, max_capacity, is_active, version, last_event_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			max_capacity = EXCLUDED.max_capacity,
			is_active = EXCLUDED.is_active,
			version = EXCLUDED.version,
			last_event_at = EXCLUDED.last_event_at`,
		model.ID, model.Name, string(model.Type), model.MaxCapacity,
		model.IsActive, model.Version, model.LastEventAt)
	if err != nil {
		return fmt.Errorf("save accommodation %s: %w", model.ID, err)
	}
	return nil
}

func scanAccommodation(row pgx.Row) (*AccommodationReadModel, error) {
	var (
		model AccommodationReadModel
		kind  string
	)
	if err := row.Scan(&model.ID, &model.Name, &kind, &model.MaxCapacity,
		&model.IsActive, &model.Version, &model.LastEventAt); err != nil {
		return nil, err
	}
	model.Type = accommodation.Type(kind)
	return &model, nil
}
