package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, provider_id, date, time, client_name, reserved_at, is_confirmed`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func pgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func pgTime(t civil.Time) pgtype.Time {
	return pgtype.Time{Microseconds: sinceMidnight(t).Microseconds(), Valid: true}
}

func fromPgTime(t pgtype.Time) civil.Time {
	return timeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider

	err := row.Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	var date pgtype.Date
	var start, end pgtype.Time

	err := row.Scan(&w.ID, &w.ProviderID, &date, &start, &end, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	w.Date = civil.DateOf(date.Time)
	w.StartTime = fromPgTime(start)
	w.EndTime = fromPgTime(end)
	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date pgtype.Date
	var slot pgtype.Time
	var clientName *string

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&date,
		&slot,
		&clientName,
		&a.ReservedAt,
		&a.IsConfirmed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = civil.DateOf(date.Time)
	a.Time = fromPgTime(slot)
	a.ClientName = clientName
	return &a, nil
}

// Interface methods

func (r *PgRepository) CreateProvider(ctx context.Context, name string) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO providers (id, name, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, created_at
	`, uuid.New(), name)
	return scanProvider(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, created_at
		FROM providers
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

// DeleteProvider relies on ON DELETE CASCADE for windows and appointments.
func (r *PgRepository) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (r *PgRepository) CreateAvailabilityWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows (id, provider_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, provider_id, date, start_time, end_time, created_at
	`, uuid.New(), w.ProviderID, pgDate(w.Date), pgTime(w.StartTime), pgTime(w.EndTime))

	created, err := scanWindow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("insert availability window: %w", err)
	}
	return created, nil
}

func (r *PgRepository) FindAvailabilityWindow(ctx context.Context, providerID uuid.UUID, date civil.Date) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, date, start_time, end_time, created_at
		FROM availability_windows
		WHERE provider_id = $1 AND date = $2
		ORDER BY created_at, id
		LIMIT 1
	`, providerID, pgDate(date))

	w, err := scanWindow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *PgRepository) ListConfirmedAppointmentTimes(ctx context.Context, providerID uuid.UUID, date civil.Date) ([]civil.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT time
		FROM appointments
		WHERE provider_id = $1
		  AND date = $2
		  AND is_confirmed
		ORDER BY time
	`, providerID, pgDate(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []civil.Time
	for rows.Next() {
		var t pgtype.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, fromPgTime(t))
	}

	return result, rows.Err()
}

func (r *PgRepository) CreatePendingAppointment(ctx context.Context, req ReservationRequest, reservedAt time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, provider_id, date, time, client_name, reserved_at, is_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		RETURNING `+appointmentColumns,
		uuid.New(), req.ProviderID, pgDate(req.Date), pgTime(req.Time), req.ClientName, reservedAt)

	a, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// ConfirmAppointment flips is_confirmed only while the row is still pending.
// A concurrent confirmation of the same slot trips the partial unique index.
func (r *PgRepository) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET is_confirmed = true
		WHERE id = $1
		  AND NOT is_confirmed
		RETURNING `+appointmentColumns,
		id)

	a, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) FindExpiredPending(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE NOT a.is_confirmed
		  AND a.reserved_at < $1
		  AND NOT EXISTS (
		    SELECT 1 FROM event_logs e
		    WHERE e.appointment_id = a.id
		      AND e.event_type = $2
		  )
		ORDER BY a.reserved_at
	`, cutoff, EventAppointmentExpired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
