package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connectsaude/connect/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepositoryPG returns a Repository backed by PostgreSQL.
func NewRepositoryPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if conn := db.ConnFromContext(ctx); conn != nil {
		return conn
	}
	return r.pool
}

const callCols = `id, patient_id, attendant_id, direction, status, duration_seconds, started_at, ended_at`

func (r *repoPG) Create(ctx context.Context, c *Call) error {
	query := fmt.Sprintf(`
		INSERT INTO calls (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, callCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		c.ID, c.PatientID, c.AttendantID, c.Direction, c.Status,
		c.DurationSeconds, c.StartedAt, c.EndedAt)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Call, error) {
	query := fmt.Sprintf(`SELECT %s FROM calls WHERE id = $1`, callCols)
	return scanCall(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *repoPG) Update(ctx context.Context, c *Call) error {
	query := `
		UPDATE calls
		SET status = $2, duration_seconds = $3, ended_at = $4
		WHERE id = $1`

	tag, err := r.conn(ctx).Exec(ctx, query, c.ID, c.Status, c.DurationSeconds, c.EndedAt)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter) ([]*Call, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	if filter.AttendantID != nil {
		n++
		where += fmt.Sprintf(" AND attendant_id = $%d", n)
		args = append(args, *filter.AttendantID)
	}
	if filter.PatientID != nil {
		n++
		where += fmt.Sprintf(" AND patient_id = $%d", n)
		args = append(args, *filter.PatientID)
	}
	if filter.Day != nil {
		n++
		where += fmt.Sprintf(" AND started_at >= $%d AND started_at < $%d + interval '1 day'", n, n)
		args = append(args, dayStart(*filter.Day))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM calls`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count calls: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM calls%s ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		callCols, where, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, 0, err
		}
		calls = append(calls, c)
	}
	return calls, total, rows.Err()
}

func (r *repoPG) ListByDay(ctx context.Context, day time.Time) ([]*Call, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM calls
		WHERE started_at >= $1 AND started_at < $1 + interval '1 day'
		ORDER BY started_at`, callCols)

	rows, err := r.conn(ctx).Query(ctx, query, dayStart(day))
	if err != nil {
		return nil, fmt.Errorf("list calls by day: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scanCall(row pgx.Row) (*Call, error) {
	var c Call
	err := row.Scan(&c.ID, &c.PatientID, &c.AttendantID, &c.Direction, &c.Status,
		&c.DurationSeconds, &c.StartedAt, &c.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan call: %w", err)
	}
	return &c, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
