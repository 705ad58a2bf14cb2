package notification

import (
	"context"
	"errors"
	"fmt"

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

const notificationCols = `id, attendant_id, type, title, message, read, created_at`

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO notifications (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, notificationCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		n.ID, n.AttendantID, n.Type, n.Title, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationCols)

	var n Notification
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&n.ID, &n.AttendantID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	return &n, nil
}

func (r *repoPG) ListByAttendant(ctx context.Context, attendantID uuid.UUID, maxAgeDays int) ([]*Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE attendant_id = $1
		  AND created_at > now() - ($2 * interval '1 day')
		ORDER BY created_at DESC`, notificationCols)

	rows, err := r.conn(ctx).Query(ctx, query, attendantID, maxAgeDays)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(&n.ID, &n.AttendantID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) MarkAllRead(ctx context.Context, attendantID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET read = true WHERE attendant_id = $1 AND read = false`, attendantID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
