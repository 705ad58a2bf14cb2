package attendant

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

const attendantCols = `id, name, email, password_hash, role, sector_id, status, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Attendant) error {
	query := fmt.Sprintf(`
		INSERT INTO attendants (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, attendantCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Role, a.SectorID, a.Status,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert attendant: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Attendant, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendants WHERE id = $1`, attendantCols)
	return scanAttendant(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Attendant, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendants WHERE lower(email) = lower($1)`, attendantCols)
	return scanAttendant(r.conn(ctx).QueryRow(ctx, query, email))
}

func (r *repoPG) Update(ctx context.Context, a *Attendant) error {
	query := `
		UPDATE attendants
		SET name = $2, email = $3, password_hash = $4, role = $5,
		    sector_id = $6, status = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.conn(ctx).Exec(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Role, a.SectorID, a.Status, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update attendant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE attendants SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM attendants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Attendant, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM attendants`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM attendants
		ORDER BY name
		LIMIT $1 OFFSET $2`, attendantCols)

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendants: %w", err)
	}
	defer rows.Close()

	var attendants []*Attendant
	for rows.Next() {
		a, err := scanAttendant(rows)
		if err != nil {
			return nil, 0, err
		}
		attendants = append(attendants, a)
	}
	return attendants, total, rows.Err()
}

func scanAttendant(row pgx.Row) (*Attendant, error) {
	var a Attendant
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role,
		&a.SectorID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan attendant: %w", err)
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
