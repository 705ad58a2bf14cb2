package sector

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

const sectorCols = `id, name, color, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, s *Sector) error {
	query := fmt.Sprintf(`
		INSERT INTO sectors (%s)
		VALUES ($1, $2, $3, $4, $5, $6)`, sectorCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		s.ID, s.Name, s.Color, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert sector: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Sector, error) {
	query := fmt.Sprintf(`SELECT %s FROM sectors WHERE id = $1`, sectorCols)
	return scanSector(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *repoPG) Update(ctx context.Context, s *Sector) error {
	query := `
		UPDATE sectors
		SET name = $2, color = $3, active = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.conn(ctx).Exec(ctx, query,
		s.ID, s.Name, s.Color, s.Active, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update sector: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM sectors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sector: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Sector, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM sectors`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sectors: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM sectors
		ORDER BY name
		LIMIT $1 OFFSET $2`, sectorCols)

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()

	var sectors []*Sector
	for rows.Next() {
		s, err := scanSector(rows)
		if err != nil {
			return nil, 0, err
		}
		sectors = append(sectors, s)
	}
	return sectors, total, rows.Err()
}

func scanSector(row pgx.Row) (*Sector, error) {
	var s Sector
	err := row.Scan(&s.ID, &s.Name, &s.Color, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan sector: %w", err)
	}
	return &s, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
