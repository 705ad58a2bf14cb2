package dashboard

import (
	"context"
	"fmt"
	"time"

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

func (r *repoPG) CountPatientsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM patients WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count patients by status: %w", err)
	}
	return count, nil
}

func (r *repoPG) CountFinishedOn(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT count(*) FROM patients
		WHERE status = 'finalizado'
		  AND updated_at >= $1 AND updated_at < $1 + interval '1 day'`,
		dayStart(day)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count finished patients: %w", err)
	}
	return count, nil
}

func (r *repoPG) AvgHandleSeconds(ctx context.Context, day time.Time) (float64, error) {
	var avg float64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT coalesce(avg(duration_seconds), 0) FROM calls
		WHERE status = 'atendida'
		  AND started_at >= $1 AND started_at < $1 + interval '1 day'`,
		dayStart(day)).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("avg handle seconds: %w", err)
	}
	return avg, nil
}

func (r *repoPG) AvgQueueWaitMinutes(ctx context.Context, now time.Time) (float64, error) {
	var avg float64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT coalesce(avg(extract(epoch FROM ($1 - queue_entered_at)) / 60), 0)
		FROM patients
		WHERE status = 'fila' AND queue_entered_at IS NOT NULL`,
		now).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("avg queue wait: %w", err)
	}
	return avg, nil
}

func (r *repoPG) CallsByStatus(ctx context.Context, day time.Time) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, count(*) FROM calls
		WHERE started_at >= $1 AND started_at < $1 + interval '1 day'
		  AND status <> ''
		GROUP BY status`,
		dayStart(day))
	if err != nil {
		return nil, fmt.Errorf("calls by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan calls by status: %w", err)
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (r *repoPG) PatientsBySector(ctx context.Context) ([]SectorCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.name, count(p.id)
		FROM sectors s
		LEFT JOIN patients p ON p.sector_id = s.id
		GROUP BY s.id, s.name
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("patients by sector: %w", err)
	}
	defer rows.Close()

	var out []SectorCount
	for rows.Next() {
		var sc SectorCount
		if err := rows.Scan(&sc.SectorID, &sc.Name, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan patients by sector: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
