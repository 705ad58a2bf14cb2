package patient

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

const patientCols = `id, name, phone, cpf, email, unit, sector_id, attendant_id,
	status, queue_entered_at, last_message, version, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	query := fmt.Sprintf(`
		INSERT INTO patients (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, patientCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		p.ID, p.Name, p.Phone, p.CPF, p.Email, p.Unit, p.SectorID, p.AttendantID,
		p.Status, p.QueueEnteredAt, p.LastMessage, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *repoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE phone = $1`, patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, query, phone))
}

func (r *repoPG) Update(ctx context.Context, p *Patient, expectedVersion int) error {
	query := `
		UPDATE patients
		SET name = $2, phone = $3, cpf = $4, email = $5, unit = $6,
		    sector_id = $7, attendant_id = $8, status = $9,
		    queue_entered_at = $10, last_message = $11,
		    version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $13`

	tag, err := r.conn(ctx).Exec(ctx, query,
		p.ID, p.Name, p.Phone, p.CPF, p.Email, p.Unit,
		p.SectorID, p.AttendantID, p.Status,
		p.QueueEnteredAt, p.LastMessage, p.UpdatedAt, expectedVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a stale version.
		if _, err := r.GetByID(ctx, p.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	p.Version = expectedVersion + 1
	return nil
}

func (r *repoPG) UpdatePreview(ctx context.Context, id uuid.UUID, preview string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET last_message = $2, updated_at = $3 WHERE id = $1`,
		id, preview, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update patient preview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter) ([]*Patient, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	if filter.Status != "" {
		n++
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
	}
	if filter.SectorID != nil {
		n++
		where += fmt.Sprintf(" AND sector_id = $%d", n)
		args = append(args, *filter.SectorID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM patients%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientCols, where, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) ListQueued(ctx context.Context) ([]*Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM patients
		WHERE status = $1
		ORDER BY queue_entered_at`, patientCols)

	rows, err := r.conn(ctx).Query(ctx, query, StatusQueued)
	if err != nil {
		return nil, fmt.Errorf("list queued patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.CPF, &p.Email, &p.Unit,
		&p.SectorID, &p.AttendantID, &p.Status, &p.QueueEnteredAt,
		&p.LastMessage, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
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
