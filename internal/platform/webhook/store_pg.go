package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connectsaude/connect/internal/platform/db"
)

type storePG struct {
	pool *pgxpool.Pool
}

// NewStorePG creates a Postgres-backed Store.
func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *storePG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

const endpointCols = `id, url, secret, events, status, failure_count, created_at`

func (s *storePG) CreateEndpoint(ctx context.Context, ep *Endpoint) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO webhook_endpoints (id, url, secret, events, status, failure_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ep.ID, ep.URL, ep.Secret, ep.Events, ep.Status, ep.FailureCount, ep.CreatedAt,
	)
	return err
}

func (s *storePG) GetEndpoint(ctx context.Context, id string) (*Endpoint, error) {
	var ep Endpoint
	err := s.conn(ctx).QueryRow(ctx, `SELECT `+endpointCols+` FROM webhook_endpoints WHERE id = $1`, id).
		Scan(&ep.ID, &ep.URL, &ep.Secret, &ep.Events, &ep.Status, &ep.FailureCount, &ep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEndpointNotFound
		}
		return nil, err
	}
	return &ep, nil
}

func (s *storePG) ListEndpoints(ctx context.Context, limit, offset int) ([]*Endpoint, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM webhook_endpoints`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+endpointCols+` FROM webhook_endpoints ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var endpoints []*Endpoint
	for rows.Next() {
		var ep Endpoint
		if err := rows.Scan(&ep.ID, &ep.URL, &ep.Secret, &ep.Events, &ep.Status, &ep.FailureCount, &ep.CreatedAt); err != nil {
			return nil, 0, err
		}
		endpoints = append(endpoints, &ep)
	}
	return endpoints, total, nil
}

func (s *storePG) UpdateEndpoint(ctx context.Context, ep *Endpoint) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE webhook_endpoints SET url=$2, secret=$3, events=$4, status=$5, failure_count=$6
		WHERE id = $1`,
		ep.ID, ep.URL, ep.Secret, ep.Events, ep.Status, ep.FailureCount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEndpointNotFound
	}
	return nil
}

func (s *storePG) DeleteEndpoint(ctx context.Context, id string) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM webhook_endpoints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEndpointNotFound
	}
	return nil
}

const deliveryCols = `id, endpoint_id, evento, payload, signature, status_code, response_body, duration_ns, attempt, status, error, created_at`

func (s *storePG) RecordDelivery(ctx context.Context, d *Delivery) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO webhook_deliveries (id, endpoint_id, evento, payload, signature, status_code, response_body, duration_ns, attempt, status, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			status_code=EXCLUDED.status_code, response_body=EXCLUDED.response_body,
			duration_ns=EXCLUDED.duration_ns, attempt=EXCLUDED.attempt,
			status=EXCLUDED.status, error=EXCLUDED.error`,
		d.ID, d.EndpointID, d.Evento, d.Payload, d.Signature, d.StatusCode,
		d.ResponseBody, d.Duration.Nanoseconds(), d.Attempt, d.Status, d.Error, d.CreatedAt,
	)
	return err
}

func (s *storePG) ListDeliveries(ctx context.Context, endpointID string, limit, offset int) ([]*Delivery, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM webhook_deliveries WHERE endpoint_id = $1`, endpointID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+deliveryCols+` FROM webhook_deliveries WHERE endpoint_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, endpointID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var deliveries []*Delivery
	for rows.Next() {
		d, err := scanDeliveryRows(rows)
		if err != nil {
			return nil, 0, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, total, nil
}

func (s *storePG) GetDelivery(ctx context.Context, id string) (*Delivery, error) {
	var d Delivery
	var durationNs int64
	err := s.conn(ctx).QueryRow(ctx, `SELECT `+deliveryCols+` FROM webhook_deliveries WHERE id = $1`, id).
		Scan(&d.ID, &d.EndpointID, &d.Evento, &d.Payload, &d.Signature, &d.StatusCode,
			&d.ResponseBody, &durationNs, &d.Attempt, &d.Status, &d.Error, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	d.Duration = time.Duration(durationNs)
	return &d, nil
}

func scanDeliveryRows(rows pgx.Rows) (*Delivery, error) {
	var d Delivery
	var durationNs int64
	err := rows.Scan(&d.ID, &d.EndpointID, &d.Evento, &d.Payload, &d.Signature, &d.StatusCode,
		&d.ResponseBody, &durationNs, &d.Attempt, &d.Status, &d.Error, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Duration = time.Duration(durationNs)
	return &d, nil
}
