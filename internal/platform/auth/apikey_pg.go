package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connectsaude/connect/internal/platform/db"
)

type apiKeyStorePG struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStorePG creates a Postgres-backed APIKeyStore.
func NewAPIKeyStorePG(pool *pgxpool.Pool) APIKeyStore {
	return &apiKeyStorePG{pool: pool}
}

func (s *apiKeyStorePG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

const apiKeyCols = `id, name, key_hash, key_prefix, rate_limit, status, created_at, revoked_at, last_used_at`

func (s *apiKeyStorePG) CreateKey(ctx context.Context, key *APIKey) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO api_keys (id, name, key_hash, key_prefix, rate_limit, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.RateLimit, key.Status, key.CreatedAt,
	)
	return err
}

func (s *apiKeyStorePG) GetByID(ctx context.Context, id string) (*APIKey, error) {
	return scanAPIKey(s.conn(ctx).QueryRow(ctx, `SELECT `+apiKeyCols+` FROM api_keys WHERE id = $1`, id))
}

func (s *apiKeyStorePG) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	return scanAPIKey(s.conn(ctx).QueryRow(ctx, `SELECT `+apiKeyCols+` FROM api_keys WHERE key_hash = $1`, hash))
}

func (s *apiKeyStorePG) ListKeys(ctx context.Context, limit, offset int) ([]*APIKey, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+apiKeyCols+` FROM api_keys ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.RateLimit,
			&k.Status, &k.CreatedAt, &k.RevokedAt, &k.LastUsedAt); err != nil {
			return nil, 0, err
		}
		keys = append(keys, &k)
	}
	return keys, total, nil
}

func (s *apiKeyStorePG) UpdateKey(ctx context.Context, key *APIKey) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE api_keys SET
			name=$2, key_hash=$3, key_prefix=$4, rate_limit=$5, status=$6, revoked_at=$7, last_used_at=$8
		WHERE id = $1`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.RateLimit, key.Status, key.RevokedAt, key.LastUsedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *apiKeyStorePG) DeleteKey(ctx context.Context, id string) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.RateLimit,
		&k.Status, &k.CreatedAt, &k.RevokedAt, &k.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &k, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
