package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// DBConnKey carries a request-scoped *pgxpool.Conn.
	DBConnKey contextKey = "db_conn"

	// TxKey carries an in-flight transaction. Repositories route their
	// queries through it when present so multi-statement operations
	// commit or roll back atomically.
	TxKey contextKey = "db_tx"
)

// ErrNoConnection indicates the context carries neither a connection nor
// a transaction to begin one on.
var ErrNoConnection = errors.New("no database connection in context")

// WithConn returns a context carrying the given connection.
func WithConn(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, DBConnKey, conn)
}

// ConnFromContext retrieves the request-scoped database connection from
// context, or nil if none was set.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext retrieves the in-flight transaction from context, or nil
// if the caller is not inside a transaction.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on the context's connection and returns a
// derived context carrying it. The caller owns the transaction lifecycle:
// Commit or Rollback must be called on the returned pgx.Tx.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, ErrNoConnection
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return context.WithValue(ctx, TxKey, tx), tx, nil
}

// RunInTx executes fn inside a transaction started on the pool. The
// transaction is committed when fn returns nil and rolled back otherwise.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, TxKey, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
