package pgsql

import (
	"context"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is satisfied by both *pgxpool.Pool and pgx.Tx, letting repository
// methods run against either a bare pool connection or an enlisting
// transaction without duplicating query code.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// ctxTxKey is the context key RunInTx enlists its transaction under.
type ctxTxKey struct{}

// BaseRepository provides the connection pool and transaction helpers every
// pgsql repository embeds. It does not cache a transaction on the struct
// itself — repositories are long-lived and shared across concurrent
// requests, so the current transaction is always threaded explicitly,
// either through WithTx's callback or via RunInTx's context enlistment,
// rather than stored as mutable shared state.
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// executor returns the transaction enlisted on ctx by RunInTx, or the bare
// pool if ctx carries none, so a repository method runs unmodified whether
// it is called standalone or as one step of a caller-managed transaction.
func (r *BaseRepository) executor(ctx context.Context) DB {
	if tx, ok := ctx.Value(ctxTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.Pool
}

// WithTx runs fn inside a new transaction, committing on success and
// rolling back on error or panic.
func (r *BaseRepository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return apperrors.Internal("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Internal("failed to commit transaction", err)
	}
	return nil
}

// RunInTx begins a transaction and enlists it on the context passed to fn,
// so every repository call fn makes through that context — regardless of
// which repository struct it belongs to — joins the same transaction. A
// context that already carries an enlisted transaction is passed through
// unchanged, so RunInTx nests without opening a second transaction.
func (r *BaseRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(ctxTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return apperrors.Internal("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	txCtx := context.WithValue(ctx, ctxTxKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Internal("failed to commit transaction", err)
	}
	return nil
}
