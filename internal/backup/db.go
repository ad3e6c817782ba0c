package backup

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the storage engine surface the subsystem consumes: parameterized
// exec and queries. Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is a storage transaction. pgx.Tx satisfies it.
type Tx interface {
	DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner opens transactions. The coordinator depends on this seam rather
// than on a concrete pool so import runs are testable against a fake store.
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// PoolBeginner adapts a pgx connection pool to TxBeginner.
type PoolBeginner struct {
	Pool *pgxpool.Pool
}

func (b PoolBeginner) Begin(ctx context.Context) (Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// constraintGuard toggles deferred constraint checking inside one
// transaction. restore is safe to call repeatedly and must run before commit
// even when the import fails mid-section.
type constraintGuard struct {
	tx      DBTX
	relaxed bool
}

func (g *constraintGuard) relax(ctx context.Context) error {
	if g.relaxed {
		return nil
	}
	if _, err := g.tx.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED"); err != nil {
		return err
	}
	g.relaxed = true
	return nil
}

func (g *constraintGuard) restore(ctx context.Context) error {
	if !g.relaxed {
		return nil
	}
	if _, err := g.tx.Exec(ctx, "SET CONSTRAINTS ALL IMMEDIATE"); err != nil {
		return err
	}
	g.relaxed = false
	return nil
}
