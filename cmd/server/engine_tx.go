package main

import (
	"context"
	"database/sql"
	"time"

	"complyflow/internal/engine"
	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

const defaultEngineTxTimeout = 5 * time.Second

// enginePostgresTx runs an engine unit of work inside one SQL transaction.
// The transaction travels in the context; the stores resolve their executor
// from it, so item, assignment, and history writes commit or roll back
// together.
type enginePostgresTx struct {
	db      *sql.DB
	stores  engine.Stores
	timeout time.Duration
}

func newEnginePostgresTx(db *sql.DB, stores engine.Stores) *enginePostgresTx {
	return &enginePostgresTx{db: db, stores: stores}
}

func (t *enginePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores engine.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultEngineTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to commit transaction")
	}
	return nil
}
