package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

type (
	// advisoryLocker takes a Postgres transaction-level advisory lock per scope key.
	advisoryLocker struct{}

	// txLocker relies on SQLite transactions holding the database write lock from their first statement.
	// RunInTx begins plain transactions: the lock is taken at BEGIN only because database.Open sets
	// _txlock=immediate in the SQLite DSN (see sqliteDSN in storage/database/db.go).
	txLocker struct{}
)

var (
	_ core.ScopeLocker = (*advisoryLocker)(nil) // interface compliance check
	_ core.ScopeLocker = (*txLocker)(nil)
)

// NewLocker returns the scope locker of a database engine.
func NewLocker(engine string) core.ScopeLocker {
	if engine == "postgres" {
		return advisoryLocker{}
	}
	return txLocker{}
}

func (advisoryLocker) LockScope(ctx context.Context, tx core.DBExecutor, key string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return errors.Wrapf(err, "locking %q", key)
	}
	return nil
}

func (txLocker) LockScope(context.Context, core.DBExecutor, string) error { return nil }
