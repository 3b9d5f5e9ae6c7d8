package sqlsession

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Transaction is a transaction started on a Session.  Commands run on the
// session while the transaction is active are part of the transaction.
//
// A transaction must be closed when no longer required.  Closing a
// transaction which has not been committed rolls it back.  Closing the
// transaction frees the session to begin another.
type Transaction struct {
	tx        *sqlx.Tx
	log       componentLogger
	onClose   func()
	completed bool
	closed    bool
}

func (t *Transaction) ensureActive() error {
	if t.closed || t.completed {
		return ObjectDisposedError{"transaction"}
	}
	return nil
}

// Commit commits the transaction.
//
// An ObjectDisposedError is returned if the transaction has been closed,
// committed or rolled back.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.ensureActive(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// a commit that fails still completes the transaction
	t.completed = true
	if err := t.tx.Commit(); err != nil {
		return err
	}

	t.log.debug("transaction committed")
	return nil
}

// Rollback rolls back the transaction.
//
// An ObjectDisposedError is returned if the transaction has been closed,
// committed or rolled back.
func (t *Transaction) Rollback(ctx context.Context) error {
	if err := t.ensureActive(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.completed = true
	if err := t.tx.Rollback(); err != nil {
		return err
	}

	t.log.debug("transaction rolled back")
	return nil
}

// Statement returns a transaction-specific prepared statement from an
// existing statement.  The returned statement is closed by the
// transaction when it completes.
func (t *Transaction) Statement(ctx context.Context, stmt *sqlx.Stmt) (*sqlx.Stmt, error) {
	if err := t.ensureActive(); err != nil {
		return nil, err
	}
	return t.tx.StmtxContext(ctx, stmt), nil
}

// Close ends the transaction, rolling it back if it has been neither
// committed nor rolled back, and notifies the session that started it.
// Close is idempotent.
func (t *Transaction) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var err error
	if !t.completed {
		t.completed = true
		if err = t.tx.Rollback(); errors.Is(err, sql.ErrTxDone) {
			err = nil
		}
		t.log.debug("uncommitted transaction rolled back on close")
	}

	if t.onClose != nil {
		t.onClose()
	}
	return err
}
