package sqlsession

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// arrangeSqlmockDb returns a sqlx database backed by a go-sqlmock pool
// using exact matching of query text, together with the mock.
func arrangeSqlmockDb(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, dbmock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return sqlx.NewDb(db, SqlmockConnectorDriver), dbmock
}

// arrangeSessionTest initialises a session over a sqlmock database.  The
// setup function is called with the mock to configure expectations before
// the session is returned.
//
// This helper is used in the arrange phase of tests for the methods of the
// Session type and the query functions.
func arrangeSessionTest(t *testing.T, setup func(sqlmock.Sqlmock), cfg ...ConfigurationFunc) (context.Context, *Session, sqlmock.Sqlmock) {
	t.Helper()

	ctx := context.Background()

	d, dbmock, err := NewSqlmock(ctx, cfg...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = d.DB().Close() })

	if setup != nil {
		setup(dbmock)
	}

	return ctx, d.NewSession(), dbmock
}

// arrangeTransactionTest initialises a session over a sqlmock database
// which is configured to expect a transaction to be started.  Additional
// mock expectations may be configured by passing a setup function which
// accepts the mock.
//
// After calling the setup function, a transaction is started on the
// session.  The function then returns the context, session, transaction
// and the mock.
func arrangeTransactionTest(t *testing.T, setup func(sqlmock.Sqlmock)) (context.Context, *Session, *Transaction, sqlmock.Sqlmock) {
	t.Helper()

	ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
		m.ExpectBegin()
		if setup != nil {
			setup(m)
		}
	})

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return ctx, s, tx, dbmock
}

func assertErrorIsNil(t *testing.T, err error) {
	t.Helper()
	t.Run("returns expected error", func(t *testing.T) {
		wanted := (error)(nil)
		got := err
		if wanted != got {
			t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
		}
	})
}

func assertExpectedError(t *testing.T, wanted error, got error) {
	t.Helper()
	t.Run("returns expected error", func(t *testing.T) {
		if !errors.Is(got, wanted) {
			t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
		}
	})
}

func assertExpectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	t.Run("mock expectations were met", func(t *testing.T) {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

// logEntry is a log entry captured by a spyLogger.
type logEntry struct {
	component string
	level     LogLevel
	err       error
	msg       string
	keyvals   []any
}

// spyLogger is a Logger which captures every entry at or above a minimum
// level.
type spyLogger struct {
	mu      sync.Mutex
	min     LogLevel
	entries []logEntry
}

func (l *spyLogger) Log(component string, level LogLevel, err error, msg string, keyvals ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{component, level, err, msg, keyvals})
}

func (l *spyLogger) IsEnabled(_ string, level LogLevel) bool {
	return level >= l.min
}

func (l *spyLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		result = append(result, e.msg)
	}
	return result
}
