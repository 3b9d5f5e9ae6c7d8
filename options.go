package sqlsession

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// ConnectionFactory returns a dedicated connection for a session.  It is
// called at most once in the lifetime of a session, when the session first
// needs a connection.
type ConnectionFactory func(context.Context) (*sqlx.Conn, error)

// ConnectionObserver is notified each time a session obtains a connection,
// before the connection is used.  Any error returned aborts the connect.
type ConnectionObserver interface {
	ConnectionOpened(context.Context, *sqlx.Conn) error
}

// ConnectionObserverFunc adapts a function to the ConnectionObserver
// interface.
type ConnectionObserverFunc func(context.Context, *sqlx.Conn) error

// ConnectionOpened calls fn(ctx, conn).
func (fn ConnectionObserverFunc) ConnectionOpened(ctx context.Context, conn *sqlx.Conn) error {
	return fn(ctx, conn)
}

// Options holds the settings shared by every session created by a Database.
type Options struct {
	// DefaultTimeout is applied to any command that does not specify a
	// timeout.  Zero means no timeout.
	DefaultTimeout time.Duration

	// DefaultIsolationLevel is used when a transaction is started with
	// sql.LevelDefault.
	DefaultIsolationLevel sql.IsolationLevel

	// OnConnectionOpened, if not nil, is notified when a session obtains
	// its connection.
	OnConnectionOpened ConnectionObserver

	// Logger receives log entries; never nil.
	Logger Logger
}

// DefaultOptions returns the options used by a Database unless configured
// otherwise.
func DefaultOptions() Options {
	return Options{
		DefaultIsolationLevel: sql.LevelReadCommitted,
		Logger:                NullLogger,
	}
}

func (o Options) logger(component string) componentLogger {
	l := o.Logger
	if l == nil {
		l = NullLogger
	}
	return componentLogger{l, component}
}
