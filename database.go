package sqlsession

import (
	"context"
	"database/sql"
	"errors"
	"runtime/debug"
	"time"

	"github.com/jmoiron/sqlx"
)

var PingTimeout = 500 * time.Millisecond

// Database is a factory for sessions.  It owns the pool from which
// sessions obtain their connections (unless configured with a connection
// factory) and the options shared by those sessions.
//
// A Database is safe for concurrent use.
type Database struct {
	db          *sqlx.DB
	ownsDb      bool
	pingTimeout time.Duration
	connectors  []Connector         // configured connectors
	mru         int                 // the index of the most recently used (successfully connected) connector
	configure   func(*sql.DB) error // applied to the pool once opened
	open        func(string, string) (*sqlx.DB, error)
	factory     ConnectionFactory
	options     Options
	log         componentLogger
}

// New initialises a new Database.
//
// The database is configured with exactly one source of connections:
// a database handle (WithDb), one or more connectors (WithConnector(s))
// or a connection factory (WithConnectionFactory).
//
// When configured with connectors a pool is opened using the first
// connector that successfully connects.
func New(ctx context.Context, cfg ...ConfigurationFunc) (*Database, error) {
	d := &Database{
		mru:     -1,
		open:    sqlx.Open,
		options: DefaultOptions(),
	}

	// apply supplied configuration functions
	for _, cfg := range cfg {
		if err := cfg(d); err != nil {
			return nil, ConfigurationError{err}
		}
	}
	d.log = d.options.logger(componentDatabase)

	switch {
	case d.factory != nil:
		return d, nil
	case len(d.connectors) > 0:
		if err := d.connect(ctx); err != nil {
			return nil, err
		}
		d.ownsDb = true
	case d.db == nil:
		return nil, ConfigurationError{ErrNoConnectorsConfigured}
	default:
		if err := d.Ping(ctx); err != nil {
			return nil, err
		}
	}

	d.factory = d.db.Connx
	return d, nil
}

// connect attempts to open a pool using the configured connectors,
// starting with the connector following the most recently connected connector
// or the first connector if no connection has yet been made.
//
// All connectors will be tried until a connection is established or all
// connectors have been tried.
//
// If no connection can be established then a ConnectionFailedError is returned,
// wrapping the errors from each failed connection attempt.
func (d *Database) connect(ctx context.Context) error {
	curr := d.mru
	ix := curr

	errs := make([]error, 0, len(d.connectors))
	for i := 0; i < len(d.connectors); i++ {
		ix = (ix + 1) % len(d.connectors)
		cnc := d.connectors[ix]

		db, err := d.open(cnc.Driver(), cnc.ConnectionString())
		if err != nil {
			errs = append(errs, ConnectionError{cnc, "open db", err})
			continue
		}

		if err := d.ping(ctx, db); err != nil {
			_ = db.Close()
			errs = append(errs, ConnectionError{cnc, "ping", err})
			d.log.warn(err, "connector failed", "connector", cnc)
			continue
		}

		d.db = db
		d.mru = ix
		break
	}

	if d.mru == curr {
		return ConnectionFailedError{errors.Join(errs...)}
	}

	if d.configure != nil {
		if err := d.configure(d.db.DB); err != nil {
			_ = d.db.Close()
			d.db = nil
			d.mru = curr
			return ConfigurationError{err}
		}
	}

	return nil
}

func (d *Database) ping(ctx context.Context, db *sqlx.DB) error {
	t := d.pingTimeout
	if t == 0 {
		t = PingTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, t)
	defer cancel()

	return db.PingContext(ctx)
}

// Ping verifies that the pool of the database is alive.  The Ping honors
// any configured ping timeout on the Database.  If not set, the
// PingTimeout set at the package level is applied.
//
// A database configured with a connection factory has no pool; Ping
// returns nil.
func (d *Database) Ping(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	return d.ping(ctx, d.db)
}

// Options returns the options shared by the sessions of the database.
func (d *Database) Options() Options {
	return d.options
}

// DB returns the pool of the database, or nil if the database is
// configured with a connection factory.
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// NewSession returns a new session which has not yet connected.  The
// session connects when first used.
func (d *Database) NewSession() *Session {
	return &Session{
		options: d.options,
		factory: d.factory,
		log:     d.options.logger(componentSession),
	}
}

// Connect returns a new, connected session.
//
// If the session cannot connect it is closed and the error returned
// unchanged.
func (d *Database) Connect(ctx context.Context) (*Session, error) {
	d.log.debug("starting a new database session")

	s := d.NewSession()
	if err := s.Connect(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d.log.info("database session started")

	return s, nil
}

// Close closes the pool of the database if it was opened using the
// configured connectors.  A pool supplied using WithDb is not closed.
func (d *Database) Close() error {
	if !d.ownsDb || d.db == nil {
		return nil
	}
	db := d.db
	d.db = nil
	return db.Close()
}

// Transact connects a new session, starts a transaction with the
// specified isolation level and calls the supplied function with the
// session.  Any commands run on the session by the function are part of
// the transaction.
//
// The transaction is committed if the function returns nil and rolled
// back if it returns an error or panics.  The session is closed before
// Transact returns.
//
// If the function panics or returns an error or if any transaction
// control operation fails (connect, begin, commit, rollback) then a
// TransactionError is returned, wrapping the error that occurred.
func (d *Database) Transact(ctx context.Context, name string, op func(*Session) error, level sql.IsolationLevel) (err error) {
	s, err := d.Connect(ctx)
	if err != nil {
		return TransactionError{name, "connect", err}
	}
	defer func() { _ = s.Close() }()

	tx, err := s.BeginTransaction(ctx, level)
	if err != nil {
		return TransactionError{name, "begin", err}
	}

	// set a flag to indicate that we should rollback at exit and defer a call
	// which will rollback the transaction if the flag is still set
	rollback := true
	defer func() {
		if r := recover(); r != nil {
			err = TransactionError{name, "panic", errors.New(string(debug.Stack()))}
			d.log.error(err, "transaction panicked", "transaction", name)
		}
		if !rollback {
			return
		}
		if txerr := tx.Close(); txerr != nil {
			err = errors.Join(err, TransactionError{name, "rollback", txerr})
		}
	}()

	if err = op(s); err != nil {
		return TransactionError{txn: name, error: err}
	}

	// we successfully completed the transaction; whatever happens now
	// the transaction will either be commited or will fail to commit and be
	// rolled back.  Either way, we should no longer rollback at exit
	rollback = false
	defer func() { _ = tx.Close() }()

	if err = tx.Commit(ctx); err != nil {
		return TransactionError{name, "commit", err}
	}

	return nil
}
