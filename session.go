package sqlsession

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Session holds a single dedicated connection to a database and at most
// one active transaction.  The connection is obtained when it is first
// needed (or on Connect) and held until the session is closed.
//
// Any command run on a session while a transaction is active runs in
// that transaction.
//
// A Session is not safe for concurrent use.  Each unit of work should
// obtain its own session from a Database.
type Session struct {
	options Options
	factory ConnectionFactory
	log     componentLogger
	conn    *sqlx.Conn
	ready   bool // the connection observer has accepted the connection
	tx      *Transaction
	closed  bool

	// cancelled by Close, ending any commands (and their rows) still open
	done   context.Context
	cancel context.CancelFunc
}

// NewSession returns a session which will obtain its connection using the
// specified factory.  The session is not connected.
func NewSession(opts Options, factory ConnectionFactory) (*Session, error) {
	if factory == nil {
		return nil, ErrConnectionFactoryRequired
	}
	if opts.Logger == nil {
		return nil, ErrLoggerRequired
	}
	return &Session{
		options: opts,
		factory: factory,
		log:     opts.logger(componentSession),
	}, nil
}

// Connect ensures that the session has a connection.  If the session is
// already connected this is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	_, err := s.connection(ctx)
	return err
}

// connection returns the connection of the session, first obtaining it
// from the factory if necessary.
//
// The factory is called only until it returns a connection; if the
// connection observer then rejects the connection it is retained and the
// observer is called again on the next attempt.
func (s *Session) connection(ctx context.Context) (*sqlx.Conn, error) {
	if s.closed {
		return nil, ObjectDisposedError{"session"}
	}
	if s.ready {
		return s.conn, nil
	}

	if s.conn == nil {
		s.log.debug("creating a new database connection")
		conn, err := s.factory(ctx)
		if err != nil {
			return nil, err
		}
		s.conn = conn
	}

	if obs := s.options.OnConnectionOpened; obs != nil {
		if err := obs.ConnectionOpened(ctx, s.conn); err != nil {
			return nil, err
		}
	}
	s.ready = true

	s.log.info("database connection opened")

	return s.conn, nil
}

// BeginTransaction starts a transaction with the specified isolation level.
// If the level is sql.LevelDefault the default isolation level of the
// database options is used.
//
// Only one transaction may be active on a session; ErrTransactionInProgress
// is returned if a transaction has already been started and not yet closed.
//
// Cancelling ctx after the transaction has begun does not roll it back;
// the transaction ends only when committed, rolled back or closed.
func (s *Session) BeginTransaction(ctx context.Context, level sql.IsolationLevel) (*Transaction, error) {
	if s.closed {
		return nil, ObjectDisposedError{"session"}
	}
	if s.tx != nil {
		return nil, ErrTransactionInProgress
	}

	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}

	if level == sql.LevelDefault {
		level = s.options.DefaultIsolationLevel
	}

	s.log.debug("starting a new database transaction", "isolation_level", level)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := conn.BeginTxx(context.WithoutCancel(ctx), &sql.TxOptions{Isolation: level})
	if err != nil {
		return nil, err
	}

	s.tx = &Transaction{
		tx:  tx,
		log: s.options.logger(componentTransaction),
		onClose: func() {
			s.tx = nil
		},
	}

	s.log.info("database transaction started", "isolation_level", level)

	return s.tx, nil
}

// Begin starts a transaction using the default isolation level.
func (s *Session) Begin(ctx context.Context) (*Transaction, error) {
	return s.BeginTransaction(ctx, sql.LevelDefault)
}

// Transaction returns the active transaction of the session, or nil.
func (s *Session) Transaction() *Transaction {
	return s.tx
}

// InTransaction returns true if the session has an active transaction.
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// prepare resolves a command and the executor to run it on, connecting
// the session if necessary.
func (s *Session) prepare(ctx context.Context, text string, opts []CommandOption) (*command, executor, error) {
	if s.closed {
		return nil, nil, ObjectDisposedError{"session"}
	}

	cmd, err := newCommand(text, s.options.DefaultTimeout, opts)
	if err != nil {
		return nil, nil, err
	}

	conn, err := s.connection(ctx)
	if err != nil {
		return nil, nil, err
	}

	var ex executor = conn
	if s.tx != nil {
		ex = s.tx.tx
		cmd.transactional = true
	}
	cmd.text = ex.Rebind(cmd.text)
	cmd.log(s.log)

	return cmd, ex, nil
}

// query runs a command returning rows.  The returned cancel func releases
// the context of the command and must be called once the rows are closed.
func (s *Session) query(ctx context.Context, text string, opts []CommandOption) (*sqlx.Rows, context.CancelFunc, error) {
	cmd, ex, err := s.prepare(ctx, text, opts)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := cmd.context(ctx)
	stop := context.AfterFunc(s.lifetime(), cancel)
	release := func() {
		stop()
		cancel()
	}

	rows, err := ex.QueryxContext(ctx, cmd.text, cmd.args...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return rows, release, nil
}

// lifetime returns a context which is cancelled when the session is
// closed.  Rows left open when the session is closed are released by
// the cancellation; closing the connection would otherwise wait on them.
func (s *Session) lifetime() context.Context {
	if s.done == nil {
		s.done, s.cancel = context.WithCancel(context.Background())
	}
	return s.done
}

// Execute runs a command that does not return rows, returning the number
// of rows affected.
func (s *Session) Execute(ctx context.Context, text string, opts ...CommandOption) (int64, error) {
	cmd, ex, err := s.prepare(ctx, text, opts)
	if err != nil {
		return 0, err
	}

	ctx, cancel := cmd.context(ctx)
	defer cancel()

	result, err := ex.ExecContext(ctx, cmd.text, cmd.args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExecuteReader runs a command and returns a Reader over the rows it
// returns.  The caller must Close the reader.
func (s *Session) ExecuteReader(ctx context.Context, text string, opts ...CommandOption) (*Reader, error) {
	rows, cancel, err := s.query(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	return &Reader{Rows: rows, cancel: cancel}, nil
}

// QueryMultiple runs a command returning one or more result sets and
// returns a GridReader to read them in sequence.  The caller must Close
// the grid reader before running any further command on the session.
//
// The result sets available depend on the driver.  modernc.org/sqlite,
// for example, runs every statement of a batch but returns only the rows
// of the last, as a single result set.
func (s *Session) QueryMultiple(ctx context.Context, text string, opts ...CommandOption) (*GridReader, error) {
	rows, cancel, err := s.query(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	return &GridReader{rows: rows, cancel: cancel}, nil
}

// Select runs a query and scans all rows into dest, which must be a
// pointer to a slice.
func (s *Session) Select(ctx context.Context, dest any, text string, opts ...CommandOption) error {
	cmd, ex, err := s.prepare(ctx, text, opts)
	if err != nil {
		return err
	}

	ctx, cancel := cmd.context(ctx)
	defer cancel()

	return sqlx.SelectContext(ctx, ex, dest, cmd.text, cmd.args...)
}

// Get runs a query and scans the first row into dest.  sql.ErrNoRows is
// returned if there are no rows.
func (s *Session) Get(ctx context.Context, dest any, text string, opts ...CommandOption) error {
	cmd, ex, err := s.prepare(ctx, text, opts)
	if err != nil {
		return err
	}

	ctx, cancel := cmd.context(ctx)
	defer cancel()

	return sqlx.GetContext(ctx, ex, dest, cmd.text, cmd.args...)
}

// Close closes any active transaction (rolling it back if it has not been
// committed) and releases the connection of the session.  Close is
// idempotent; any other operation on a closed session returns an
// ObjectDisposedError.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if tx := s.tx; tx != nil {
		if err := tx.Close(); err != nil {
			s.log.warn(err, "error closing the active transaction")
			errs = append(errs, err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if conn := s.conn; conn != nil {
		s.conn = nil
		s.ready = false
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.log.debug("database session closed")

	return errors.Join(errs...)
}
