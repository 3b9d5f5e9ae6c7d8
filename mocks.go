package sqlsession

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const MockConnectorDriver = "mock"
const SqlmockConnectorDriver = "sqlmock"

type MockConnector string

func (m MockConnector) ConnectionString() string { return string(m) }
func (m MockConnector) Driver() string           { return MockConnectorDriver }
func (m MockConnector) String() string           { return string(m) }

type SqlmockConnector string

func (m SqlmockConnector) ConnectionString() string { return string(m) }
func (m SqlmockConnector) Driver() string           { return SqlmockConnectorDriver }
func (m SqlmockConnector) String() string           { return string(m) }

// MockOpenFunc replaces the function used to open a pool using a
// connector.
func MockOpenFunc(fn func(string, string) (*sqlx.DB, error)) ConfigurationFunc {
	return func(d *Database) error {
		d.open = fn
		return nil
	}
}

// MockOpenFuncResult replaces the function used to open a pool using a
// connector with one returning the specified values.
func MockOpenFuncResult(db *sqlx.DB, err error) ConfigurationFunc {
	return func(d *Database) error {
		d.open = func(string, string) (*sqlx.DB, error) { return db, err }
		return nil
	}
}

// NewSqlmock returns a Database using a go-sqlmock pool together with the
// mock, so that the commands run by the sessions of the database can be
// verified.  Additional configuration functions may be supplied, for
// example to set a logger or default timeout.
//
// The mock uses exact matching of query text.
func NewSqlmock(ctx context.Context, cfg ...ConfigurationFunc) (*Database, sqlmock.Sqlmock, error) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, nil, err
	}

	d, err := New(ctx, append([]ConfigurationFunc{WithDb(db, SqlmockConnectorDriver)}, cfg...)...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return d, mock, nil
}

// MockConnectionFactory returns a ConnectionFactory which returns the
// specified error, or a connection from the specified pool if the error
// is nil, together with a func returning the number of times the factory
// has been called.
func MockConnectionFactory(db *sqlx.DB, err error) (ConnectionFactory, func() int) {
	mu := sync.Mutex{}
	calls := 0

	f := func(ctx context.Context) (*sqlx.Conn, error) {
		mu.Lock()
		calls++
		mu.Unlock()

		if err != nil {
			return nil, err
		}
		return db.Connx(ctx)
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
	return f, count
}

var registerdriver = sync.OnceFunc(func() {
	sql.Register("badconnection", &badconnection{})
})

// MockBadConnection returns a mock *sqlx.DB which returns driver.ErrBadConn on
// all operations except Open and Close.
//
// The mock has no spy or fake capabilities; it serves only to be used when
// testing higher-level operations in the presence of a bad connection.
func MockBadConnection() *sqlx.DB {
	registerdriver()

	db, _ := sqlx.Open("badconnection", "")
	return db
}

// MockBadConnectionWithPingDelay returns a mock *sqlx.DB which returns
// driver.ErrBadConn on all operations except Open and Close; a Ping does
// not return until the specified delay has elapsed (or the context is
// done).
func MockBadConnectionWithPingDelay(t time.Duration) *sqlx.DB {
	registerdriver()

	db, _ := sqlx.Open("badconnection", t.String())
	return db
}

// badconnection implements the interfaces necessary as a sql.Driver
// and sql.Conn.
//
// As a driver it returns a new connection with any ping delay parsed
// from the connection string.
//
// As a connection it returns driver.ErrBadConn on all operations except
// Open and Close.
type badconnection struct {
	pingdelay time.Duration
}

// Open implements the sql.Driver interface.
func (d *badconnection) Open(cs string) (driver.Conn, error) {
	c := &badconnection{}
	if len(cs) > 0 {
		c.pingdelay, _ = time.ParseDuration(cs)
	}
	return c, nil
}

// Prepare implements the sql.Conn interface, returning driver.ErrBadConn.
func (d *badconnection) Prepare(string) (driver.Stmt, error) {
	return nil, driver.ErrBadConn
}

// Close implements the sql.Conn interface, returning nil.
func (d *badconnection) Close() error { return nil }

// Begin implements the sql.Conn interface, returning driver.ErrBadConn.
func (d *badconnection) Begin() (driver.Tx, error) {
	return nil, driver.ErrBadConn
}

// Ping implements the sql.Pinger interface, returning driver.ErrBadConn.
func (d *badconnection) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.pingdelay):
		return driver.ErrBadConn
	}
}

// ExecContext implements the sql.ExecerContext interface, returning
// driver.ErrBadConn.
func (d *badconnection) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, driver.ErrBadConn
}
