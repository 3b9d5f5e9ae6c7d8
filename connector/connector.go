// Package connector provides connectors for the database drivers commonly
// used with sqlsession.  A connector identifies a driver and supplies the
// connection string used to open a pool with that driver.
//
// Each connector also implements fmt.Stringer, returning a description of
// the connection with any password redacted, so that a connector may be
// safely included in errors and logs.
package connector

const redacted = "xxxxx"

const (
	PostgresDriver = "postgres"
	PgxDriver      = "pgx"
	MySQLDriver    = "mysql"
	SQLiteDriver   = "sqlite"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrPathRequired = Error("a database path is required")
const ErrHostRequired = Error("a host is required")
