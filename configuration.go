package sqlsession

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/exp/slices"
)

type ConfigurationFunc func(*Database) error

// WithConnector adds a single connector to be used for establishing a
// database connection.
//
// If the connector has already been added it is ignored.
func WithConnector(c Connector) ConfigurationFunc {
	return func(d *Database) error {
		if d.db != nil {
			return ErrWithDbAndWithConnectorsIsInvalid
		}
		if d.factory != nil {
			return ErrConnectionFactoryIsExclusive
		}
		if !slices.Contains(d.connectors, c) {
			d.connectors = append(d.connectors, c)
		}
		return nil
	}
}

// WithConnectors adds a slice of connectors to be used for establishing a
// connection.
//
// Any connectors that have already been added are ignored.
//
// With multiple connectors, if the pool cannot be opened or pinged using
// one connector the next is tried, until a pool is established or all
// connectors have been tried.  Commands are never retried.
func WithConnectors(c []Connector) ConfigurationFunc {
	return func(d *Database) error {
		if d.db != nil {
			return ErrWithDbAndWithConnectorsIsInvalid
		}
		if d.factory != nil {
			return ErrConnectionFactoryIsExclusive
		}
		for _, c := range c {
			if !slices.Contains(d.connectors, c) {
				d.connectors = append(d.connectors, c)
			}
		}
		return nil
	}
}

// WithDbConfiguration establishes a configuration function that is called
// when a pool is established using the configured connectors.  This can be
// used to configure the pool, for example to set the maximum number of open
// connections.
//
// Returns ErrWithDbAndWithConfigurationIsInvalid if a database has already been
// configured.
func WithDbConfiguration(cfg func(*sql.DB) error) ConfigurationFunc {
	return func(d *Database) error {
		if d.db != nil {
			return ErrWithDbAndWithConfigurationIsInvalid
		}
		d.configure = cfg
		return nil
	}
}

// WithDb establishes a database using the provided database handle.  The
// driver name is used to determine the placeholder style of the database.
//
// Returns ErrWithDbAndWithConnectorsIsInvalid if any connectors have already
// been added.
//
// Returns ErrWithDbAndWithConfigurationIsInvalid if a configuration function has been
// configured. It is expected that when using WithDb the specified *sql.DB
// is already fully configured as required.
func WithDb(db *sql.DB, driverName string) ConfigurationFunc {
	return WithDbx(sqlx.NewDb(db, driverName))
}

// WithDbx establishes a database using the provided sqlx database handle.
//
// The same restrictions apply as for WithDb.
func WithDbx(db *sqlx.DB) ConfigurationFunc {
	return func(d *Database) error {
		if db == nil {
			return ErrDatabaseRequired
		}

		if len(d.connectors) > 0 {
			return ErrWithDbAndWithConnectorsIsInvalid
		}

		if d.configure != nil {
			return ErrWithDbAndWithConfigurationIsInvalid
		}

		if d.factory != nil {
			return ErrConnectionFactoryIsExclusive
		}

		d.db = db

		return nil
	}
}

// WithConnectionFactory establishes a database which obtains the
// connection for each session by calling the specified factory.  The
// database has no pool of its own.
func WithConnectionFactory(f ConnectionFactory) ConfigurationFunc {
	return func(d *Database) error {
		if f == nil {
			return ErrConnectionFactoryRequired
		}
		if d.db != nil || len(d.connectors) > 0 {
			return ErrConnectionFactoryIsExclusive
		}
		d.factory = f
		return nil
	}
}

// WithPingTimeout sets the timeout for a ping operation.
func WithPingTimeout(t time.Duration) ConfigurationFunc {
	return func(d *Database) error {
		if t < 0 {
			return ErrPingTimeoutIsInvalid
		}

		d.pingTimeout = t

		return nil
	}
}

// WithDefaultTimeout sets the timeout applied to commands which do not
// specify a timeout of their own.
func WithDefaultTimeout(t time.Duration) ConfigurationFunc {
	return func(d *Database) error {
		if t < 0 {
			return ErrDefaultTimeoutIsInvalid
		}
		d.options.DefaultTimeout = t
		return nil
	}
}

// WithDefaultIsolationLevel sets the isolation level of transactions
// started with sql.LevelDefault.
func WithDefaultIsolationLevel(level sql.IsolationLevel) ConfigurationFunc {
	return func(d *Database) error {
		d.options.DefaultIsolationLevel = level
		return nil
	}
}

// WithOnConnectionOpened sets an observer which is notified when a session
// obtains its connection.  An error returned by the observer aborts the
// connect.
func WithOnConnectionOpened(obs ConnectionObserver) ConfigurationFunc {
	return func(d *Database) error {
		d.options.OnConnectionOpened = obs
		return nil
	}
}

// WithLogger sets the logger of the database and its sessions.
//
// Returns ErrLoggerRequired if the logger is nil.
func WithLogger(l Logger) ConfigurationFunc {
	return func(d *Database) error {
		if l == nil {
			return ErrLoggerRequired
		}
		d.options.Logger = l
		return nil
	}
}
