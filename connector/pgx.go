package connector

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Pgx is a connector for the pgx driver.
//
// The parsed configuration is registered with the pgx stdlib driver; the
// connection string of the connector identifies the registration.  Release
// removes the registration when the connector is no longer required.
type Pgx struct {
	name     string
	host     string
	port     uint16
	user     string
	database string
}

// NewPgx returns a connector for a pgx connection string, in either URL or
// keyword/value form.
func NewPgx(connString string) (Pgx, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return Pgx{}, fmt.Errorf("pgx connector: %w", err)
	}

	return Pgx{
		name:     stdlib.RegisterConnConfig(cfg),
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		database: cfg.Database,
	}, nil
}

func (c Pgx) ConnectionString() string { return c.name }
func (c Pgx) Driver() string           { return PgxDriver }

// Release unregisters the configuration of the connector.  A pool
// opened with the connector must not be used to open new connections
// after it is released.
func (c Pgx) Release() {
	stdlib.UnregisterConnConfig(c.name)
}

func (c Pgx) String() string {
	return fmt.Sprintf("pgx: %s@%s:%d/%s", c.user, c.host, c.port, c.database)
}
