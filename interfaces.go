package sqlsession

// Connector identifies a database driver and the connection string used to
// open a pool with it.
type Connector interface {
	ConnectionString() string
	Driver() string
}
