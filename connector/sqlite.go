package connector

import (
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver(SQLiteDriver, sqlx.QUESTION)
}

// DefaultSQLitePragmas are applied to every connection of a SQLite
// connector that does not specify Pragmas.
var DefaultSQLitePragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

// SQLite is a connector for the modernc.org/sqlite driver.
//
// Path is the path of the database file, or ":memory:".  Each entry in
// Pragmas is applied to every new connection, in the form
// "name(value)".
//
// The driver does not return multiple result sets: a command containing
// several statements runs them all but returns only the rows of the last.
type SQLite struct {
	Path    string
	Pragmas []string
}

// NewSQLite returns a connector for the database file at path, using the
// default pragmas.
func NewSQLite(path string) (SQLite, error) {
	if path == "" {
		return SQLite{}, ErrPathRequired
	}
	return SQLite{Path: path}, nil
}

func (c SQLite) ConnectionString() string {
	pragmas := c.Pragmas
	if pragmas == nil {
		pragmas = DefaultSQLitePragmas
	}
	if len(pragmas) == 0 {
		return "file:" + c.Path
	}
	return "file:" + c.Path + "?" + url.Values{"_pragma": pragmas}.Encode()
}

func (c SQLite) Driver() string { return SQLiteDriver }
func (c SQLite) String() string { return "sqlite: " + c.Path }
