package connector

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
)

var pqPassword = regexp.MustCompile(`password='(\\.|[^'\\])*'`)

// PostgresConfig describes a connection to a PostgreSQL server using the
// lib/pq driver.
type PostgresConfig struct {
	Host           string
	Port           int // defaults to 5432
	User           string
	Password       string
	Database       string
	SSLMode        string // defaults to "disable"
	Schema         string // sets the search_path, if specified
	ConnectTimeout time.Duration
}

// Postgres is a connector for the lib/pq driver.
type Postgres struct {
	dsn string
}

// NewPostgres returns a connector for the server described by cfg.
func NewPostgres(cfg PostgresConfig) (Postgres, error) {
	if cfg.Host == "" {
		return Postgres{}, ErrHostRequired
	}
	if cfg.Port <= 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	escaper := strings.NewReplacer(`'`, `\'`, `\`, `\\`)
	kvs := []string{}
	add := func(k, v string) {
		if v != "" {
			kvs = append(kvs, k+"='"+escaper.Replace(v)+"'")
		}
	}

	add("host", cfg.Host)
	add("port", fmt.Sprint(cfg.Port))
	add("user", cfg.User)
	add("password", cfg.Password)
	add("dbname", cfg.Database)
	add("sslmode", cfg.SSLMode)
	add("search_path", cfg.Schema)
	if cfg.ConnectTimeout > 0 {
		add("connect_timeout", fmt.Sprint(int(cfg.ConnectTimeout.Seconds())))
	}

	return Postgres{dsn: strings.Join(kvs, " ")}, nil
}

// ParsePostgresURL returns a connector for a postgres:// (or
// postgresql://) URL.
func ParsePostgresURL(url string) (Postgres, error) {
	dsn, err := pq.ParseURL(url)
	if err != nil {
		return Postgres{}, fmt.Errorf("postgres connector: %w", err)
	}
	return Postgres{dsn: dsn}, nil
}

func (c Postgres) ConnectionString() string { return c.dsn }
func (c Postgres) Driver() string           { return PostgresDriver }

func (c Postgres) String() string {
	return "postgres: " + pqPassword.ReplaceAllString(c.dsn, "password='"+redacted+"'")
}
