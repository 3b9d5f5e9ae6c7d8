package connector

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig describes a connection to a MySQL server.
type MySQLConfig struct {
	Host      string
	Port      int // defaults to 3306
	User      string
	Password  string
	Database  string
	Charset   string
	Collation string
	ParseTime bool
	Timeout   time.Duration
	TLS       string // "true", "false", "skip-verify" or a registered config name
}

// MySQL is a connector for the go-sql-driver/mysql driver.
type MySQL struct {
	cfg *mysql.Config
}

// NewMySQL returns a connector for the server described by cfg.
func NewMySQL(cfg MySQLConfig) (MySQL, error) {
	if cfg.Host == "" {
		return MySQL{}, ErrHostRequired
	}
	if cfg.Port <= 0 {
		cfg.Port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = cfg.ParseTime
	mc.Timeout = cfg.Timeout
	mc.TLSConfig = cfg.TLS
	mc.Collation = cfg.Collation
	if cfg.Charset != "" {
		if err := mc.Apply(mysql.Charset(cfg.Charset, cfg.Collation)); err != nil {
			return MySQL{}, fmt.Errorf("mysql connector: %w", err)
		}
	}

	return MySQL{cfg: mc}, nil
}

// ParseMySQLDSN returns a connector for a go-sql-driver/mysql DSN.
func ParseMySQLDSN(dsn string) (MySQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return MySQL{}, fmt.Errorf("mysql connector: %w", err)
	}
	return MySQL{cfg: cfg}, nil
}

func (c MySQL) ConnectionString() string { return c.cfg.FormatDSN() }
func (c MySQL) Driver() string           { return MySQLDriver }

func (c MySQL) String() string {
	cfg := c.cfg.Clone()
	if cfg.Passwd != "" {
		cfg.Passwd = redacted
	}
	return "mysql: " + cfg.FormatDSN()
}
