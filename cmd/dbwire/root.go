package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blugnu/sqlsession"
	"github.com/blugnu/sqlsession/connector"
	"github.com/blugnu/sqlsession/zaplog"
)

type (
	Cmd struct {
		rootCmd   *cobra.Command
		config    *viper.Viper
		rootFlags rootFlags
		log       *zap.Logger
	}

	rootFlags struct {
		cfgFile string
	}
)

func New() *Cmd {
	c := &Cmd{config: viper.New()}

	rootCmd := &cobra.Command{
		Use:               "dbwire",
		Short:             "Runs sql commands against a database",
		SilenceUsage:      true,
		PersistentPreRunE: c.initConfig,
		DisableAutoGenTag: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.rootFlags.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/.dbwire.yaml)")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver: postgres, pgx, mysql or sqlite")
	rootCmd.PersistentFlags().String("dsn", "", "connection string (a file path for sqlite)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "default command timeout")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log sessions and commands")
	for _, key := range []string{"driver", "dsn", "timeout", "verbose"} {
		_ = c.config.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.getPingCmd())
	rootCmd.AddCommand(c.getExecCmd())
	rootCmd.AddCommand(c.getQueryCmd())

	return c
}

func (c *Cmd) Execute() {
	if err := c.rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func (c *Cmd) initConfig(cmd *cobra.Command, args []string) error {
	if c.rootFlags.cfgFile != "" {
		c.config.SetConfigFile(c.rootFlags.cfgFile)
	} else {
		c.config.SetConfigName(".dbwire")
		c.config.AddConfigPath(".")
		if cfgdir, err := os.UserConfigDir(); err == nil {
			c.config.AddConfigPath(cfgdir)
		}
	}

	c.config.SetEnvPrefix("DBWIRE")
	c.config.AutomaticEnv()
	c.config.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	if err := c.config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || c.rootFlags.cfgFile != "" {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	var err error
	if c.config.GetBool("verbose") {
		c.log, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		c.log, err = cfg.Build()
	}
	return err
}

// connectorFor returns a connector for a driver and connection string.
func connectorFor(driver, dsn string) (sqlsession.Connector, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a connection string is required (--dsn or DBWIRE_DSN)")
	}

	switch driver {
	case connector.PostgresDriver:
		return connector.ParsePostgresURL(dsn)
	case connector.PgxDriver:
		return connector.NewPgx(dsn)
	case connector.MySQLDriver:
		return connector.ParseMySQLDSN(dsn)
	case connector.SQLiteDriver:
		return connector.NewSQLite(dsn)
	}
	return nil, fmt.Errorf("unsupported driver: %q", driver)
}

// open returns a Database using the configured connector.
func (c *Cmd) open(ctx context.Context) (*sqlsession.Database, error) {
	cnc, err := connectorFor(c.config.GetString("driver"), c.config.GetString("dsn"))
	if err != nil {
		return nil, err
	}

	return sqlsession.New(ctx,
		sqlsession.WithConnector(cnc),
		sqlsession.WithDefaultTimeout(c.config.GetDuration("timeout")),
		sqlsession.WithLogger(zaplog.New(c.log)),
	)
}

// argsOf converts command line arguments to command arguments.
func argsOf(args []string) sqlsession.CommandOption {
	a := make([]any, len(args))
	for i, s := range args {
		a[i] = s
	}
	return sqlsession.WithArgs(a...)
}
