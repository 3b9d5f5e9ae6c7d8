package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blugnu/sqlsession"
)

type execFlags struct {
	transact bool
}

func (c *Cmd) getExecCmd() *cobra.Command {
	var flags execFlags

	cmd := &cobra.Command{
		Use:   "exec sql [args...]",
		Short: "Runs a command that does not return rows",
		Long: `Runs a command that does not return rows and prints the number of rows
affected.  Any args are supplied as positional parameters of the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			var n int64
			run := func(s *sqlsession.Session) (err error) {
				n, err = s.Execute(ctx, args[0], argsOf(args[1:]))
				return err
			}

			if flags.transact {
				err = d.Transact(ctx, "exec", run, sql.LevelDefault)
			} else {
				var s *sqlsession.Session
				if s, err = d.Connect(ctx); err != nil {
					return err
				}
				defer s.Close()
				err = run(s)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) affected\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.transact, "tx", false, "run the command in a transaction")

	return cmd
}
