package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blugnu/sqlsession"
)

func (c *Cmd) getQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query sql [args...]",
		Short: "Runs a command and prints the rows it returns",
		Long: `Runs a command and prints the rows of every result set it returns.
Any args are supplied as positional parameters of the command.

Not every driver returns multiple result sets; with sqlite only the rows
of the last statement are returned.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			s := d.NewSession()
			defer s.Close()

			r, err := s.ExecuteReader(ctx, args[0], argsOf(args[1:]))
			if err != nil {
				return err
			}
			defer r.Close()

			return printResults(cmd.OutOrStdout(), r)
		},
	}
}

// printResults writes every result set of a reader as a table, with a
// blank line between result sets.
func printResults(out io.Writer, r *sqlsession.Reader) error {
	for set := 0; ; set++ {
		if set > 0 {
			if !r.NextResultSet() {
				return r.Err()
			}
			fmt.Fprintln(out)
		}

		cols, err := r.Columns()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for i, col := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col)
		}
		fmt.Fprintln(tw)

		for r.Next() {
			row, err := r.SliceScan()
			if err != nil {
				return err
			}
			for i, v := range row {
				if i > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, format(v))
			}
			fmt.Fprintln(tw)
		}
		if err := r.Err(); err != nil {
			return err
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
}

func format(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	}
	return fmt.Sprint(v)
}
