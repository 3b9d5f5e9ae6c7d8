package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *Cmd) getPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verifies that the database can be reached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
