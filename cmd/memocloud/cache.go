package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared Redis response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response and any active cooldown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := c.app.Client().GetCache()
			if manager == nil {
				return errors.New("response cache is disabled: set --redis or redis.addr")
			}
			n, err := manager.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out(cmd), "Removed %d key(s).\n", n)
			return nil
		},
	})
	return cmd
}
