package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached credential for a configuration name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.storeFor(a.configName)
			data, err := store.Read()
			if err != nil {
				return err
			}
			if data == nil || !data.Complete() {
				fmt.Fprintf(a.out, "Not logged in (%s)\n", store.Path())
				return nil
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", data.User)
			if data.Scope != "" {
				fmt.Fprintf(a.out, "Scopes: %s\n", data.Scope)
			}
			fmt.Fprintf(a.out, "Credentials: %s\n", store.Path())
			return nil
		},
	}
}
