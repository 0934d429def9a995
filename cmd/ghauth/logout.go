package main

import (
	"github.com/spf13/cobra"
)

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the cached credential (the token is not revoked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.storeFor(a.configName)
			if err := store.Remove(); err != nil {
				return err
			}
			a.status.Success("Removed %s", store.Path())
			return nil
		},
	}
}
