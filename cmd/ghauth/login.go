package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waabox/ghauth/internal/auth"
	"github.com/waabox/ghauth/internal/tui"
)

func newLoginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Return the cached token or authenticate interactively",
		Args:  cobra.NoArgs,
		RunE:  a.runLogin,
	}
	addLoginFlags(cmd, a)
	return cmd
}

func (a *app) runLogin(cmd *cobra.Command, _ []string) error {
	opts, err := a.options(cmd)
	if err != nil {
		return err
	}

	// ctrl+c while the Enter listener holds the terminal in raw mode arrives
	// as a key, not a signal.
	ctx, cancel := withCancel(cmd)
	defer cancel()

	authn := auth.New(
		auth.WithPrompter(tui.NewPrompter(a.in, a.errOut)),
		auth.WithSpinner(tui.NewSpinner(a.errOut)),
		auth.WithCancelListener(tui.NewEnterListener(a.in, cancel)),
		auth.WithOutput(a.errOut),
		auth.WithLogger(a.log),
		auth.WithStore(func(name string) auth.CredentialStore { return a.storeFor(name) }),
	)
	data, err := authn.Auth(ctx, opts)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if a.remember {
		if err := a.saveSettings(opts); err != nil {
			return err
		}
	}

	if a.printToken {
		fmt.Fprintln(a.out, data.Token)
		return nil
	}
	a.status.Success("Logged in to %s as %s", hostLabel(opts.GitHubHost, opts.AuthURL), data.User)
	return nil
}

func hostLabel(host, authURL string) string {
	switch {
	case host != "":
		return host
	case authURL != "":
		return authURL
	}
	return "github.com"
}
