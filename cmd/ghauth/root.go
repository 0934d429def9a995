package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/waabox/ghauth/internal/auth"
	"github.com/waabox/ghauth/internal/config"
	"github.com/waabox/ghauth/internal/git"
	"github.com/waabox/ghauth/internal/tui"
)

// app carries the streams and flag values shared by every command.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	settingsPath string
	settings     config.Settings
	log          *logrus.Logger
	status       *tui.Printer

	configName   string
	clientID     string
	scopes       string
	host         string
	authURL      string
	noSave       bool
	noDeviceFlow bool
	fromRemote   bool
	printToken   bool
	remember     bool
	verbose      bool

	storeFor func(configName string) *config.CredentialStore
	getwd    func() (string, error)
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:           in,
		out:          out,
		errOut:       errOut,
		settingsPath: config.DefaultSettingsPath(),
		log:          logrus.New(),
		status:       tui.NewPrinter(errOut),
		storeFor:     config.NewCredentialStore,
		getwd:        os.Getwd,
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ghauth",
		Short: "Obtain and cache a GitHub access token",
		Long: "ghauth obtains a GitHub access token through the OAuth device flow, a personal\n" +
			"access token prompt or GitHub Enterprise username/password, and caches it per\n" +
			"configuration name.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: a.runLogin,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.settingsPath, "settings", a.settingsPath, "Path to the settings file")
	flags.StringVarP(&a.configName, "config-name", "n", "", "Name of the credential cache (default \"ghauth\")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log protocol details to stderr")

	root.AddCommand(
		newLoginCommand(a),
		newStatusCommand(a),
		newLogoutCommand(a),
		newVersionCommand(),
	)
	addLoginFlags(root, a)
	return root
}

// setup loads settings and configures logging. Flags take precedence over the
// settings file and environment.
func (a *app) setup(cmd *cobra.Command) error {
	a.log.SetOutput(a.errOut)
	a.log.SetLevel(logrus.WarnLevel)
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
		a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cmd.Name() == "version" {
		return nil
	}

	settings, err := config.LoadSettings(a.settingsPath)
	if err != nil {
		return err
	}
	a.settings = settings
	if a.configName == "" {
		a.configName = settings.ConfigNameOrDefault()
	}
	a.log.WithFields(logrus.Fields{"settings": a.settingsPath, "config_name": a.configName}).Debug("settings loaded")
	return nil
}

func addLoginFlags(cmd *cobra.Command, a *app) {
	flags := cmd.Flags()
	flags.StringVar(&a.clientID, "client-id", "", "OAuth app client ID enabling the device flow")
	flags.StringVar(&a.scopes, "scopes", "", "Comma separated scopes to request")
	flags.StringVar(&a.host, "host", "", "GitHub Enterprise host, e.g. github.example.com")
	flags.StringVar(&a.authURL, "auth-url", "", "GitHub Enterprise authorizations endpoint")
	flags.BoolVar(&a.noSave, "no-save", false, "Do not read or write the credential cache")
	flags.BoolVar(&a.noDeviceFlow, "no-device-flow", false, "Always prompt for a personal access token")
	flags.BoolVar(&a.fromRemote, "from-remote", false, "Use the host of the current repository's origin remote")
	flags.BoolVar(&a.printToken, "print-token", false, "Print the token to stdout")
	flags.BoolVar(&a.remember, "remember", false, "Save client ID, scopes, host and config name to the settings file")
}

// options merges settings and flags into auth options.
func (a *app) options(cmd *cobra.Command) (*auth.Options, error) {
	s := a.settings
	opts := &auth.Options{
		ConfigName:   a.configName,
		ClientID:     s.ClientID,
		Scopes:       s.Scopes,
		GitHubHost:   s.GitHubHost,
		AuthURL:      s.AuthURL,
		UserAgent:    s.UserAgent,
		Note:         s.Note,
		NoDeviceFlow: s.NoDeviceFlow || a.noDeviceFlow,
		NoSave:       a.noSave,
	}
	if cmd.Flags().Changed("client-id") {
		opts.ClientID = a.clientID
	}
	if cmd.Flags().Changed("scopes") {
		opts.Scopes = config.SplitScopes(a.scopes)
	}
	if cmd.Flags().Changed("auth-url") {
		opts.AuthURL = a.authURL
	}

	switch {
	case cmd.Flags().Changed("host"):
		opts.GitHubHost = a.host
	case a.fromRemote:
		host, err := a.remoteHost()
		if err != nil {
			return nil, err
		}
		opts.GitHubHost = host
	}
	return opts, nil
}

func (a *app) remoteHost() (string, error) {
	cwd, err := a.getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	remote, err := git.DetectRemote(cwd)
	if err != nil {
		return "", fmt.Errorf("detecting git remote: %w", err)
	}
	a.log.WithField("remote", remote.URL).Debug("origin remote detected")
	if strings.EqualFold(remote.Host, "github.com") {
		return "", nil
	}
	a.status.Info("Using %s from the origin remote", remote.Host)
	return remote.HostURL(), nil
}

// saveSettings stores the values login ran with so later runs need no flags.
func (a *app) saveSettings(opts *auth.Options) error {
	s := a.settings
	s.ConfigName = opts.ConfigName
	s.ClientID = opts.ClientID
	s.Scopes = opts.Scopes
	s.GitHubHost = opts.GitHubHost
	s.AuthURL = opts.AuthURL
	s.NoDeviceFlow = opts.NoDeviceFlow
	if err := config.SaveSettings(a.settingsPath, s); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	a.settings = s
	a.status.Success("Saved settings to %s", a.settingsPath)
	return nil
}

func withCancel(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithCancel(ctx)
}
