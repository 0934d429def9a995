package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waabox/ghauth/internal/config"
	"github.com/waabox/ghauth/internal/domain"
)

// CredentialStore persists the cached credential record for one configName.
type CredentialStore interface {
	Read() (*domain.TokenData, error)
	Write(data domain.TokenData) error
	Path() string
}

// Authenticator obtains a GitHub credential and caches it between runs.
type Authenticator struct {
	prompter Prompter
	spinner  Spinner
	cancel   CancelListener
	out      io.Writer
	log      *logrus.Logger
	storeFor func(configName string) CredentialStore
	now      func() time.Time
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithPrompter sets the source of interactive input.
func WithPrompter(p Prompter) Option { return func(a *Authenticator) { a.prompter = p } }

// WithSpinner sets the progress display.
func WithSpinner(s Spinner) Option { return func(a *Authenticator) { a.spinner = s } }

// WithCancelListener sets the key listener that abandons the device flow.
func WithCancelListener(l CancelListener) Option { return func(a *Authenticator) { a.cancel = l } }

// WithOutput sets where instructions and confirmations are written.
func WithOutput(w io.Writer) Option { return func(a *Authenticator) { a.out = w } }

// WithLogger sets the debug logger.
func WithLogger(l *logrus.Logger) Option { return func(a *Authenticator) { a.log = l } }

// WithStore replaces the on-disk credential store lookup.
func WithStore(storeFor func(configName string) CredentialStore) Option {
	return func(a *Authenticator) { a.storeFor = storeFor }
}

// WithClock sets the time source used for authorization notes.
func WithClock(now func() time.Time) Option { return func(a *Authenticator) { a.now = now } }

// New creates an Authenticator. Without options it cannot prompt, shows no
// spinner and never sees the cancel key.
func New(opts ...Option) *Authenticator {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	a := &Authenticator{
		prompter: noPrompter{},
		spinner:  silentSpinner{},
		cancel:   neverCancel{},
		out:      os.Stdout,
		log:      quiet,
		storeFor: func(name string) CredentialStore { return config.NewCredentialStore(name) },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Auth returns the cached credential for opts.ConfigName or runs an interactive
// flow to obtain one and caches it.
//
// Flow selection: an Enterprise AuthURL or GitHubHost runs the username/password
// flow; otherwise the device flow runs when ClientID is set and NoDeviceFlow is
// not, falling back to the personal access token prompt when the user presses
// Enter. A result without both user and token fails with domain.ErrAuthenticationFailed,
// including when the token was granted but the user lookup failed.
func (a *Authenticator) Auth(ctx context.Context, opts *Options) (domain.TokenData, error) {
	if opts == nil {
		return domain.TokenData{}, fmt.Errorf("%w: options are required", domain.ErrInvalidArgument)
	}
	o, err := opts.normalize()
	if err != nil {
		return domain.TokenData{}, err
	}
	log := a.log.WithFields(logrus.Fields{"config_name": o.ConfigName, "no_save": o.NoSave})

	var store CredentialStore
	if !o.NoSave {
		if o.ConfigName == "" {
			return domain.TokenData{}, fmt.Errorf("%w: ConfigName (configName) is required unless NoSave is set", domain.ErrInvalidArgument)
		}
		store = a.storeFor(o.ConfigName)
		cached, err := store.Read()
		if err != nil {
			return domain.TokenData{}, err
		}
		if cached != nil && cached.Complete() {
			log.WithField("path", store.Path()).Debug("using cached credentials")
			return *cached, nil
		}
	}

	var data *domain.TokenData
	if o.Enterprise() {
		log.WithField("auth_url", o.AuthURL).Debug("running enterprise flow")
		data, err = a.enterpriseFlow(ctx, o)
	} else {
		data, err = a.githubFlow(ctx, o)
	}
	if err != nil {
		return domain.TokenData{}, err
	}
	if data == nil || !data.Complete() {
		return domain.TokenData{}, fmt.Errorf("%w: no user and token were obtained", domain.ErrAuthenticationFailed)
	}

	if o.NoSave {
		return *data, nil
	}
	if err := store.Write(*data); err != nil {
		return domain.TokenData{}, err
	}
	fmt.Fprintf(a.out, "Wrote access token to %q\n", store.Path())
	return *data, nil
}

// githubFlow picks between the device flow and the personal access token prompt.
func (a *Authenticator) githubFlow(ctx context.Context, o Options) (*domain.TokenData, error) {
	if o.ClientID == "" || o.NoDeviceFlow {
		a.log.Debug("running personal access token flow")
		return a.patFlow(ctx, o)
	}

	a.log.WithField("client_id", o.ClientID).Debug("running device flow")
	data, err := a.runDeviceFlow(ctx, o)
	if errors.Is(err, domain.ErrInterrupted) {
		a.spinner.Warn("Device flow canceled.")
		return a.patFlow(ctx, o)
	}
	return data, err
}
