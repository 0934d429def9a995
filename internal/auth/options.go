package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	oauth2github "golang.org/x/oauth2/github"

	"github.com/waabox/ghauth/internal/domain"
)

const (
	defaultUserAgent           = "ghauth (+https://github.com/waabox/ghauth)"
	defaultDeviceAuthURL       = "https://github.com/login/device"
	defaultOAuthAppsBaseURL    = "https://github.com/settings/connections/applications"
	defaultPATURL              = "https://github.com/settings/tokens"
	defaultAPIBaseURL          = "https://api.github.com/"
	defaultPromptName          = "GitHub"
	defaultNote                = "ghauth command-line token"
	defaultPasswordReplaceChar = '✔'
	defaultPollUnit            = time.Second
	defaultHTTPTimeout         = 15 * time.Second
)

// Options configures one call to Authenticator.Auth.
// The zero value of every field means "use the default".
type Options struct {
	// ConfigName names the cached credential record. Required unless NoSave is set.
	ConfigName string
	// ClientID is the OAuth app client id. Without it the device flow is skipped.
	ClientID string
	Scopes   []string

	// NoSave skips both reading and writing the cached record.
	NoSave bool
	// NoDeviceFlow forces the personal access token prompt.
	NoDeviceFlow bool

	// AuthURL is the legacy authorizations endpoint. A host other than github.com
	// or api.github.com selects the Enterprise flow.
	AuthURL string
	// GitHubHost is an Enterprise host name (or base URL); it derives AuthURL when AuthURL is empty.
	GitHubHost string
	// APIBaseURL is the REST API root used for the identity lookup.
	APIBaseURL string

	UserAgent           string
	Note                string
	PromptName          string
	PasswordReplaceChar rune

	DeviceCodeURL    string
	AccessTokenURL   string
	DeviceAuthURL    string
	OAuthAppsBaseURL string
	PATURL           string

	// PollUnit is the duration of one server-side interval second. Tests shrink it.
	PollUnit   time.Duration
	HTTPClient *http.Client
}

// Enterprise reports whether the options target a GitHub Enterprise instance.
func (o Options) Enterprise() bool {
	return IsEnterprise(o.AuthURL)
}

// normalize returns a copy of o with defaults applied and validated.
func (o Options) normalize() (Options, error) {
	if o.AuthURL == "" && o.GitHubHost != "" {
		base, err := hostBaseURL(o.GitHubHost)
		if err != nil {
			return Options{}, err
		}
		if IsEnterprise(base) {
			o.AuthURL = base + "/api/v3/authorizations"
		}
	}
	if o.APIBaseURL == "" {
		o.APIBaseURL = defaultAPIBaseURL
		if o.Enterprise() {
			o.APIBaseURL = strings.TrimSuffix(strings.TrimRight(o.AuthURL, "/"), "/authorizations")
		}
	}
	if !strings.HasSuffix(o.APIBaseURL, "/") {
		o.APIBaseURL += "/"
	}

	o.Scopes = append([]string(nil), o.Scopes...)
	setDefault(&o.UserAgent, defaultUserAgent)
	setDefault(&o.Note, defaultNote)
	setDefault(&o.PromptName, defaultPromptName)
	setDefault(&o.DeviceCodeURL, oauth2github.Endpoint.DeviceAuthURL)
	setDefault(&o.AccessTokenURL, oauth2github.Endpoint.TokenURL)
	setDefault(&o.DeviceAuthURL, defaultDeviceAuthURL)
	setDefault(&o.OAuthAppsBaseURL, defaultOAuthAppsBaseURL)
	setDefault(&o.PATURL, defaultPATURL)
	if o.PasswordReplaceChar == 0 {
		o.PasswordReplaceChar = defaultPasswordReplaceChar
	}
	if o.PollUnit == 0 {
		o.PollUnit = defaultPollUnit
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	if o.PollUnit < 0 {
		return Options{}, fmt.Errorf("%w: PollUnit must not be negative", domain.ErrInvalidArgument)
	}
	for name, raw := range map[string]string{
		"AuthURL":        o.AuthURL,
		"APIBaseURL":     o.APIBaseURL,
		"DeviceCodeURL":  o.DeviceCodeURL,
		"AccessTokenURL": o.AccessTokenURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Hostname() == "" {
			return Options{}, fmt.Errorf("%w: %s %q is not an absolute URL", domain.ErrInvalidArgument, name, raw)
		}
	}
	return o, nil
}

func hostBaseURL(host string) (string, error) {
	raw := strings.TrimRight(host, "/")
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: GitHubHost %q is not a host name", domain.ErrInvalidArgument, host)
	}
	return u.Scheme + "://" + u.Host, nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
