package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/waabox/ghauth/internal/domain"
)

const (
	deviceGrantType       = "urn:ietf:params:oauth:grant-type:device_code"
	defaultPollInterval   = 5
	slowDownIntervalBonus = 5
)

// GitHubDeviceFlow talks to GitHub's device authorization endpoints.
// See https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow
type GitHubDeviceFlow struct {
	clientID       string
	scopes         []string
	deviceCodeURL  string
	accessTokenURL string
	deviceAuthURL  string
	userAgent      string
	client         *http.Client
}

func newGitHubDeviceFlow(o Options) *GitHubDeviceFlow {
	return &GitHubDeviceFlow{
		clientID:       o.ClientID,
		scopes:         o.Scopes,
		deviceCodeURL:  o.DeviceCodeURL,
		accessTokenURL: o.AccessTokenURL,
		deviceAuthURL:  o.DeviceAuthURL,
		userAgent:      o.UserAgent,
		client:         o.HTTPClient,
	}
}

// RequestCode asks GitHub for a fresh device code and user code.
// A response carrying `error` is a fatal *domain.APIError; a response lacking
// either code is a domain.ErrProtocol.
func (f *GitHubDeviceFlow) RequestCode(ctx context.Context) (DeviceCodeSession, error) {
	query := url.Values{}
	query.Set("client_id", f.clientID)
	if len(f.scopes) > 0 {
		query.Set("scope", strings.Join(f.scopes, " "))
	}

	var raw struct {
		DeviceCode       string `json:"device_code"`
		UserCode         string `json:"user_code"`
		VerificationURI  string `json:"verification_uri"`
		ExpiresIn        int    `json:"expires_in"`
		Interval         int    `json:"interval"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	payload, err := f.post(ctx, f.deviceCodeURL, query, &raw)
	if err != nil {
		return DeviceCodeSession{}, fmt.Errorf("requesting device code: %w", err)
	}

	if raw.Error != "" {
		return DeviceCodeSession{}, &domain.APIError{
			Code:        raw.Error,
			Description: describeDeviceCodeError(raw.Error, raw.ErrorDescription, f.clientID),
			Payload:     payload,
		}
	}
	if raw.DeviceCode == "" || raw.UserCode == "" {
		return DeviceCodeSession{}, fmt.Errorf("%w: no device code from GitHub", domain.ErrProtocol)
	}

	session := DeviceCodeSession{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}
	if session.Interval <= 0 {
		session.Interval = defaultPollInterval
	}
	if session.VerificationURI == "" {
		session.VerificationURI = f.deviceAuthURL
	}
	return session, nil
}

// PollToken makes a single request to the access token endpoint.
// GitHub reports pending and failed authorizations in the `error` field of a
// successful HTTP response, so interpreting the answer is left to the caller.
func (f *GitHubDeviceFlow) PollToken(ctx context.Context, deviceCode string) (accessTokenResponse, error) {
	query := url.Values{}
	query.Set("client_id", f.clientID)
	query.Set("device_code", deviceCode)
	query.Set("grant_type", deviceGrantType)

	var raw accessTokenResponse
	payload, err := f.post(ctx, f.accessTokenURL, query, &raw)
	if err != nil {
		return accessTokenResponse{}, fmt.Errorf("polling token: %w", err)
	}
	raw.payload = payload
	return raw, nil
}

// post sends a body-less POST with query parameters and decodes the JSON answer
// into out. The decoded generic payload is returned for error reporting.
func (f *GitHubDeviceFlow) post(ctx context.Context, endpoint string, query url.Values, out any) (map[string]any, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("%w: decoding response (HTTP %d): %v", domain.ErrProtocol, resp.StatusCode, err)
	}
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)
	return payload, nil
}

func describeDeviceCodeError(code, description, clientID string) string {
	switch code {
	case "Not Found":
		return fmt.Sprintf("GitHub answered Not Found to the device code request; check that %q is a valid OAuth app client id", clientID)
	case "unauthorized_client":
		msg := "device flow is not enabled for this OAuth app; enable it in the app settings on GitHub"
		if description != "" {
			msg += " (" + description + ")"
		}
		return msg
	}
	if description != "" {
		return description
	}
	return fmt.Sprintf("device code request failed: %s", code)
}

// describePollError returns the message for a fatal access token error code.
func describePollError(code, description string) string {
	if description != "" {
		return description
	}
	switch code {
	case "unsupported_grant_type":
		return "Incorrect grant type."
	case "incorrect_client_credentials":
		return "Incorrect clientId."
	case "incorrect_device_code":
		return "Incorrect device code."
	case "access_denied":
		return "The authorized user canceled the access request."
	}
	errMsg := code
	if len(errMsg) > 100 {
		errMsg = errMsg[:100]
	}
	return fmt.Sprintf("unexpected error from GitHub: %s", errMsg)
}
