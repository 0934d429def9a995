package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/waabox/ghauth/internal/domain"
)

const legacyTokenLength = 40

type authorizationRequest struct {
	Scopes []string `json:"scopes"`
	Note   string   `json:"note"`
}

// enterpriseFlow exchanges a username and password (plus a one-time code when
// the server asks for one) for a token on the legacy authorizations endpoint.
// An empty username returns (nil, nil): the user chose not to authenticate.
func (a *Authenticator) enterpriseFlow(ctx context.Context, o Options) (*domain.TokenData, error) {
	user, err := a.prompter.Ask(ctx, o.PromptName+" username: ")
	if err != nil {
		return nil, fmt.Errorf("reading username: %w", err)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, nil
	}

	password, err := a.prompter.AskSecret(ctx, o.PromptName+" password (not stored): ", o.PasswordReplaceChar)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	if utf8.RuneCountInString(password) == legacyTokenLength {
		isToken, err := a.askYesNo(ctx, "This looks like a personal access token. Use it as one? (y/n): ")
		if err != nil {
			return nil, err
		}
		if isToken {
			return &domain.TokenData{User: user, Token: password}, nil
		}
	}

	basic := BasicAuthHeader(user, password)
	otp, err := a.otpIfRequired(ctx, o, basic)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("%s (%s)", o.Note, a.now().UTC().Format(time.RFC3339))
	body, err := json.Marshal(authorizationRequest{Scopes: nonNil(o.Scopes), Note: note})
	if err != nil {
		return nil, fmt.Errorf("encoding authorization request: %w", err)
	}
	req, err := a.enterpriseRequest(ctx, o, basic, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if otp != "" {
		req.Header.Set("X-GitHub-OTP", otp)
	}

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating authorization: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading authorization response: %w", err)
	}
	var answer struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("%w: decoding authorization response (HTTP %d): %v", domain.ErrProtocol, resp.StatusCode, err)
	}
	if answer.Message != "" {
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		return nil, &domain.APIError{Code: strconv.Itoa(resp.StatusCode), Description: answer.Message, Payload: payload}
	}
	if answer.Token == "" {
		return nil, fmt.Errorf("%w: no token from %s", domain.ErrProtocol, o.AuthURL)
	}

	return &domain.TokenData{User: user, Token: answer.Token, Scope: strings.Join(o.Scopes, " ")}, nil
}

// otpIfRequired probes the authorizations endpoint and prompts for a one-time
// code when the server answers with `X-GitHub-OTP: required; ...`.
func (a *Authenticator) otpIfRequired(ctx context.Context, o Options, basic string) (string, error) {
	req, err := a.enterpriseRequest(ctx, o, basic, nil)
	if err != nil {
		return "", err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probing for two-factor requirement: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if !strings.Contains(strings.ToLower(resp.Header.Get("X-GitHub-OTP")), "required") {
		return "", nil
	}
	a.log.Debug("server requires a one-time password")
	otp, err := a.prompter.Ask(ctx, "Your "+o.PromptName+" OTP/2FA Code (required): ")
	if err != nil {
		return "", fmt.Errorf("reading one-time password: %w", err)
	}
	return strings.TrimSpace(otp), nil
}

func (a *Authenticator) enterpriseRequest(ctx context.Context, o Options, basic string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.AuthURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", basic)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", o.UserAgent)
	return req, nil
}

// askYesNo repeats the question until the answer is y or n, case-insensitively.
func (a *Authenticator) askYesNo(ctx context.Context, question string) (bool, error) {
	for {
		answer, err := a.prompter.Ask(ctx, question)
		if err != nil {
			return false, fmt.Errorf("reading answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
