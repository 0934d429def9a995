package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/ghauth/internal/auth"
	"github.com/waabox/ghauth/internal/domain"
)

var (
	legacyPAT  = strings.Repeat("a", 40)
	classicPAT = "ghp_" + strings.Repeat("Z", 36)
)

// fakeGitHub serves the device flow endpoints and GET /user.
// Queued responses are consumed in order; the last one repeats.
type fakeGitHub struct {
	t      *testing.T
	server *httptest.Server

	mu             sync.Mutex
	deviceCodes    []map[string]any
	polls          []map[string]any
	deviceRequests int
	pollTimes      []time.Time
	pollCodes      []string
	userRequests   int
	userAuth       string
	userStatus     int
	login          string
	onPoll         func(n int)
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{
		t:           t,
		deviceCodes: []map[string]any{{"device_code": "dev_1", "user_code": "AAAA-1111", "interval": 1}},
		polls:       []map[string]any{{"access_token": "gho_token", "scope": "repo"}},
		userStatus:  http.StatusOK,
		login:       "octocat",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func next(queue *[]map[string]any) map[string]any {
	resp := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return resp
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	switch r.URL.Path {
	case "/login/device/code":
		f.deviceRequests++
		resp := next(&f.deviceCodes)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(resp)
	case "/login/oauth/access_token":
		f.pollTimes = append(f.pollTimes, time.Now())
		f.pollCodes = append(f.pollCodes, r.URL.Query().Get("device_code"))
		n := len(f.pollTimes)
		resp := next(&f.polls)
		onPoll := f.onPoll
		f.mu.Unlock()
		if onPoll != nil {
			onPoll(n)
		}
		json.NewEncoder(w).Encode(resp)
	case "/user":
		f.userRequests++
		f.userAuth = r.Header.Get("Authorization")
		status, login := f.userStatus, f.login
		f.mu.Unlock()
		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{"login": login, "id": 1})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"message": "Bad credentials"})
	default:
		f.mu.Unlock()
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGitHub) options(clientID string) *auth.Options {
	return &auth.Options{
		ConfigName:     "test",
		ClientID:       clientID,
		Scopes:         []string{"repo"},
		DeviceCodeURL:  f.server.URL + "/login/device/code",
		AccessTokenURL: f.server.URL + "/login/oauth/access_token",
		APIBaseURL:     f.server.URL + "/",
		PollUnit:       time.Millisecond,
	}
}

func (f *fakeGitHub) stats() (deviceRequests, polls, userRequests int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceRequests, len(f.pollTimes), f.userRequests
}

func (f *fakeGitHub) lastUserAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userAuth
}

func (f *fakeGitHub) polledCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pollCodes...)
}

func TestAuth_NilOptionsIsInvalidArgument(t *testing.T) {
	_, err := newHarness().authenticator().Auth(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAuth_MissingConfigNameIsInvalidArgument(t *testing.T) {
	h := newHarness()
	_, err := h.authenticator().Auth(context.Background(), &auth.Options{ClientID: "abc"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "configName")
	assert.Empty(t, h.prompter.prompts())
}

func TestAuth_ReturnsCachedRecordWithoutNetworkOrPrompt(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newHarness()
	h.store.data = &domain.TokenData{User: "u", Token: "t"}

	got, err := h.authenticator().Auth(context.Background(), gh.options("client"))
	require.NoError(t, err)
	assert.Equal(t, domain.TokenData{User: "u", Token: "t"}, got)

	deviceRequests, polls, users := gh.stats()
	assert.Zero(t, deviceRequests+polls+users)
	assert.Empty(t, h.prompter.prompts())
	assert.Equal(t, []string{"test"}, h.names)
	assert.Zero(t, h.store.writes)
}

func TestAuth_IncompleteCachedRecordIsIgnored(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newHarness()
	h.store.data = &domain.TokenData{Token: "t"}
	h.prompter.secrets = []string{legacyPAT}

	got, err := h.authenticator().Auth(context.Background(), gh.options(""))
	require.NoError(t, err)
	assert.Equal(t, legacyPAT, got.Token)
}

func TestAuth_CacheReadErrorPropagates(t *testing.T) {
	h := newHarness()
	h.store.readErr = errors.New("disk on fire")
	_, err := h.authenticator().Auth(context.Background(), &auth.Options{ConfigName: "test"})
	assert.EqualError(t, err, "disk on fire")
}

func TestAuth_WithoutClientIDUsesPATFlow(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newHarness()
	h.prompter.secrets = []string{legacyPAT}

	got, err := h.authenticator().Auth(context.Background(), gh.options(""))
	require.NoError(t, err)
	assert.Equal(t, domain.TokenData{User: "octocat", Token: legacyPAT}, got)

	deviceRequests, polls, users := gh.stats()
	assert.Zero(t, deviceRequests, "no device code request expected")
	assert.Zero(t, polls)
	assert.Equal(t, 1, users)
	assert.Equal(t, "Bearer "+legacyPAT, gh.lastUserAuth())

	prompts := h.prompter.prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "https://github.com/settings/tokens")
	assert.Equal(t, auth.Newlineify(80,
		"Enter a personal access token generated at https://github.com/settings/tokens with the following scopes: repo")+"\nPAT: ",
		prompts[0])
	assert.True(t, strings.HasSuffix(prompts[0], "PAT: "))
	assert.Equal(t, []rune{'✔'}, h.prompter.masks)

	assert.Equal(t, 1, h.store.writes)
	assert.Equal(t, got, *h.store.data)
	assert.Contains(t, h.out.String(), `Wrote access token to "/fake/path/config.json"`)
	assert.Contains(t, h.spinner.all(), "succeed:Authorized for octocat")
}

func TestAuth_NoDeviceFlowForcesPATFlow(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newHarness()
	h.prompter.secrets = []string{classicPAT}
	opts := gh.options("client")
	opts.NoDeviceFlow = true
	opts.PasswordReplaceChar = '*'

	got, err := h.authenticator().Auth(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, classicPAT, got.Token)
	assert.Equal(t, []rune{'*'}, h.prompter.masks)

	deviceRequests, _, _ := gh.stats()
	assert.Zero(t, deviceRequests)
}

func TestAuth_PATFlowRejectsEmptyAndMalformedTokens(t *testing.T) {
	gh := newFakeGitHub(t)
	for _, pat := range []string{"", "   ", "ghp_short", strings.Repeat("x", 40)} {
		h := newHarness()
		h.prompter.secrets = []string{pat}
		_, err := h.authenticator().Auth(context.Background(), gh.options(""))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "pat %q", pat)
		assert.Zero(t, h.store.writes)
	}
	_, _, users := gh.stats()
	assert.Zero(t, users)
}

func TestAuth_DeviceFlowPendingThenGranted(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.polls = []map[string]any{
		{"error": "authorization_pending"},
		{"access_token": "X", "scope": "repo,gist"},
	}
	h := newHarness()

	got, err := h.authenticator().Auth(context.Background(), gh.options("client"))
	require.NoError(t, err)
	assert.Equal(t, domain.TokenData{User: "octocat", Token: "X", Scope: "repo,gist"}, got)

	deviceRequests, polls, _ := gh.stats()
	assert.Equal(t, 1, deviceRequests)
	assert.Equal(t, 2, polls)
	assert.Equal(t, "Bearer X", gh.lastUserAuth())

	listens, stops := h.listener.counts()
	assert.Equal(t, 1, listens)
	assert.Equal(t, 1, stops)

	assert.Contains(t, h.out.String(), "https://github.com/login/device")
	events := h.spinner.all()
	assert.Contains(t, events, "start:User Code: AAAA-1111")
	assert.Contains(t, events, "succeed:Device flow complete.  Manage at https://github.com/settings/connections/applications/client")
	assert.Empty(t, h.prompter.prompts())
}

func TestAuth_DeviceFlowSlowDownAdoptsServerInterval(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.polls = []map[string]any{
		{"error": "slow_down", "interval": 10},
		{"access_token": "X"},
	}
	h := newHarness()
	opts := gh.options("client")
	opts.PollUnit = 5 * time.Millisecond

	_, err := h.authenticator().Auth(context.Background(), opts)
	require.NoError(t, err)

	gh.mu.Lock()
	defer gh.mu.Unlock()
	require.Len(t, gh.pollTimes, 2)
	assert.GreaterOrEqual(t, gh.pollTimes[1].Sub(gh.pollTimes[0]), 10*opts.PollUnit)
}

func TestAuth_DeviceFlowExpiredTokenRequestsNewCode(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.deviceCodes = []map[string]any{
		{"device_code": "dev_1", "user_code": "AAAA-1111", "interval": 1},
		{"device_code": "dev_2", "user_code": "BBBB-2222", "interval": 1},
	}
	gh.polls = []map[string]any{
		{"error": "expired_token"},
		{"access_token": "X"},
	}
	h := newHarness()

	got, err := h.authenticator().Auth(context.Background(), gh.options("client"))
	require.NoError(t, err)
	assert.Equal(t, "X", got.Token)

	deviceRequests, _, _ := gh.stats()
	assert.Equal(t, 2, deviceRequests)
	assert.Equal(t, []string{"dev_1", "dev_2"}, gh.polledCodes())

	events := h.spinner.all()
	assert.Contains(t, events, "text:User Code: Updating...")
	assert.Contains(t, events, "text:User Code: BBBB-2222")
}

func TestAuth_DeviceFlowFatalErrors(t *testing.T) {
	for _, code := range []string{"unsupported_grant_type", "incorrect_client_credentials", "incorrect_device_code", "access_denied"} {
		t.Run(code, func(t *testing.T) {
			gh := newFakeGitHub(t)
			gh.polls = []map[string]any{{"error": code}}
			h := newHarness()

			_, err := h.authenticator().Auth(context.Background(), gh.options("client"))
			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, code, apiErr.Code)
			assert.NotEmpty(t, apiErr.Error())

			_, polls, _ := gh.stats()
			assert.Equal(t, 1, polls)
			assert.Empty(t, h.prompter.prompts(), "fatal errors must not fall back to the PAT prompt")
			_, stops := h.listener.counts()
			assert.Equal(t, 1, stops)
			assert.Zero(t, h.store.writes)
		})
	}
}

func TestAuth_DeviceFlowServerDescriptionIsPreserved(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.polls = []map[string]any{{"error": "access_denied", "error_description": "octocat said no"}}

	_, err := newHarness().authenticator().Auth(context.Background(), gh.options("client"))
	assert.EqualError(t, err, "octocat said no")
}

func TestAuth_DeviceCodeErrorIsFatal(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.deviceCodes = []map[string]any{{"error": "unauthorized_client"}}
	h := newHarness()

	_, err := h.authenticator().Auth(context.Background(), gh.options("client"))
	assert.ErrorIs(t, err, domain.ErrAPI)
	assert.Contains(t, err.Error(), "device flow is not enabled")
	assert.Empty(t, h.prompter.prompts())
}

func TestAuth_CancelKeyFallsBackToPATOnce(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.polls = []map[string]any{{"error": "authorization_pending"}}
	h := newHarness()
	h.prompter.secrets = []string{legacyPAT}
	gh.onPoll = func(n int) {
		if n == 1 {
			h.listener.press()
		}
	}
	opts := gh.options("client")
	opts.PollUnit = 5 * time.Millisecond

	got, err := h.authenticator().Auth(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenData{User: "octocat", Token: legacyPAT}, got)

	listens, stops := h.listener.counts()
	assert.Equal(t, 1, listens)
	assert.Equal(t, 1, stops, "listener must be unregistered after the race")

	prompts := h.prompter.prompts()
	require.Len(t, prompts, 1, "PAT prompt expected exactly once")
	assert.Contains(t, prompts[0], "PAT: ")
	assert.Contains(t, h.spinner.all(), "warn:Device flow canceled.")

	// no polling continues once the race is decided
	_, pollsAfter, _ := gh.stats()
	time.Sleep(20 * time.Millisecond)
	_, pollsLater, _ := gh.stats()
	assert.Equal(t, pollsAfter, pollsLater)
}

// A granted token whose user cannot be resolved fails end to end. Callers rely
// on every returned credential carrying a user, so this stays as is.
func TestAuth_IdentityLookupFailureFailsAuthentication(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.userStatus = http.StatusInternalServerError
	h := newHarness()

	_, err := h.authenticator().Auth(context.Background(), gh.options("client"))
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	assert.Zero(t, h.store.writes)

	var sawFailure bool
	for _, e := range h.spinner.all() {
		if strings.HasPrefix(e, "fail:Failed to retrieve user info") {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure)
}

func TestAuth_NoSaveSkipsStore(t *testing.T) {
	gh := newFakeGitHub(t)
	h := newHarness()
	h.prompter.secrets = []string{legacyPAT}
	opts := gh.options("")
	opts.ConfigName = ""
	opts.NoSave = true

	a := h.authenticator(auth.WithStore(func(string) auth.CredentialStore { return forbiddenStore{} }))
	got, err := a.Auth(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, legacyPAT, got.Token)
	assert.NotContains(t, h.out.String(), "Wrote access token")
}

func TestAuth_ContextCancellationStopsPolling(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.polls = []map[string]any{{"error": "authorization_pending"}}
	h := newHarness()

	ctx, cancel := context.WithCancel(context.Background())
	gh.onPoll = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	_, err := h.authenticator().Auth(ctx, gh.options("client"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.prompter.prompts())
	_, stops := h.listener.counts()
	assert.Equal(t, 1, stops)
}

func TestAuth_RejectsRelativeEndpoint(t *testing.T) {
	_, err := newHarness().authenticator().Auth(context.Background(), &auth.Options{
		ConfigName:    "test",
		DeviceCodeURL: "/login/device/code",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
