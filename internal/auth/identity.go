package auth

import (
	"context"
	"net/url"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// lookupUser resolves the login behind token with GET /user.
// It is best effort: any failure is reported on the spinner, logged and
// returned as ok == false, never as an error.
func (a *Authenticator) lookupUser(ctx context.Context, o Options, token string) (login string, ok bool) {
	a.spinner.Start("Retrieving user...")

	client, err := newAPIClient(ctx, o, token)
	if err != nil {
		a.log.WithError(err).Debug("building API client")
		a.spinner.Fail("Failed to retrieve user info: " + err.Error())
		return "", false
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		a.log.WithError(err).Debug("identity lookup failed")
		a.spinner.Fail("Failed to retrieve user info: " + err.Error())
		return "", false
	}
	if user.GetLogin() == "" {
		a.spinner.Fail("Failed to retrieve user info.")
		return "", false
	}

	a.spinner.Succeed("Authorized for " + user.GetLogin())
	return user.GetLogin(), true
}

func newAPIClient(ctx context.Context, o Options, token string) (*github.Client, error) {
	baseURL, err := url.Parse(o.APIBaseURL)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	client := github.NewClient(httpClient)
	client.BaseURL = baseURL
	client.UserAgent = o.UserAgent
	return client, nil
}
