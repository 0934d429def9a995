package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/waabox/ghauth/internal/domain"
)

// runDeviceFlow obtains a token through the device flow and resolves the user
// behind it. It returns domain.ErrInterrupted when the user pressed the cancel
// key before GitHub granted a token.
func (a *Authenticator) runDeviceFlow(ctx context.Context, o Options) (*domain.TokenData, error) {
	flow := newGitHubDeviceFlow(o)
	session, err := flow.RequestCode(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "  Authorize with %s by opening this URL in a browser:\n\n    %s\n\n"+
		"  and enter the following User Code:\n  (or press ⏎ to enter a personal access token)\n\n",
		o.PromptName, session.VerificationURI)
	a.spinner.Start("User Code: " + session.UserCode)

	token, err := a.raceDeviceFlow(ctx, flow, &session, o.PollUnit)
	if err != nil {
		if !errors.Is(err, domain.ErrInterrupted) {
			a.spinner.Fail(err.Error())
		}
		return nil, err
	}

	a.spinner.Succeed(fmt.Sprintf("Device flow complete.  Manage at %s/%s", o.OAuthAppsBaseURL, o.ClientID))
	data := &domain.TokenData{Token: token.AccessToken, Scope: token.Scope}
	if login, ok := a.lookupUser(ctx, o, data.Token); ok {
		data.User = login
	}
	return data, nil
}

// raceDeviceFlow runs the poller against the cancel listener; whichever finishes
// first decides the outcome. The listener only runs while polling and is
// unregistered before returning.
func (a *Authenticator) raceDeviceFlow(ctx context.Context, flow *GitHubDeviceFlow, session *DeviceCodeSession, unit time.Duration) (*accessTokenResponse, error) {
	pressed, stop := a.cancel.Listen()
	defer stop()

	g, raceCtx := errgroup.WithContext(ctx)
	finished := make(chan struct{})

	g.Go(func() error {
		select {
		case <-pressed:
			return domain.ErrInterrupted
		case <-finished:
			return nil
		case <-raceCtx.Done():
			return nil
		}
	})

	var token *accessTokenResponse
	g.Go(func() error {
		defer close(finished)
		resp, err := a.pollAccessToken(ctx, raceCtx, flow, session, unit)
		if err != nil {
			return err
		}
		token = &resp
		return nil
	})

	err := g.Wait()
	if token != nil {
		// a key pressed after the grant does not undo it
		return token, nil
	}
	return nil, err
}

// pollAccessToken polls the access token endpoint every session.Interval units.
// The session is updated in place on slow_down and replaced on expired_token.
// HTTP requests run under ctx so an in-flight request is never aborted by the
// race; raceCtx is only observed between requests.
func (a *Authenticator) pollAccessToken(ctx, raceCtx context.Context, flow *GitHubDeviceFlow, session *DeviceCodeSession, unit time.Duration) (accessTokenResponse, error) {
	interrupted := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return domain.ErrInterrupted
	}

	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(time.Duration(session.Interval) * unit)
		select {
		case <-timer.C:
		case <-raceCtx.Done():
			timer.Stop()
			return accessTokenResponse{}, interrupted()
		}

		resp, err := flow.PollToken(ctx, session.DeviceCode)
		if err != nil {
			return accessTokenResponse{}, err
		}
		if raceCtx.Err() != nil {
			return accessTokenResponse{}, interrupted()
		}

		log := a.log.WithFields(logrus.Fields{"attempt": attempt, "interval": session.Interval})
		if resp.AccessToken != "" {
			log.Debug("access token granted")
			return resp, nil
		}

		switch resp.Error {
		case "", "authorization_pending":
			log.Debug("authorization pending")
		case "slow_down":
			if resp.Interval > 0 {
				session.Interval = resp.Interval
			} else {
				session.Interval += slowDownIntervalBonus
			}
			log.WithField("new_interval", session.Interval).Debug("slowing down")
		case "expired_token":
			log.Debug("device code expired, requesting a new one")
			a.spinner.SetText("User Code: Updating...")
			fresh, err := flow.RequestCode(ctx)
			if err != nil {
				return accessTokenResponse{}, err
			}
			*session = fresh
			a.spinner.SetText("User Code: " + session.UserCode)
		default:
			return accessTokenResponse{}, &domain.APIError{
				Code:        resp.Error,
				Description: describePollError(resp.Error, resp.ErrorDescription),
				Payload:     resp.payload,
			}
		}
	}
}
