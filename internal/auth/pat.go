package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/waabox/ghauth/internal/domain"
)

const patPromptWidth = 80

// patFlow prompts for a personal access token, checks its format and attaches
// the login it belongs to when the lookup succeeds.
func (a *Authenticator) patFlow(ctx context.Context, o Options) (*domain.TokenData, error) {
	scopes := "(no scopes necessary)"
	if len(o.Scopes) > 0 {
		scopes = "with the following scopes: " + strings.Join(o.Scopes, ", ")
	}
	msg := Newlineify(patPromptWidth,
		fmt.Sprintf("Enter a personal access token generated at %s %s", o.PATURL, scopes)) + "\nPAT: "

	pat, err := a.prompter.AskSecret(ctx, msg, o.PasswordReplaceChar)
	if err != nil {
		return nil, fmt.Errorf("reading personal access token: %w", err)
	}
	pat = strings.TrimSpace(pat)
	if pat == "" {
		return nil, fmt.Errorf("%w: empty personal access token received", domain.ErrInvalidArgument)
	}
	if !IsValidPAT(pat) {
		return nil, fmt.Errorf("%w: personal access token is not a recognised GitHub token format", domain.ErrInvalidArgument)
	}

	data := &domain.TokenData{Token: pat}
	if login, ok := a.lookupUser(ctx, o, pat); ok {
		data.User = login
	}
	return data, nil
}
