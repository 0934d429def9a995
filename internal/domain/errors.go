// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when caller input is missing or malformed
// (options, configName, an empty or badly formatted personal access token).
var ErrInvalidArgument = errors.New("invalid argument")

// ErrProtocol is returned when GitHub answers with a body that lacks the fields
// the protocol requires.
var ErrProtocol = errors.New("protocol error")

// ErrAuthenticationFailed is returned when a flow finished without producing both
// a user and a token.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrInterrupted signals that the user cancelled the device flow.
// It never leaves the auth package: the orchestrator turns it into the PAT fallback.
var ErrInterrupted = errors.New("device flow interrupted")

// ErrAPI matches any *APIError with errors.Is.
var ErrAPI = errors.New("github api error")

// APIError carries an error reported by GitHub in an `error` or `message` field.
type APIError struct {
	Code        string
	Description string
	Payload     map[string]any
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("github error: %s", e.Code)
}

// Is reports whether target is ErrAPI.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}
