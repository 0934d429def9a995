package auth

import (
	"context"
	"errors"
)

// Prompter reads one line of user input.
type Prompter interface {
	// Ask reads plain text.
	Ask(ctx context.Context, message string) (string, error)
	// AskSecret reads text while echoing mask for every typed character.
	AskSecret(ctx context.Context, message string, mask rune) (string, error)
}

// Spinner shows progress of a long-running step. Implementations must be safe
// for use from more than one goroutine; the poll loop updates the text from
// its own goroutine.
type Spinner interface {
	Start(text string)
	SetText(text string)
	Succeed(text string)
	Fail(text string)
	Warn(text string)
}

// CancelListener watches for the key that abandons the device flow.
type CancelListener interface {
	// Listen registers the listener. pressed is closed when the key is pressed.
	// stop unregisters the listener and must be called on every exit path.
	Listen() (pressed <-chan struct{}, stop func())
}

// ErrNoPrompter is returned by the default prompter when no interactive input was configured.
var ErrNoPrompter = errors.New("no interactive prompter configured")

type noPrompter struct{}

func (noPrompter) Ask(context.Context, string) (string, error) { return "", ErrNoPrompter }

func (noPrompter) AskSecret(context.Context, string, rune) (string, error) {
	return "", ErrNoPrompter
}

type silentSpinner struct{}

func (silentSpinner) Start(string)   {}
func (silentSpinner) SetText(string) {}
func (silentSpinner) Succeed(string) {}
func (silentSpinner) Fail(string)    {}
func (silentSpinner) Warn(string)    {}

// neverCancel is a CancelListener whose key is never pressed.
type neverCancel struct{}

func (neverCancel) Listen() (<-chan struct{}, func()) {
	return make(chan struct{}), func() {}
}
