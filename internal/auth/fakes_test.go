package auth_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/waabox/ghauth/internal/auth"
	"github.com/waabox/ghauth/internal/domain"
)

// scriptedPrompter answers prompts from fixed queues and records what was asked.
type scriptedPrompter struct {
	mu      sync.Mutex
	answers []string
	secrets []string
	asked   []string
	masks   []rune
}

func (p *scriptedPrompter) Ask(_ context.Context, message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, message)
	if len(p.answers) == 0 {
		return "", fmt.Errorf("unexpected prompt %q", message)
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *scriptedPrompter) AskSecret(_ context.Context, message string, mask rune) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, message)
	p.masks = append(p.masks, mask)
	if len(p.secrets) == 0 {
		return "", fmt.Errorf("unexpected secret prompt %q", message)
	}
	secret := p.secrets[0]
	p.secrets = p.secrets[1:]
	return secret, nil
}

func (p *scriptedPrompter) prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

// recordingSpinner keeps every spinner event as "kind:text".
type recordingSpinner struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSpinner) record(kind, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, kind+":"+text)
}

func (s *recordingSpinner) Start(text string)   { s.record("start", text) }
func (s *recordingSpinner) SetText(text string) { s.record("text", text) }
func (s *recordingSpinner) Succeed(text string) { s.record("succeed", text) }
func (s *recordingSpinner) Fail(text string)    { s.record("fail", text) }
func (s *recordingSpinner) Warn(text string)    { s.record("warn", text) }

func (s *recordingSpinner) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// manualListener is a CancelListener pressed from the test.
type manualListener struct {
	mu      sync.Mutex
	pressed chan struct{}
	once    sync.Once
	listens int
	stops   int
}

func newManualListener() *manualListener {
	return &manualListener{pressed: make(chan struct{})}
}

func (l *manualListener) Listen() (<-chan struct{}, func()) {
	l.mu.Lock()
	l.listens++
	l.mu.Unlock()
	return l.pressed, func() {
		l.mu.Lock()
		l.stops++
		l.mu.Unlock()
	}
}

func (l *manualListener) press() {
	l.once.Do(func() { close(l.pressed) })
}

func (l *manualListener) counts() (listens, stops int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listens, l.stops
}

// memStore is an in-memory CredentialStore.
type memStore struct {
	mu      sync.Mutex
	data    *domain.TokenData
	reads   int
	writes  int
	readErr error
}

func (s *memStore) Read() (*domain.TokenData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.data == nil {
		return nil, nil
	}
	copied := *s.data
	return &copied, nil
}

func (s *memStore) Write(data domain.TokenData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.data = &data
	return nil
}

func (s *memStore) Path() string { return "/fake/path/config.json" }

type harness struct {
	prompter *scriptedPrompter
	spinner  *recordingSpinner
	listener *manualListener
	store    *memStore
	out      *bytes.Buffer
	names    []string
}

func newHarness() *harness {
	return &harness{
		prompter: &scriptedPrompter{},
		spinner:  &recordingSpinner{},
		listener: newManualListener(),
		store:    &memStore{},
		out:      &bytes.Buffer{},
	}
}

func (h *harness) authenticator(extra ...auth.Option) *auth.Authenticator {
	opts := []auth.Option{
		auth.WithPrompter(h.prompter),
		auth.WithSpinner(h.spinner),
		auth.WithCancelListener(h.listener),
		auth.WithOutput(h.out),
		auth.WithStore(func(name string) auth.CredentialStore {
			h.names = append(h.names, name)
			return h.store
		}),
	}
	return auth.New(append(opts, extra...)...)
}

var errUnexpectedStore = errors.New("store must not be used")

// forbiddenStore fails the test through its error if touched.
type forbiddenStore struct{}

func (forbiddenStore) Read() (*domain.TokenData, error) { return nil, errUnexpectedStore }
func (forbiddenStore) Write(domain.TokenData) error      { return errUnexpectedStore }
func (forbiddenStore) Path() string                      { return "" }
