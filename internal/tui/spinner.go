package tui

import (
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

// spinnerTextMsg replaces the text next to the spinner.
type spinnerTextMsg string

// spinnerDoneMsg replaces the spinner with a final status line and stops it.
type spinnerDoneMsg struct {
	symbol string
	text   string
}

// SpinnerModel renders one spinning line that ends in a status line.
type SpinnerModel struct {
	spin  spinner.Model
	text  string
	final string
}

// NewSpinnerModel creates a spinner showing text.
func NewSpinnerModel(text string) SpinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	return SpinnerModel{spin: s, text: text}
}

// Init starts the spinner animation.
func (m SpinnerModel) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles text changes, completion and animation ticks.
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerTextMsg:
		m.text = string(msg)
		return m, nil
	case spinnerDoneMsg:
		m.final = statusLine(msg.symbol, msg.text)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the spinner line, or the final status line once done.
func (m SpinnerModel) View() string {
	if m.final != "" {
		return m.final + "\n"
	}
	return m.spin.View() + " " + m.text
}

// Spinner shows progress on a terminal. It never reads input, so it can run
// while the Enter listener owns stdin. Safe for concurrent use.
type Spinner struct {
	out  io.Writer
	mu   sync.Mutex
	prog *tea.Program
	done chan struct{}
}

// NewSpinner creates a Spinner writing to out.
func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out}
}

// Start begins a new spinner line. A running spinner is stopped without a status line.
func (s *Spinner) Start(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(nil)

	prog := tea.NewProgram(NewSpinnerModel(text),
		tea.WithInput(nil),
		tea.WithOutput(s.out),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = prog.Run()
	}()
	s.prog, s.done = prog, done
}

// SetText changes the text of the running spinner.
func (s *Spinner) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prog != nil {
		s.prog.Send(spinnerTextMsg(text))
	}
}

// Succeed stops the spinner with a success line.
func (s *Spinner) Succeed(text string) { s.finish(symbolSuccess, text) }

// Fail stops the spinner with a failure line.
func (s *Spinner) Fail(text string) { s.finish(symbolFail, text) }

// Warn stops the spinner with a warning line.
func (s *Spinner) Warn(text string) { s.finish(symbolWarn, text) }

func (s *Spinner) finish(symbol, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prog == nil {
		// nothing spinning: print the status line directly
		_, _ = io.WriteString(s.out, statusLine(symbol, text)+"\n")
		return
	}
	s.stopLocked(&spinnerDoneMsg{symbol: symbol, text: text})
}

func (s *Spinner) stopLocked(final *spinnerDoneMsg) {
	if s.prog == nil {
		return
	}
	if final != nil {
		s.prog.Send(*final)
	} else {
		s.prog.Quit()
	}
	<-s.done
	s.prog, s.done = nil, nil
}
