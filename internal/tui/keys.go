package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// EnterModel closes Pressed the first time Enter is pressed.
type EnterModel struct {
	pressed chan struct{}
	once    *sync.Once
	abort   func()
}

// NewEnterModel creates an EnterModel. abort, if set, runs on ctrl+c.
func NewEnterModel(abort func()) EnterModel {
	return EnterModel{pressed: make(chan struct{}), once: &sync.Once{}, abort: abort}
}

// Pressed is closed once Enter has been seen.
func (m EnterModel) Pressed() <-chan struct{} {
	return m.pressed
}

// Init does nothing; the model only reacts to keys.
func (m EnterModel) Init() tea.Cmd {
	return nil
}

// Update watches for Enter (CR in raw mode, LF in cooked mode) and ctrl+c.
func (m EnterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyEnter, tea.KeyCtrlJ:
		m.once.Do(func() { close(m.pressed) })
		return m, tea.Quit
	case tea.KeyCtrlC:
		if m.abort != nil {
			m.abort()
		}
		return m, tea.Quit
	}
	return m, nil
}

// View renders nothing; the listener runs without a renderer.
func (m EnterModel) View() string {
	return ""
}

// EnterListener reports presses of the Enter key on in. Each Listen starts a
// reader that its stop function cancels, so no goroutine keeps consuming input
// meant for the next prompt.
type EnterListener struct {
	in    io.Reader
	abort func()
}

// NewEnterListener creates an EnterListener reading from in.
// abort is called when the user presses ctrl+c while listening.
func NewEnterListener(in io.Reader, abort func()) *EnterListener {
	return &EnterListener{in: in, abort: abort}
}

// Listen starts watching for Enter. stop is idempotent and waits for the reader to exit.
func (l *EnterListener) Listen() (<-chan struct{}, func()) {
	model := NewEnterModel(l.abort)
	prog := tea.NewProgram(model,
		tea.WithInput(l.in),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = prog.Run()
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			prog.Quit()
			<-done
		})
	}
	return model.Pressed(), stop
}
