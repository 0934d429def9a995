package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrPromptAborted is returned when the user leaves a prompt with ctrl+c or esc.
var ErrPromptAborted = errors.New("prompt aborted")

// PromptModel reads a single line of input below a message.
type PromptModel struct {
	message   string
	input     textinput.Model
	submitted bool
	aborted   bool
}

// NewPromptModel creates a prompt. A non-zero mask hides the input, echoing
// mask once per typed character.
func NewPromptModel(message string, mask rune) PromptModel {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 512
	if mask != 0 {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = mask
	}
	ti.Focus()
	return PromptModel{message: message, input: ti}
}

// Value returns the text entered so far.
func (m PromptModel) Value() string {
	return m.input.Value()
}

// Submitted reports whether the user confirmed the input with Enter.
func (m PromptModel) Submitted() bool {
	return m.submitted
}

// Aborted reports whether the user left the prompt without answering.
func (m PromptModel) Aborted() bool {
	return m.aborted
}

// Init starts the cursor blink.
func (m PromptModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles submit and abort keys and forwards the rest to the text input.
func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			m.input.Blur()
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			m.input.Blur()
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the message followed by the (possibly masked) input.
func (m PromptModel) View() string {
	view := m.message + m.input.View()
	if m.submitted || m.aborted {
		view += "\n"
	}
	return view
}

// Prompter asks questions on a terminal.
type Prompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading from in and drawing on out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Ask reads a line of plain text.
func (p *Prompter) Ask(ctx context.Context, message string) (string, error) {
	return p.run(ctx, NewPromptModel(message, 0))
}

// AskSecret reads a line of text, echoing mask for every character typed.
func (p *Prompter) AskSecret(ctx context.Context, message string, mask rune) (string, error) {
	if mask == 0 {
		mask = '*'
	}
	return p.run(ctx, NewPromptModel(message, mask))
}

func (p *Prompter) run(ctx context.Context, model PromptModel) (string, error) {
	prog := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("running prompt: %w", err)
	}
	result := final.(PromptModel)
	if result.Aborted() {
		return "", ErrPromptAborted
	}
	return result.Value(), nil
}
