package tui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// Status line symbols.
const (
	symbolSuccess = "✔"
	symbolWarn    = "⚠"
	symbolFail    = "✖"
	symbolInfo    = "→"
)

// Printer writes status lines. Prompts and spinners write to stderr so that
// stdout stays clean for piping, and so should a Printer.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Success prints a message with a green checkmark.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.out, statusLine(symbolSuccess, fmt.Sprintf(format, args...)))
}

// Fail prints a message with a red cross.
func (p *Printer) Fail(format string, args ...interface{}) {
	fmt.Fprintln(p.out, statusLine(symbolFail, fmt.Sprintf(format, args...)))
}

// Info prints a message with a cyan arrow.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.out, statusLine(symbolInfo, fmt.Sprintf(format, args...)))
}

func statusLine(symbol, msg string) string {
	switch symbol {
	case symbolSuccess:
		symbol = green(symbol)
	case symbolWarn:
		symbol = yellow(symbol)
	case symbolFail:
		symbol = red(symbol)
	case symbolInfo:
		symbol = cyan(symbol)
	}
	return symbol + " " + msg
}
