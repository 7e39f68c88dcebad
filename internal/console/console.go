// Package console writes user-facing CLI output with lipgloss styles.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled messages. Styling adapts to the writers: plain
// output when they are not terminals or NO_COLOR is set.
type Printer struct {
	out io.Writer
	err io.Writer

	title   lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

// New returns a Printer writing results to out and diagnostics to errw.
func New(out, errw io.Writer) *Printer {
	outR := lipgloss.NewRenderer(out)
	errR := lipgloss.NewRenderer(errw)
	return &Printer{
		out:     out,
		err:     errw,
		title:   outR.NewStyle().Bold(true).Foreground(lipgloss.Color("#3A8FC8")),
		success: outR.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		muted:   outR.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		warn:    errR.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
		fail:    errR.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
	}
}

// Out returns the result writer, for tables and charts written directly.
func (p *Printer) Out() io.Writer { return p.out }

// Title prints a heading followed by a blank line.
func (p *Printer) Title(format string, args ...any) {
	p.line(p.out, p.title.Render(fmt.Sprintf(format, args...)))
	p.line(p.out, "")
}

// Success prints a confirmation.
func (p *Printer) Success(format string, args ...any) {
	p.line(p.out, p.success.Render(fmt.Sprintf(format, args...)))
}

// Info prints muted supplementary text.
func (p *Printer) Info(format string, args ...any) {
	p.line(p.out, p.muted.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning to the diagnostic writer.
func (p *Printer) Warn(format string, args ...any) {
	p.line(p.err, p.warn.Render("warning: "+fmt.Sprintf(format, args...)))
}

// Error prints an error to the diagnostic writer. Multi-line messages keep
// their line breaks.
func (p *Printer) Error(err error) {
	for _, l := range strings.Split(err.Error(), "\n") {
		p.line(p.err, p.fail.Render(l))
	}
}

// Text writes preformatted text as is.
func (p *Printer) Text(s string) {
	if _, err := io.WriteString(p.out, s); err != nil {
		// Best-effort console output.
		_ = err
	}
}

func (p *Printer) line(w io.Writer, s string) {
	if _, err := fmt.Fprintln(w, s); err != nil {
		// Best-effort console output.
		_ = err
	}
}
