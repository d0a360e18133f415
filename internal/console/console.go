// Package console renders user-facing terminal output: status badges, the
// dev-server address block and the build asset summary. Diagnostics go
// through slog; everything here is meant for humans reading stdout.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled lines to an output stream. Colours are dropped when
// the stream is not a terminal.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	silent bool

	doneBadge  lipgloss.Style
	infoBadge  lipgloss.Style
	warnBadge  lipgloss.Style
	errorBadge lipgloss.Style
	accent     lipgloss.Style
	dim        lipgloss.Style
	bold       lipgloss.Style
	asset      map[string]lipgloss.Style
}

// New returns a Console writing to out.
func New(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	badge := func(bg string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color(bg)).Padding(0, 1)
	}
	return &Console{
		out:        out,
		doneBadge:  badge("2"),
		infoBadge:  badge("6"),
		warnBadge:  badge("3"),
		errorBadge: badge("1"),
		accent:     r.NewStyle().Foreground(lipgloss.Color("6")),
		dim:        r.NewStyle().Faint(true),
		bold:       r.NewStyle().Bold(true),
		asset: map[string]lipgloss.Style{
			"js":    r.NewStyle().Foreground(lipgloss.Color("6")),
			"css":   r.NewStyle().Foreground(lipgloss.Color("5")),
			"other": r.NewStyle().Foreground(lipgloss.Color("2")),
		},
	}
}

// Stdout returns a Console on os.Stdout.
func Stdout() *Console { return New(os.Stdout) }

// Discard returns a Console that prints nothing.
func Discard() *Console { return New(io.Discard) }

// SetSilent suppresses all output except errors.
func (c *Console) SetSilent(silent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silent = silent
}

// Println writes a plain line.
func (c *Console) Println(a ...any) {
	c.write(false, fmt.Sprintln(a...))
}

// Printf writes formatted text.
func (c *Console) Printf(format string, a ...any) {
	c.write(false, fmt.Sprintf(format, a...))
}

// Step announces the start of a long-running step.
func (c *Console) Step(msg string) {
	c.write(false, c.accent.Render("- ")+msg+"\n")
}

// Done prints a success line.
func (c *Console) Done(msg string) {
	c.write(false, c.doneBadge.Render("DONE")+" "+msg+"\n")
}

// Info prints an informational line.
func (c *Console) Info(msg string) {
	c.write(false, c.infoBadge.Render("INFO")+" "+msg+"\n")
}

// Warn prints a warning line.
func (c *Console) Warn(msg string) {
	c.write(false, c.warnBadge.Render("WARN")+" "+msg+"\n")
}

// Error prints an error line. Errors are printed even when silent.
func (c *Console) Error(msg string) {
	c.write(true, c.errorBadge.Render("ERROR")+" "+msg+"\n")
}

// Signal prints a machine-readable marker line. Markers are printed even
// when silent.
func (c *Console) Signal(marker string) {
	c.write(true, marker+"\n")
}

// Messages prints compiler diagnostics, one block per message.
func (c *Console) Messages(title string, msgs []string) {
	if len(msgs) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for _, m := range msgs {
		b.WriteString(m + "\n\n")
	}
	c.write(true, b.String())
}

// Accent renders s in the accent colour.
func (c *Console) Accent(s string) string { return c.accent.Render(s) }

// Bold renders s in bold.
func (c *Console) Bold(s string) string { return c.bold.Render(s) }

// Dim renders s faint.
func (c *Console) Dim(s string) string { return c.dim.Render(s) }

func (c *Console) write(force bool, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.silent && !force {
		return
	}
	_, _ = io.WriteString(c.out, s)
}
