package destination

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/severity"
	"loghelper/internal/theme"
)

// Console writes formatted lines to a writer, standard output by default.
type Console struct {
	base
	out     io.Writer
	colored bool
	theme   theme.Theme
}

// ConsoleOption customises a Console.
type ConsoleOption func(*Console)

// WithColor styles each line according to its severity. Every physical line
// of a record is styled on its own and tabs are kept, so only escape
// sequences are added to the formatted text.
func WithColor(t theme.Theme) ConsoleOption {
	return func(c *Console) {
		c.colored = true
		c.theme = t
	}
}

// NewConsole creates a console destination. A nil writer selects os.Stdout.
func NewConsole(out io.Writer, threshold severity.Level, formatter *format.Formatter, opts ...ConsoleOption) *Console {
	if out == nil {
		out = os.Stdout
	}
	c := &Console{base: newBase(threshold, formatter), out: out}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Kind() domain.DestinationKind {
	return domain.KindConsole
}

// Colored reports whether lines are styled per severity.
func (c *Console) Colored() bool {
	return c.colored
}

func (c *Console) Handle(rec domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := c.formatter.Format(rec)
	if c.colored {
		line = colorize(c.theme.ForLevel(rec.Level), line)
	}
	_, err := io.WriteString(c.out, line+"\n")
	return err
}

func colorize(style lipgloss.Style, text string) string {
	style = style.TabWidth(lipgloss.NoTabConversion)
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

// Close leaves the underlying writer open.
func (c *Console) Close() error {
	return nil
}
