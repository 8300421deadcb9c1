package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
)

// Notifier prints one line per recorded item, and one per failed cycle, to an output stream.
type Notifier struct {
	out         io.Writer
	colored     bool
	recordStyle lipgloss.Style
	errorLabel  lipgloss.Style
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier writes to out; mode is "auto" (color only on terminals), "always" or "never".
func NewNotifier(out io.Writer, mode string) *Notifier {
	if out == nil {
		out = os.Stdout
	}
	colored := useColor(out, mode)

	renderer := lipgloss.NewRenderer(out)
	if colored {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &Notifier{
		out:         out,
		colored:     colored,
		recordStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		errorLabel:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
}

// NotifyRecord prints the record as a single line.
func (n *Notifier) NotifyRecord(_ context.Context, rec domain.Record) error {
	line := FormatRecord(rec)
	if n.colored {
		line = n.recordStyle.Render(line)
	}
	_, err := fmt.Fprintln(n.out, line)
	return err
}

// NotifyError prints a cycle failure.
func (n *Notifier) NotifyError(_ context.Context, cause error) error {
	label := "Error"
	if n.colored {
		label = n.errorLabel.Render(label)
	}
	_, err := fmt.Fprintf(n.out, "%s: %v\n", label, cause)
	return err
}

// FormatRecord renders the plain notification text for rec.
func FormatRecord(rec domain.Record) string {
	return fmt.Sprintf("%s New: %s (ID: %s, Score: %d, URL: %s)",
		rec.TimeAdded.Format(domain.TimeLayout), rec.Title, rec.ID, rec.Score, rec.URL)
}

func useColor(out io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
