// Package display owns terminal presentation: the shared lipgloss styles,
// duration formatting, and highlighted JSON output.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func init() {
	// Honor NO_COLOR and dumb terminals; lipgloss renders plain text when
	// the profile is Ascii.
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Check is the per-item success marker.
func Check() string { return successStyle.Render("[✓]") }

// Cross is the per-item failure marker.
func Cross() string { return failureStyle.Render("[✗]") }

// Success styles an all-good headline.
func Success(s string) string { return successStyle.Render(s) }

// Failure styles an error headline.
func Failure(s string) string { return failureStyle.Render(s) }

// Summary styles a mixed-outcome headline.
func Summary(s string) string { return summaryStyle.Render(s) }

// Dim styles secondary detail.
func Dim(s string) string { return dimStyle.Render(s) }

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// JSON writes v as indented JSON. On a terminal the output is syntax
// highlighted; piped output stays plain so it can be fed to other tools.
func JSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if IsTTY(w) && !termenv.EnvNoColor() {
		return quick.Highlight(w, string(data)+"\n", "json", "terminal256", "monokai")
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Duration renders a second count as h:mm:ss, dropping leading zero parts
// the way music players do: 65 -> "01:05", 3700 -> "01:01:40".
func Duration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
