package app

import (
	"fmt"
	"io"
	"os"

	"gdaserver/internal/orchestrator"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{
		Light: "#5A56E0",
		Dark:  "#7571F9",
	}
	colorWarning = lipgloss.AdaptiveColor{
		Light: "#D97706",
		Dark:  "#F59E0B",
	}

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	bannerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	noticeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning)
)

// renderBanner draws a boxed banner with a title line followed by lines.
func renderBanner(title string, lines ...string) string {
	rows := make([]string, 0, len(lines)+1)
	rows = append(rows, bannerTitleStyle.Render(title))
	rows = append(rows, lines...)
	return bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// terminalNotifier tells an interactive user that shutdown has started.
type terminalNotifier struct {
	out io.Writer
}

// newTerminalNotifier returns a notifier writing to f, or nil when f is not
// a terminal.
func newTerminalNotifier(f *os.File) orchestrator.Notifier {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return &terminalNotifier{out: f}
}

func (n *terminalNotifier) NotifyShutdown() {
	fmt.Fprintln(n.out, noticeStyle.Render("GDA server is shutting down"))
}
