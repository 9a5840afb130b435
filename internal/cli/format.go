package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/randalmurphal/dossier/internal/workflow"
)

const defaultWidth = 100

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	soonStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	priorityStyles = map[workflow.Priority]lipgloss.Style{
		workflow.PriorityUrgent: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		workflow.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		workflow.PriorityNormal: lipgloss.NewStyle(),
		workflow.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

// terminal describes the output stream: whether to style it and how wide
// it is.
type terminal struct {
	color bool
	width int
}

func detectTerminal(w io.Writer) terminal {
	t := terminal{width: defaultWidth}
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return t
	}
	t.color = os.Getenv("NO_COLOR") == ""
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		t.width = width
	}
	return t
}

func (t terminal) render(s lipgloss.Style, text string) string {
	if !t.color {
		return text
	}
	return s.Render(text)
}

func statusIcon(s workflow.Status) string {
	switch s {
	case workflow.StatusInReview:
		return "⏳"
	case workflow.StatusApproved:
		return "✅"
	case workflow.StatusRejected:
		return "❌"
	case workflow.StatusCancelled:
		return "⊘"
	default:
		return "❓"
	}
}

// truncate shortens s to max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return "..."[:max]
	}
	return string(r[:max-3]) + "..."
}

// relativeDue renders a due date relative to now, e.g. "in 3h" or
// "5h overdue".
func relativeDue(due, now time.Time) string {
	d := due.Sub(now)
	if d < 0 {
		return humanDuration(-d) + " overdue"
	}
	return "in " + humanDuration(d)
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

func stageLabel(s workflow.Stage) string {
	return fmt.Sprintf("%d %s", int(s), s.Name())
}
