// Package styles holds the console's lipgloss palette and message formatters.
package styles

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

var (
	Accent  = lipgloss.Color("#7C3AED")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Info    = lipgloss.Color("#3B82F6")
	Muted   = lipgloss.Color("#6B7280")

	BgHighlight = lipgloss.Color("#1F2937")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoStyle    = lipgloss.NewStyle().Foreground(Info)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	Bold         = lipgloss.NewStyle().Bold(true)

	TitleStyle    = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	HelpKey       = lipgloss.NewStyle().Foreground(Accent)
	SelectedStyle = lipgloss.NewStyle().Background(BgHighlight).Bold(true)

	// BadgeStyle frames an active filter in the browse header.
	BadgeStyle = lipgloss.NewStyle().Foreground(Info).Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1)
	// DirtyStyle marks a view whose snapshot differs from the live table.
	DirtyStyle = lipgloss.NewStyle().Foreground(Warning).Italic(true)
)

const (
	SymbolSuccess  = "✓"
	SymbolWarning  = "⚠"
	SymbolError    = "✗"
	SymbolSelected = "●"
	SymbolSortAsc  = "▲"
	SymbolSortDesc = "▼"
)

var noColor atomic.Bool

// SetNoColor disables styling, e.g. for --no-color.
func SetNoColor(v bool) {
	noColor.Store(v)
}

// NoColor reports whether output should be plain. NO_COLOR and TERM=dumb
// disable colors as well.
func NoColor() bool {
	if noColor.Load() {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}

func render(s lipgloss.Style, text string) string {
	if NoColor() {
		return text
	}
	return s.Render(text)
}

// SuccessMsg formats a success line with a checkmark.
func SuccessMsg(msg string) string {
	symbol := SymbolSuccess
	if NoColor() {
		symbol = "+"
	}
	return fmt.Sprintf("%s %s", render(SuccessStyle, symbol), msg)
}

// ErrorMsg formats an error line.
func ErrorMsg(msg string) string {
	return render(ErrorStyle, "Error: "+msg)
}

// WarningMsg formats a warning line.
func WarningMsg(msg string) string {
	symbol := SymbolWarning
	if NoColor() {
		symbol = "!"
	}
	return fmt.Sprintf("%s %s", render(WarningStyle, symbol), msg)
}

// InfoMsg formats informational text.
func InfoMsg(msg string) string {
	return render(InfoStyle, msg)
}

// MutedMsg formats secondary text.
func MutedMsg(msg string) string {
	return render(MutedStyle, msg)
}

// Title formats a section title.
func Title(text string) string {
	return render(TitleStyle, text)
}

// Badge formats a filter badge.
func Badge(text string) string {
	if NoColor() {
		return "[" + text + "]"
	}
	return BadgeStyle.Render(text)
}

// Dirty marks text as differing from its saved view.
func Dirty(text string) string {
	return render(DirtyStyle, text)
}

// DiffLine colors a "+ " or "- " prefixed diff line.
func DiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+ "):
		return render(SuccessStyle, line)
	case strings.HasPrefix(line, "- "):
		return render(lipgloss.NewStyle().Foreground(Error), line)
	default:
		return line
	}
}

// HelpLine formats "key description".
func HelpLine(key, description string) string {
	return fmt.Sprintf("  %s %s", render(HelpKey, key), render(MutedStyle, description))
}

// Toast formats a notification by level.
func Toast(m notify.Message) string {
	switch m.Level {
	case notify.LevelSuccess:
		return SuccessMsg(m.Text)
	case notify.LevelWarning:
		return WarningMsg(m.Text)
	case notify.LevelError:
		symbol := SymbolError
		if NoColor() {
			symbol = "x"
		}
		return fmt.Sprintf("%s %s", render(ErrorStyle, symbol), m.Text)
	default:
		return InfoMsg(m.Text)
	}
}

// Indent prefixes every non-empty line with n spaces.
func Indent(text string, n int) string {
	prefix := strings.Repeat(" ", n)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
