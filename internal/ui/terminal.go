package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions:
// NO_COLOR (any value) disables color, CLICOLOR_FORCE enables it even when
// stdout is not a terminal, CLICOLOR=0 disables it. Otherwise color is used
// on terminals only.
func ShouldUseColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if f := os.Getenv("CLICOLOR_FORCE"); f != "" && f != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether icons may use non-ASCII symbols.
func ShouldUseEmoji() bool {
	if os.Getenv("ISSUESYNC_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// ApplyColorMode sets the lipgloss color profile. noColor forces plain
// output; otherwise the environment decides.
func ApplyColorMode(noColor bool) {
	if noColor || !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}
