package ui

import (
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

// colorEnv sets the color variables for one case; an empty value unsets.
func colorEnv(t *testing.T, noColor, cliColor, force string) {
	t.Helper()
	for name, value := range map[string]string{"NO_COLOR": noColor, "CLICOLOR": cliColor, "CLICOLOR_FORCE": force} {
		t.Setenv(name, value)
		if value == "" {
			_ = os.Unsetenv(name)
		}
	}
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name                     string
		noColor, cliColor, force string
		want                     bool
	}{
		{"no color", "1", "", "", false},
		{"clicolor off", "", "0", "", false},
		{"forced off a terminal", "", "", "1", true},
		{"force of zero is ignored", "", "", "0", false},
		{"no color beats force", "1", "", "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			colorEnv(t, tt.noColor, tt.cliColor, tt.force)
			assert.Equal(t, tt.want, ShouldUseColor())
		})
	}
}

func TestShouldUseColor_EmptyNoColorStillDisables(t *testing.T) {
	colorEnv(t, "", "", "1")
	t.Setenv("NO_COLOR", "")
	assert.False(t, ShouldUseColor())
}

func TestShouldUseEmoji_Disabled(t *testing.T) {
	plainOutput(t)
	assert.False(t, ShouldUseEmoji())
	assert.Equal(t, "ok", RenderPassIcon())
	assert.Equal(t, "error:", RenderFailIcon())
}

func TestApplyColorMode(t *testing.T) {
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	colorEnv(t, "", "", "")
	ApplyColorMode(true)
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile(), "flag forces plain output")
	assert.Equal(t, "ok", RenderPass("ok"))

	lipgloss.SetColorProfile(termenv.TrueColor)
	colorEnv(t, "1", "", "")
	ApplyColorMode(false)
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile(), "NO_COLOR forces plain output")
}
