// Package ui renders storyreel CLI output.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive palette; each color has a light and a dark terminal variant.
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#2f8f46", Dark: "#8fd18a"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#b7791f", Dark: "#f6c177"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#c53030", Dark: "#f28b82"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#718096", Dark: "#8b95a1"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#2b6cb0", Dark: "#7cc4fa"}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
)

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderHeader renders a section header in uppercase.
func RenderHeader(s string) string {
	return HeaderStyle.Render(strings.ToUpper(s))
}

// Success formats a one-line confirmation: "✓ message".
func Success(msg string) string {
	return PassStyle.Render(IconPass) + " " + msg
}

// Warning formats a one-line warning.
func Warning(msg string) string {
	return WarnStyle.Render(IconWarn) + " " + msg
}

// Failure formats a one-line error.
func Failure(msg string) string {
	return FailStyle.Render(IconFail) + " " + msg
}
