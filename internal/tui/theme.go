package tui

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Palette shared by the forms and the plain output around them.
var (
	colorAccent  = lipgloss.Color("#F5C542")
	colorCaption = lipgloss.Color("#E2E8F0")
	colorDim     = lipgloss.Color("#8B95A7")
	colorFaint   = lipgloss.Color("#5B6472")
	colorOK      = lipgloss.Color("#4ADE80")
	colorBad     = lipgloss.Color("#F87171")
	colorWarn    = lipgloss.Color("#FB923C")
)

var (
	StyleHeader  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).MarginBottom(1)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorOK)
	StyleError   = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)
	StyleMuted   = lipgloss.NewStyle().Foreground(colorDim)
)

const banner = `
 _ _
| (_)_   _____  ___ ___
| | \ \ / / _ \/ __/ __|
| | |\ V /  __/ (_| (__
|_|_| \_/ \___|\___\___|`

func Logo() string {
	return StyleHeader.Render(strings.Trim(banner, "\n"))
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(colorAccent)
	t.Focused.Title = t.Focused.Title.Foreground(colorAccent).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(colorDim)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(colorOK)
	t.Focused.UnselectedOption = t.Focused.UnselectedOption.Foreground(colorCaption)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(colorBad)

	t.Blurred.Title = t.Blurred.Title.Foreground(colorDim)
	t.Blurred.Description = t.Blurred.Description.Foreground(colorFaint)

	return t
}
