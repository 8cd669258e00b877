package main

import "github.com/charmbracelet/lipgloss"

var (
	colorRed     = lipgloss.Color("#FF5F5F")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorCyan    = lipgloss.Color("#00FFFF")
	colorGray    = lipgloss.Color("#666666")
	colorMagenta = lipgloss.Color("#FF00FF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	partialStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorMagenta)

	effectStyle = lipgloss.NewStyle().
			Foreground(colorMagenta).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)
