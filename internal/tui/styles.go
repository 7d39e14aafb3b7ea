package tui

import "github.com/charmbracelet/lipgloss"

// Palette. ANSI 256 codes chosen to stay readable on both dark and light
// backgrounds.
var (
	ColorPrimary   = lipgloss.Color("39")  // blue: focus, selection
	ColorSecondary = lipgloss.Color("245") // gray: labels, inactive chrome
	ColorSuccess   = lipgloss.Color("34")
	ColorWarning   = lipgloss.Color("214")
	ColorError     = lipgloss.Color("196")
	ColorMuted     = lipgloss.Color("240") // descriptions, help footers
)

// Shared lipgloss styles. Wizards compose these rather than defining their
// own, so a palette tweak lands everywhere at once.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			MarginBottom(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(1, 2)

	FocusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)

	InputLabelStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			MarginRight(1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 1)

	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(ColorPrimary).
				Padding(0, 1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(ColorMuted).
				MarginLeft(4)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)
)

// List markers and status glyphs.
const (
	SymbolSelected   = "●"
	SymbolUnselected = "○"
	SymbolCheck      = "✓"
	SymbolCross      = "✗"
	SymbolArrowRight = "→"
	SymbolBullet     = "•"
	SymbolSpinner    = "◐"
)
