package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Code    lipgloss.Style
	ID      lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style

	r *lipgloss.Renderer
}

// NewStyles builds styles bound to a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Code:    r.NewStyle().Foreground(lipgloss.Color("13")),
		ID:      r.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),

		StatusSuccess: r.NewStyle().Foreground(lipgloss.Color("10")).SetString("✓"),
		StatusFailed:  r.NewStyle().Foreground(lipgloss.Color("9")).SetString("✗"),
		StatusPending: r.NewStyle().Foreground(lipgloss.Color("11")).SetString("…"),

		r: r,
	}
}

// Color returns a foreground style for an ANSI 256 color index.
func (s *Styles) Color(c string) lipgloss.Style {
	return s.r.NewStyle().Foreground(lipgloss.Color(c))
}
