package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette colors shared by message styles and tables.
var (
	colorInfo    = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("245")
	colorHeader  = lipgloss.Color("99")
)

// Theme is a StyleProvider built on lipgloss.
type Theme struct {
	styles map[SemanticType]lipgloss.Style
	force  bool
}

// NewTheme returns the default lipgloss theme.
func NewTheme() *Theme {
	return &Theme{
		styles: map[SemanticType]lipgloss.Style{
			SemanticPlain:   lipgloss.NewStyle(),
			SemanticInfo:    lipgloss.NewStyle().Foreground(colorInfo),
			SemanticSuccess: lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
			SemanticWarning: lipgloss.NewStyle().Foreground(colorWarning),
			SemanticError:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
			SemanticHeader:  lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Underline(true),
			SemanticMuted:   lipgloss.NewStyle().Foreground(colorMuted),
		},
	}
}

// Forced returns a copy of the theme that is available even without a
// color terminal.
func (t *Theme) Forced() *Theme {
	return &Theme{styles: t.styles, force: true}
}

// GetStyle implements StyleProvider.
func (t *Theme) GetStyle(semantic string) TextStyle {
	if style, ok := t.styles[SemanticType(semantic)]; ok {
		return style
	}
	return t.styles[SemanticPlain]
}

// IsAvailable reports whether the terminal renders colors.
func (t *Theme) IsAvailable() bool {
	return t.force || lipgloss.ColorProfile() != termenv.Ascii
}
