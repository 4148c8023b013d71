// Package output renders trialkit results to the console.
// The printer writes plain text, lipgloss-styled text or JSON depending on its mode.
package output

// StyleProvider supplies styles for semantic output types.
type StyleProvider interface {
	// GetStyle returns a TextStyle for the given semantic type.
	GetStyle(semantic string) TextStyle

	// IsAvailable returns true if the provider can style output right now.
	IsAvailable() bool
}

// TextStyle renders text with styling. lipgloss.Style satisfies it.
type TextStyle interface {
	Render(strs ...string) string
}

// Mode defines different output modes the printer can operate in.
type Mode int

const (
	// ModeAuto styles output when a style provider is available.
	ModeAuto Mode = iota

	// ModeStyled forces styled output.
	ModeStyled

	// ModePlain forces plain text output.
	ModePlain

	// ModeJSON outputs structured JSON for machine consumption.
	ModeJSON
)

// ParseMode converts a mode name used on the command line.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "", "auto":
		return ModeAuto, true
	case "styled":
		return ModeStyled, true
	case "plain":
		return ModePlain, true
	case "json":
		return ModeJSON, true
	}
	return ModeAuto, false
}

// SemanticType defines the semantic meaning of output for consistent styling.
type SemanticType string

const (
	SemanticPlain   SemanticType = "plain"
	SemanticInfo    SemanticType = "info"
	SemanticSuccess SemanticType = "success"
	SemanticWarning SemanticType = "warning"
	SemanticError   SemanticType = "error"
	SemanticHeader  SemanticType = "header"
	SemanticMuted   SemanticType = "muted"
)
