package output

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
)

var (
	globalPrinter *Printer
	globalMu      sync.RWMutex
)

func init() {
	globalPrinter = NewPrinter()
}

// ConfigureGlobal replaces the global printer.
func ConfigureGlobal(options ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalPrinter = NewPrinter(options...)
}

// GetGlobalPrinter returns the current global printer instance.
func GetGlobalPrinter() *Printer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalPrinter
}

// Options returns printer options for a CLI mode name. Auto mode styles
// output only when stdout is a color terminal; test mode always wins.
func Options(mode Mode, testMode bool) []Option {
	if testMode {
		return []Option{TestMode()}
	}
	switch mode {
	case ModeJSON:
		return []Option{JSON()}
	case ModePlain:
		return []Option{PlainText()}
	case ModeStyled:
		return []Option{WithMode(ModeStyled), WithStyles(NewTheme().Forced())}
	default:
		if SupportsColor() {
			return []Option{WithStyles(NewTheme())}
		}
		return []Option{PlainText()}
	}
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) == os.ModeCharDevice
}

// SupportsColor reports whether stdout renders ANSI colors. NO_COLOR is
// honored by termenv.
func SupportsColor() bool {
	if !IsTerminal() {
		return false
	}
	return termenv.NewOutput(os.Stdout).EnvColorProfile() != termenv.Ascii
}
