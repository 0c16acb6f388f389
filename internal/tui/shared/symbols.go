package shared

import "os"

//nolint:gochecknoglobals // terminal capabilities are fixed for the process
var (
	colorsDisabled  = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
	unicodeDisabled = os.Getenv("TERM") == "dumb" || os.Getenv("QFIELDSYNC_ASCII") != ""
)

// PromptArrow marks the focused input.
func PromptArrow() string {
	if unicodeDisabled {
		return "> "
	}

	return "▶ "
}

// SuccessSymbol returns a check mark with ASCII fallback
func SuccessSymbol() string {
	if unicodeDisabled {
		return "[OK]"
	}

	return "✓"
}

// ErrorSymbol returns a cross with ASCII fallback
func ErrorSymbol() string {
	if unicodeDisabled {
		return "[X]"
	}

	return "✗"
}

// ActiveSymbol returns a circled dot symbol with ASCII fallback
func ActiveSymbol() string {
	if unicodeDisabled {
		return "[*]"
	}

	return "◉"
}

// PendingSymbol returns an empty circle with ASCII fallback
func PendingSymbol() string {
	if unicodeDisabled {
		return "[ ]"
	}

	return "○"
}

// CancelledSymbol returns a cancelled/prohibited symbol with ASCII fallback
func CancelledSymbol() string {
	if unicodeDisabled {
		return "[!]"
	}

	return "⊘"
}

// CurrentSymbol marks the project open in the host application.
func CurrentSymbol() string {
	if unicodeDisabled {
		return "*"
	}

	return "★"
}
