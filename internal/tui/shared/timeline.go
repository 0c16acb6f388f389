package shared

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Timeline phase keys.
const (
	PhaseFiles     = "files"
	PhaseDirectory = "directory"
	PhaseConfirm   = "confirm"
	PhaseTransfer  = "transfer"
	PhaseDone      = "done"
	// ErrorSuffix marks the phase a flow failed or was cancelled in.
	ErrorSuffix = "_error"
)

// RenderTimeline renders the sync flow steps for the header.
// Steps before the current one show ✓, the current one ◉ and later ones ○.
// A phase with ErrorSuffix shows ✗ there and ⊘ for the skipped steps.
func RenderTimeline(currentPhase string) string {
	phase := strings.ToLower(strings.TrimSpace(currentPhase))

	isError := strings.HasSuffix(phase, ErrorSuffix)
	if isError {
		phase = strings.TrimSuffix(phase, ErrorSuffix)
	}

	phases := []struct {
		name string
		key  string
	}{
		{"Files", PhaseFiles},
		{"Directory", PhaseDirectory},
		{"Confirm", PhaseConfirm},
		{"Transfer", PhaseTransfer},
		{"Done", PhaseDone},
	}

	currentIdx := 0

	for i, phaseInfo := range phases {
		if phaseInfo.key == phase {
			currentIdx = i
			break
		}
	}

	parts := make([]string, 0, len(phases))

	for phaseIdx, phaseInfo := range phases {
		var (
			symbol string
			style  lipgloss.Style
		)

		switch {
		case isError && phaseIdx == currentIdx:
			symbol = ErrorSymbol()
			style = lipgloss.NewStyle().Foreground(ErrorColor())
		case isError && phaseIdx > currentIdx:
			symbol = CancelledSymbol()
			style = DimStyle()
		case phaseIdx < currentIdx, phaseIdx == currentIdx && currentIdx == len(phases)-1:
			symbol = SuccessSymbol()
			style = lipgloss.NewStyle().Foreground(SuccessColor())
		case phaseIdx == currentIdx:
			symbol = ActiveSymbol()
			style = lipgloss.NewStyle().Foreground(PrimaryColor())
		default:
			symbol = PendingSymbol()
			style = DimStyle()
		}

		parts = append(parts, style.Render(symbol+" "+phaseInfo.name))
	}

	return strings.Join(parts, DimStyle().Render(" ── "))
}
