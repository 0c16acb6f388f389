package shared

import (
	"fmt"
	"strings"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/pkg/errors"
)

// Error display limits for different screen contexts
const (
	// ErrorLimitInProgress is for the transfer screen
	ErrorLimitInProgress = 3

	// ErrorLimitComplete is for the summary screen
	ErrorLimitComplete = 10
)

// ErrorDisplayContext defines the context in which errors are being displayed
type ErrorDisplayContext int

const (
	// ContextInProgress indicates errors shown while a transfer runs
	ContextInProgress ErrorDisplayContext = iota
	// ContextComplete indicates errors shown after the transfer ended
	ContextComplete
)

// ErrorListConfig holds configuration for rendering error lists
type ErrorListConfig struct {
	Errors   []*transfer.FileError
	Context  ErrorDisplayContext
	MaxWidth int
}

// RenderErrorList renders per-file errors with suggestions, up to the
// context's limit.
func RenderErrorList(config ErrorListConfig) string {
	if len(config.Errors) == 0 {
		return ""
	}

	var builder strings.Builder

	enricher := errors.NewEnricher()
	limit := getErrorLimit(config.Context)

	for i, fileErr := range config.Errors {
		if i >= limit {
			fmt.Fprintf(&builder, "%s\n", getOverflowMessage(config.Context, len(config.Errors)-limit))
			break
		}

		enrichedErr := enricher.Enrich(fileErr.Err, fileErr.Name)

		displayPath := fileErr.Action.String() + " " + fileErr.Name
		if config.MaxWidth > 0 {
			displayPath = TruncatePath(displayPath, config.MaxWidth)
		}

		fmt.Fprintf(&builder, "  %s %s\n", ErrorSymbol(), FileItemErrorStyle().Render(displayPath))

		errMsg := cloud.ErrorReason(fileErr.Err)
		if config.MaxWidth > 0 && len(errMsg) > config.MaxWidth {
			errMsg = errMsg[:config.MaxWidth-ProgressEllipsisLength] + "..."
		}

		fmt.Fprintf(&builder, "    %s\n", errMsg)

		suggestions := errors.FormatSuggestions(enrichedErr)
		if suggestions != "" {
			fmt.Fprintf(&builder, "%s\n", "    "+strings.ReplaceAll(suggestions, "\n", "\n    "))
		}
	}

	return builder.String()
}

// RenderFailure renders a flow-level error with its category suggestions.
func RenderFailure(prefix string, err error) string {
	if err == nil {
		return ""
	}

	enrichedErr := errors.NewEnricher().Enrich(err, "")

	out := RenderError(prefix + cloud.ErrorReason(err))

	suggestions := errors.FormatSuggestions(enrichedErr)
	if suggestions != "" {
		out += "\n" + RenderDim(suggestions)
	}

	return out
}

func getErrorLimit(context ErrorDisplayContext) int {
	if context == ContextInProgress {
		return ErrorLimitInProgress
	}

	return ErrorLimitComplete
}

func getOverflowMessage(context ErrorDisplayContext, remaining int) string {
	if context == ContextInProgress {
		return fmt.Sprintf("  ... and %d more (see summary)", remaining)
	}

	return fmt.Sprintf("... and %d more error(s)", remaining)
}
