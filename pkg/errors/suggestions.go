package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
//
//nolint:cyclop // One branch per category
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryAuth:
		return g.generateAuthSuggestions()
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryDirectory:
		return g.generateDirectorySuggestions(affectedPath)
	case CategoryNotFound:
		return g.generateNotFoundSuggestions()
	case CategoryNetwork:
		return g.generateNetworkSuggestions()
	case CategoryServer:
		return g.generateServerSuggestions()
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateAuthSuggestions() []string {
	return []string{
		"Log in again with 'qfieldsync login'",
		"Check that the server URL matches the account you are using",
	}
}

func (g *suggestionGenerator) generateDirectorySuggestions(path string) []string {
	suggestions := []string{
		"Choose an empty directory when the cloud project already has files",
		"Keep at most one .qgs or .qgz file in a directory you upload",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("List contents with 'ls -la %s'", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the device holding the project directory",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateNetworkSuggestions() []string {
	return []string{
		"Check your internet connection",
		"Verify the server URL with --server",
		"Try the operation again - this may be a transient network error",
	}
}

func (g *suggestionGenerator) generateNotFoundSuggestions() []string {
	return []string{
		"The project may have been deleted; refresh the project list",
		"Check that your account has access to the project",
	}
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
		suggestions = append(suggestions, "Ensure all parent directories exist for "+path)
	} else {
		suggestions = append(suggestions, "Ensure all parent directories exist")
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read/write permissions for the project directory",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	}

	suggestions = append(suggestions, "Check that your account may modify this cloud project")

	return suggestions
}

func (g *suggestionGenerator) generateServerSuggestions() []string {
	return []string{
		"The server reported an internal error; try again later",
		"Check the QFieldCloud status page if the problem persists",
	}
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
		"Run with --verbose and inspect the log file",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
