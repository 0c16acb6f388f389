//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package errors_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	pkgerrors "github.com/joe/qfieldsync/pkg/errors"
)

func TestPatternMatcher_Categories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want pkgerrors.ErrorCategory
	}{
		{"POST /auth/login/: 401 Unauthorized: Invalid token.", pkgerrors.CategoryAuth},
		{"not logged in", pkgerrors.CategoryAuth},
		{"PATCH /projects/x/: 403 Forbidden", pkgerrors.CategoryPermission},
		{"open /data/p.qgs: permission denied", pkgerrors.CategoryPermission},
		{"stat /data/missing: no such file or directory", pkgerrors.CategoryPath},
		{"/data/p: directory is not empty", pkgerrors.CategoryDirectory},
		{"GET /files/x/: 404 Not Found", pkgerrors.CategoryNotFound},
		{"dial tcp: lookup app.qfield.cloud: no such host", pkgerrors.CategoryNetwork},
		{"GET /projects/: 502 Bad Gateway", pkgerrors.CategoryServer},
		{"write /data/x: no space left on device", pkgerrors.CategoryDiskSpace},
		{"something odd", pkgerrors.CategoryUnknown},
	}

	matcher := pkgerrors.NewPatternMatcher()

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(matcher.Match(tt.msg)).Should(Equal(tt.want))
		})
	}
}

func TestEnricher_ReturnsActionableErrorsUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	original := pkgerrors.NewActionableError("nope", pkgerrors.CategoryAuth, []string{"log in"}, "")

	g.Expect(pkgerrors.NewEnricher().Enrich(original, "/p")).Should(BeIdenticalTo(original))
}

func TestEnricher_ExtractsPathFromMessage(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	enriched := pkgerrors.NewEnricher().Enrich(errors.New("open /home/me/p.qgs: permission denied"), "")

	var actionable pkgerrors.ActionableError
	g.Expect(errors.As(enriched, &actionable)).Should(BeTrue())
	g.Expect(actionable.Category()).Should(Equal(pkgerrors.CategoryPermission))
	g.Expect(actionable.AffectedPath()).Should(Equal("/home/me/p.qgs"))
	g.Expect(actionable.Suggestions()).Should(ContainElement(ContainSubstring("ls -la /home/me/p.qgs")))
}

func TestFormatSuggestions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := pkgerrors.NewActionableError("x", pkgerrors.CategoryNetwork, []string{"one", "two"}, "")

	g.Expect(pkgerrors.FormatSuggestions(err)).Should(Equal("  • one\n  • two"))
	g.Expect(pkgerrors.FormatSuggestions(errors.New("plain"))).Should(BeEmpty())
	g.Expect(pkgerrors.FormatSuggestions(nil)).Should(BeEmpty())
}

func TestSuggestionGenerator_DirectoryMentionsPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	suggestions := pkgerrors.NewSuggestionGenerator().Generate(pkgerrors.CategoryDirectory, "/p")

	g.Expect(suggestions).Should(ContainElement("List contents with 'ls -la /p'"))
}
