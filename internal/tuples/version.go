package tuples

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/orizon-lang/tuples/internal/diagnostics"
)

// MinimumLanguageVersion is the first language version with tuple types.
var MinimumLanguageVersion = semver.MustParse("7.0.0")

var featureConstraint = mustConstraint(">= 7.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FeatureAvailable reports whether tuples exist in language version v.
// A nil version means the latest.
func FeatureAvailable(v *semver.Version) bool {
	return v == nil || featureConstraint.Check(v)
}

// featureGate returns the diagnostic attached to every tuple built under
// a language version without tuples.
func featureGate(v *semver.Version) *diagnostics.Diagnostic {
	if FeatureAvailable(v) {
		return nil
	}
	return &diagnostics.Diagnostic{
		Kind:  diagnostics.KindFeatureNotAvailable,
		Level: diagnostics.DiagnosticError,
		Message: fmt.Sprintf("feature 'tuples' is not available in language version %s; use %s or greater",
			v, MinimumLanguageVersion),
		Name: "tuples",
	}
}
