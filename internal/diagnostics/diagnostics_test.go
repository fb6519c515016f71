package diagnostics

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/orizon-lang/tuples/internal/position"
)

func TestKindTags(t *testing.T) {
	tags := []string{
		"ReservedMemberName",
		"ReservedMemberNameAnyPosition",
		"DuplicateMemberName",
		"ExplicitNamesOnAllOrNone",
		"MissingCompositeDefinition",
		"AmbiguousOrMissingUnderlyingMember",
		"FeatureNotAvailable",
		"UnresolvedType",
	}
	for _, tag := range tags {
		k, ok := ParseKind(tag)
		qt.Assert(t, qt.IsTrue(ok), qt.Commentf("tag %s", tag))
		qt.Assert(t, qt.Equals(k.String(), tag))
		qt.Assert(t, qt.Not(qt.Equals(k.Code(), "TUP000")))
	}

	_, ok := ParseKind("NoSuchKind")
	qt.Assert(t, qt.IsFalse(ok))
	qt.Assert(t, qt.Equals(Kind(99).String(), "Unknown"))
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{
		Kind:      KindDuplicateMemberName,
		Message:   "tuple element name 'a' is a duplicate",
		Name:      "a",
		Positions: []int{2},
		Sites:     []position.Span{position.Point("u.oriz", 4, 9)},
	}
	qt.Assert(t, qt.Equals(d.Position(), 2))
	qt.Assert(t, qt.Equals(d.String(), "u.oriz:4:9: error[TUP003] DuplicateMemberName: tuple element name 'a' is a duplicate"))

	whole := Diagnostic{Kind: KindMissingCompositeDefinition, Message: "missing", Related: 2}
	qt.Assert(t, qt.Equals(whole.Position(), 0))
	qt.Assert(t, qt.Equals(whole.String(), "error[TUP005] MissingCompositeDefinition: missing"))
}

func TestManagerOrdersByPosition(t *testing.T) {
	dm := NewDiagnosticManager()
	dm.AddDiagnostic(Diagnostic{Kind: KindDuplicateMemberName, Positions: []int{3}})
	dm.AddDiagnostic(Diagnostic{Kind: KindReservedMemberName, Positions: []int{1}})
	dm.AddDiagnostic(Diagnostic{Kind: KindMissingCompositeDefinition})
	dm.AddDiagnostic(Diagnostic{Kind: KindDuplicateMemberName, Positions: []int{1}})

	got := dm.GetDiagnostics()
	qt.Assert(t, qt.HasLen(got, 4))
	qt.Assert(t, qt.Equals(got[0].Kind, KindMissingCompositeDefinition))
	qt.Assert(t, qt.Equals(got[1].Kind, KindReservedMemberName))
	qt.Assert(t, qt.Equals(got[2].Kind, KindDuplicateMemberName))
	qt.Assert(t, qt.Equals(got[2].Position(), 1))
	qt.Assert(t, qt.Equals(got[3].Position(), 3))
	qt.Assert(t, qt.Equals(dm.GetErrorCount(), 4))
}

func TestManagerLimitsAndSuppression(t *testing.T) {
	dm := NewDiagnosticManager()
	dm.SetErrorLimit(2)
	dm.Suppress(KindFeatureNotAvailable)

	dm.AddDiagnostic(Diagnostic{Kind: KindFeatureNotAvailable})
	for i := 1; i <= 3; i++ {
		dm.AddDiagnostic(Diagnostic{Kind: KindDuplicateMemberName, Positions: []int{i}})
	}
	qt.Assert(t, qt.IsTrue(dm.AddDiagnostic(Diagnostic{Kind: KindDuplicateMemberName, Level: DiagnosticWarning})))
	qt.Assert(t, qt.IsFalse(dm.AddDiagnostic(Diagnostic{Kind: KindDuplicateMemberName, Positions: []int{9}})))

	qt.Assert(t, qt.Equals(dm.GetErrorCount(), 2))
	qt.Assert(t, qt.Equals(dm.GetWarningCount(), 1))
	qt.Assert(t, qt.IsTrue(dm.HasErrors()))
	qt.Assert(t, qt.Equals(dm.FormatSummary(), "2 error(s), 1 warning(s)"))
	qt.Assert(t, qt.Equals(NewDiagnosticManager().FormatSummary(), "no diagnostics"))
}
