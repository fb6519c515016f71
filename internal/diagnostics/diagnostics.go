// Package diagnostics defines the diagnostics produced while constructing
// tuple types. Every diagnostic carries a stable kind tag, the offending
// element positions and the declaration site of each position.
package diagnostics

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/orizon-lang/tuples/internal/position"
)

// DiagnosticLevel represents the severity level of a diagnostic
type DiagnosticLevel int

const (
	DiagnosticError DiagnosticLevel = iota
	DiagnosticWarning
	DiagnosticInfo
	DiagnosticHint
)

func (dl DiagnosticLevel) String() string {
	switch dl {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticInfo:
		return "info"
	case DiagnosticHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Kind is the stable tag of a diagnostic.
type Kind int

const (
	KindUnknown Kind = iota
	// KindReservedMemberName: ItemK used at a position other than K.
	KindReservedMemberName
	// KindReservedMemberNameAnyPosition: a name that is reserved everywhere (Rest, ToString, ...).
	KindReservedMemberNameAnyPosition
	// KindDuplicateMemberName: the same declared name at more than one position.
	KindDuplicateMemberName
	// KindExplicitNamesOnAllOrNone: some but not all positions are named.
	KindExplicitNamesOnAllOrNone
	// KindMissingCompositeDefinition: the type universe lacks a composite shape.
	KindMissingCompositeDefinition
	// KindAmbiguousOrMissingUnderlyingMember: the composite does not have the expected member shape.
	KindAmbiguousOrMissingUnderlyingMember
	// KindFeatureNotAvailable: the language version predates tuple types.
	KindFeatureNotAvailable
	// KindUnresolvedType: an element type name the binder could not resolve.
	KindUnresolvedType
)

var kindNames = map[Kind]string{
	KindReservedMemberName:                 "ReservedMemberName",
	KindReservedMemberNameAnyPosition:      "ReservedMemberNameAnyPosition",
	KindDuplicateMemberName:                "DuplicateMemberName",
	KindExplicitNamesOnAllOrNone:           "ExplicitNamesOnAllOrNone",
	KindMissingCompositeDefinition:         "MissingCompositeDefinition",
	KindAmbiguousOrMissingUnderlyingMember: "AmbiguousOrMissingUnderlyingMember",
	KindFeatureNotAvailable:                "FeatureNotAvailable",
	KindUnresolvedType:                     "UnresolvedType",
}

var kindCodes = map[Kind]string{
	KindReservedMemberName:                 "TUP001",
	KindReservedMemberNameAnyPosition:      "TUP002",
	KindDuplicateMemberName:                "TUP003",
	KindExplicitNamesOnAllOrNone:           "TUP004",
	KindMissingCompositeDefinition:         "TUP005",
	KindAmbiguousOrMissingUnderlyingMember: "TUP006",
	KindFeatureNotAvailable:                "TUP007",
	KindUnresolvedType:                     "TUP008",
}

// String returns the stable tag of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Code returns the short diagnostic code of the kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "TUP000"
}

// ParseKind returns the kind with the given tag, as written by Kind.String.
func ParseKind(tag string) (Kind, bool) {
	for k, name := range kindNames {
		if name == tag {
			return k, true
		}
	}
	return KindUnknown, false
}

// Diagnostic represents one reported problem.
type Diagnostic struct {
	Kind    Kind
	Level   DiagnosticLevel
	Message string

	// Name is the offending element or member name, if any.
	Name string
	// Positions are the 1-based element positions involved, in ascending
	// order. Empty for diagnostics about the tuple as a whole.
	Positions []int
	// Sites holds the declaration site of each entry of Positions.
	Sites []position.Span
	// Span is the site of the whole declaration, if known.
	Span position.Span

	// Related is kind-specific: the position a reserved ItemK name belongs
	// to, or the arity of a missing composite definition.
	Related int
	// Owner is the fully qualified display form of the type that was
	// expected to declare a missing or ambiguous member.
	Owner string
}

// Code returns the diagnostic code
func (d Diagnostic) Code() string { return d.Kind.Code() }

// Position returns the first offending position or 0 for whole-tuple diagnostics.
func (d Diagnostic) Position() int {
	if len(d.Positions) == 0 {
		return 0
	}
	return d.Positions[0]
}

// Site returns the most specific known site of the diagnostic.
func (d Diagnostic) Site() position.Span {
	for _, s := range d.Sites {
		if s.IsValid() {
			return s
		}
	}
	return d.Span
}

// String formats the diagnostic as "site: level[code] Kind: message".
func (d Diagnostic) String() string {
	var b strings.Builder
	if site := d.Site(); site.IsValid() {
		b.WriteString(site.String())
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s[%s] %s: %s", d.Level, d.Code(), d.Kind, d.Message)
	return b.String()
}

// SortByPosition orders diagnostics by their first position, keeping the
// relative order of diagnostics at the same position.
func SortByPosition(ds []Diagnostic) {
	slices.SortStableFunc(ds, func(a, b Diagnostic) int {
		return a.Position() - b.Position()
	})
}

// DiagnosticManager collects diagnostics for one construction request or
// one bound unit. It is not safe for concurrent use.
type DiagnosticManager struct {
	diagnostics  []Diagnostic
	errorCount   int
	warningCount int
	maxErrors    int
	suppressed   map[Kind]bool
}

// NewDiagnosticManager creates a new diagnostic manager
func NewDiagnosticManager() *DiagnosticManager {
	return &DiagnosticManager{
		suppressed: make(map[Kind]bool),
	}
}

// SetErrorLimit sets the maximum number of errors kept; 0 means unlimited.
func (dm *DiagnosticManager) SetErrorLimit(limit int) {
	dm.maxErrors = limit
}

// Suppress drops all diagnostics of a specific kind
func (dm *DiagnosticManager) Suppress(kind Kind) {
	dm.suppressed[kind] = true
}

// AddDiagnostic adds a new diagnostic to the manager and reports whether
// it was kept.
func (dm *DiagnosticManager) AddDiagnostic(diagnostic Diagnostic) bool {
	if dm.suppressed[diagnostic.Kind] {
		return false
	}
	if diagnostic.Level == DiagnosticError && dm.maxErrors > 0 && dm.errorCount >= dm.maxErrors {
		return false
	}

	switch diagnostic.Level {
	case DiagnosticError:
		dm.errorCount++
	case DiagnosticWarning:
		dm.warningCount++
	}

	dm.diagnostics = append(dm.diagnostics, diagnostic)
	return true
}

// GetDiagnostics returns the collected diagnostics ordered by position.
func (dm *DiagnosticManager) GetDiagnostics() []Diagnostic {
	out := slices.Clone(dm.diagnostics)
	SortByPosition(out)
	return out
}

// GetErrorCount returns the number of errors
func (dm *DiagnosticManager) GetErrorCount() int {
	return dm.errorCount
}

// GetWarningCount returns the number of warnings
func (dm *DiagnosticManager) GetWarningCount() int {
	return dm.warningCount
}

// HasErrors returns true if there are any errors
func (dm *DiagnosticManager) HasErrors() bool {
	return dm.errorCount > 0
}

// FormatSummary returns a one-line count of errors and warnings.
func (dm *DiagnosticManager) FormatSummary() string {
	if dm.errorCount == 0 && dm.warningCount == 0 {
		return "no diagnostics"
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", dm.errorCount, dm.warningCount)
}
