package tuples

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/position"
	"github.com/orizon-lang/tuples/internal/types"
)

// ====== Element Name Validation ======

// reservedEverywhere holds the names that no element may use. They collide
// with the overflow field or with members every composite carries.
var reservedEverywhere = set.From([]string{
	types.RestFieldName,
	"CompareTo",
	"Deconstruct",
	"Equals",
	"GetHashCode",
	"ToString",
})

// ReservedPosition reports how name is reserved. It returns 0 when the
// name is disallowed at every position, k when the name is ItemK and so
// only allowed at position k, and -1 when the name is not reserved.
//
// Only the canonical spelling of ItemK is recognised: k >= 1 without
// leading zeros. "Item0" and "Item01" are ordinary names.
func ReservedPosition(name string) int {
	if reservedEverywhere.Contains(name) {
		return 0
	}
	if k, ok := positionalIndex(name); ok {
		return k
	}
	return -1
}

func positionalIndex(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "Item")
	if !ok || digits == "" || digits[0] == '0' {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	k, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return k, true
}

// canBeFriendly reports whether the slot gets a friendly field. ItemK at
// position K is legal but adds nothing over the positional field.
func canBeFriendly(s ElementSlot) bool {
	return s.HasFriendlyName() && ReservedPosition(s.Name) < 0
}

// ValidateNames checks the declared names of a tuple and returns one
// diagnostic per offending occurrence, in position order:
//
//   - ItemK at a position other than K is ReservedMemberName;
//   - a name reserved at every position is ReservedMemberNameAnyPosition;
//   - every occurrence of a name used more than once is
//     DuplicateMemberName.
//
// Names rejected by the reserved checks do not take part in the duplicate
// check. Unnamed slots and empty names are never checked.
func ValidateNames(slots []ElementSlot) []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic

	eligible := make([]bool, len(slots))
	seen := set.New[string](len(slots))
	dups := set.New[string](0)

	for i, s := range slots {
		if !s.HasFriendlyName() {
			continue
		}
		switch k := ReservedPosition(s.Name); {
		case k == 0:
			out = append(out, diagnostics.Diagnostic{
				Kind:      diagnostics.KindReservedMemberNameAnyPosition,
				Level:     diagnostics.DiagnosticError,
				Message:   fmt.Sprintf("tuple element name '%s' is disallowed at any position", s.Name),
				Name:      s.Name,
				Positions: []int{s.Position},
				Sites:     siteList(s),
			})
			continue
		case k > 0 && k != s.Position:
			out = append(out, diagnostics.Diagnostic{
				Kind:      diagnostics.KindReservedMemberName,
				Level:     diagnostics.DiagnosticError,
				Message:   fmt.Sprintf("tuple element name '%s' is only allowed at position %d", s.Name, k),
				Name:      s.Name,
				Positions: []int{s.Position},
				Sites:     siteList(s),
				Related:   k,
			})
			continue
		}
		eligible[i] = true
		if !seen.Insert(s.Name) {
			dups.Insert(s.Name)
		}
	}

	if dups.Empty() {
		return out
	}
	for i, s := range slots {
		if !eligible[i] || !dups.Contains(s.Name) {
			continue
		}
		out = append(out, diagnostics.Diagnostic{
			Kind:      diagnostics.KindDuplicateMemberName,
			Level:     diagnostics.DiagnosticError,
			Message:   fmt.Sprintf("tuple element names must be unique: '%s' is repeated", s.Name),
			Name:      s.Name,
			Positions: []int{s.Position},
			Sites:     siteList(s),
		})
	}
	diagnostics.SortByPosition(out)
	return out
}

func siteList(s ElementSlot) []position.Span {
	if !s.Site.IsValid() {
		return nil
	}
	return []position.Span{s.Site}
}
