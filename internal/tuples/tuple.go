// Package tuples models tuple types as a structural layer over the family
// of generic composite records (System.ValueTuple`1 .. `8).
//
// A tuple type has two faces. Its logical face is an ordered list of
// positions, each with a type and an optional cosmetic name. Its physical
// face is a composite instantiation with at most seven direct items and a
// Rest field holding the remaining elements in a nested composite. Names
// take part in member lookup and diagnostics but never in structural
// equality or conversion.
//
// All construction goes through a Context, which owns the intern cache.
// Contexts are independent of each other and safe for concurrent use.
package tuples

import (
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/position"
	"github.com/orizon-lang/tuples/internal/types"
)

// ElementSlot is one position of a tuple type.
type ElementSlot struct {
	Position int // 1-based
	Type     *types.Type
	Name     string // declared name; meaningful only when Named is set
	Named    bool
	Site     position.Span
}

// HasFriendlyName reports whether the slot declares a non-empty name.
// Empty names are kept for display but are not looked up.
func (s ElementSlot) HasFriendlyName() bool {
	return s.Named && s.Name != ""
}

// DisplayName returns the declared name, or ItemK when there is none.
func (s ElementSlot) DisplayName() string {
	if s.HasFriendlyName() {
		return s.Name
	}
	return types.ItemName(s.Position)
}

// TupleType is a logical tuple type. It is created by a Context and is
// immutable afterwards.
type TupleType struct {
	slots     []ElementSlot
	composite *Composite
	members   []*Member
	lookup    map[string][]*Member
	diags     []diagnostics.Diagnostic
	namesKey  string
	typ       *types.Type
}

// AsTuple returns the tuple type behind t, if t is a tuple view.
func AsTuple(t *types.Type) (*TupleType, bool) {
	tt, ok := t.Tuple().(*TupleType)
	return tt, ok
}

// Type returns the tuple as a types.Type so it can be used as an element
// type of other types.
func (t *TupleType) Type() *types.Type { return t.typ }

// Underlying returns the composite instantiation (or the error placeholder)
// storing the elements.
func (t *TupleType) Underlying() *types.Type { return t.composite.Type() }

// Composite returns the physical representation.
func (t *TupleType) Composite() *Composite { return t.composite }

// Arity returns the number of elements.
func (t *TupleType) Arity() int { return len(t.slots) }

// Elements returns a copy of the element slots.
func (t *TupleType) Elements() []ElementSlot { return slices.Clone(t.slots) }

// Element returns the slot at 1-based position k.
func (t *TupleType) Element(k int) ElementSlot { return t.slots[k-1] }

// ElementTypes returns the flattened element types.
func (t *TupleType) ElementTypes() []*types.Type {
	out := make([]*types.Type, len(t.slots))
	for i, s := range t.slots {
		out[i] = s.Type
	}
	return out
}

// HasNames reports whether any position carries a declared name.
func (t *TupleType) HasNames() bool {
	for _, s := range t.slots {
		if s.Named {
			return true
		}
	}
	return false
}

// ElementNames returns the declared names, with "" for unnamed positions.
func (t *TupleType) ElementNames() []string {
	out := make([]string, len(t.slots))
	for i, s := range t.slots {
		if s.Named {
			out[i] = s.Name
		}
	}
	return out
}

// NamesKey identifies the name table: presence and spelling of each name.
func (t *TupleType) NamesKey() string { return t.namesKey }

// IsUsable reports whether values of the type can be constructed. It is
// false when the composite definitions were missing.
func (t *TupleType) IsUsable() bool { return !t.composite.IsPlaceholder() }

// Members returns the synthesized members in declaration order.
func (t *TupleType) Members() []*Member { return slices.Clone(t.members) }

// Diagnostics returns the diagnostics produced while constructing the type,
// ordered by position.
func (t *TupleType) Diagnostics() []diagnostics.Diagnostic { return slices.Clone(t.diags) }

// Display returns the friendly form, e.g. "(a: int32, string)".
func (t *TupleType) Display() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, s := range t.slots {
		if i > 0 {
			b.WriteString(", ")
		}
		if s.Named {
			if s.Name == "" {
				b.WriteString(`""`)
			} else {
				b.WriteString(s.Name)
			}
			b.WriteString(": ")
		}
		b.WriteString(s.Type.String())
	}
	b.WriteByte(')')
	return b.String()
}

// String implements fmt.Stringer.
func (t *TupleType) String() string { return t.Display() }

func namesKey(slots []ElementSlot) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			b.WriteByte(',')
		}
		if !s.Named {
			b.WriteByte('-')
			continue
		}
		b.WriteString(strconv.Quote(s.Name))
	}
	return b.String()
}

// slotsKey is the intern key of a tuple: exact element types, the name
// table, and the declaration sites when known.
func slotsKey(slots []ElementSlot) string {
	var b strings.Builder
	b.WriteString(elementsKey(slotTypes(slots)))
	b.WriteByte('|')
	b.WriteString(namesKey(slots))
	for _, s := range slots {
		if k := s.Site.Key(); k != "" {
			b.WriteByte('|')
			b.WriteString(strconv.Itoa(s.Position))
			b.WriteByte('=')
			b.WriteString(k)
		}
	}
	return b.String()
}

func elementsKey(elems []*types.Type) string {
	keys := make([]string, len(elems))
	for i, e := range elems {
		keys[i] = e.Key(false)
	}
	return strings.Join(keys, ";")
}

func slotTypes(slots []ElementSlot) []*types.Type {
	out := make([]*types.Type, len(slots))
	for i, s := range slots {
		out[i] = s.Type
	}
	return out
}
