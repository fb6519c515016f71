package tuples

import (
	"fmt"

	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/errors"
	"github.com/orizon-lang/tuples/internal/position"
	"github.com/orizon-lang/tuples/internal/types"
)

// ====== Tuple Factory ======

// ElementName is one entry of a construction request's name list. A zero
// ElementName is a null name, which is rejected; the empty string is a
// legal name.
type ElementName struct {
	Value string
	Valid bool
	Site  position.Span
}

// Name returns a valid element name without a site.
func Name(v string) ElementName { return ElementName{Value: v, Valid: true} }

// NameAt returns a valid element name declared at site.
func NameAt(v string, site position.Span) ElementName {
	return ElementName{Value: v, Valid: true, Site: site}
}

// Names returns valid element names without sites.
func Names(vs ...string) []ElementName {
	out := make([]ElementName, len(vs))
	for i, v := range vs {
		out[i] = Name(v)
	}
	return out
}

// CreateTupleType returns the tuple type with the given elements and
// names. A nil names slice declares no names; otherwise it must have one
// entry per element. Equal requests return the same *TupleType.
//
// Name problems are not errors: they are reported by the returned type's
// Diagnostics and the type is still usable for binding.
func (c *Context) CreateTupleType(elementTypes []*types.Type, names []ElementName) (*TupleType, error) {
	if len(elementTypes) < 2 {
		return nil, errors.Newf(ErrInvalidArity, map[string]interface{}{"arity": len(elementTypes)},
			"a tuple needs at least two elements, got %d", len(elementTypes))
	}
	for i, e := range elementTypes {
		if e == nil {
			return nil, errors.Newf(ErrNullElement, map[string]interface{}{"position": i + 1},
				"element %d has no type", i+1)
		}
	}
	switch {
	case names != nil && len(names) < len(elementTypes):
		return nil, errors.Newf(ErrPartialNames, map[string]interface{}{"names": len(names), "elements": len(elementTypes)},
			"%d names for %d elements", len(names), len(elementTypes))
	case len(names) > len(elementTypes):
		return nil, errors.Newf(ErrNameCountMismatch, map[string]interface{}{"names": len(names), "elements": len(elementTypes)},
			"%d names for %d elements", len(names), len(elementTypes))
	}

	slots := make([]ElementSlot, len(elementTypes))
	for i, e := range elementTypes {
		slots[i] = ElementSlot{Position: i + 1, Type: e}
		if names == nil {
			continue
		}
		if !names[i].Valid {
			return nil, errors.Newf(ErrNullName, map[string]interface{}{"position": i + 1},
				"element %d has a null name", i+1)
		}
		slots[i].Name = names[i].Value
		slots[i].Named = true
		slots[i].Site = names[i].Site
	}
	return c.intern(slots), nil
}

// ElementDecl is one element as written in source.
type ElementDecl struct {
	Type  *types.Type
	Name  string
	Named bool
	Site  position.Span
}

// Declare builds the tuple type of a declaration written at site. Unlike
// CreateTupleType it accepts a partially named element list: every unnamed
// element is reported as ExplicitNamesOnAllOrNone and the type is built
// with the names that were given. The returned diagnostics include those
// of the tuple type and are ordered by position.
func (c *Context) Declare(site position.Span, elems []ElementDecl) (*TupleType, []diagnostics.Diagnostic, error) {
	if len(elems) < 2 {
		return nil, nil, errors.Newf(ErrInvalidArity, map[string]interface{}{"arity": len(elems), "site": site.String()},
			"a tuple needs at least two elements, got %d", len(elems))
	}

	named := 0
	slots := make([]ElementSlot, len(elems))
	for i, e := range elems {
		if e.Type == nil {
			return nil, nil, errors.Newf(ErrNullElement, map[string]interface{}{"position": i + 1, "site": site.String()},
				"element %d has no type", i+1)
		}
		slots[i] = ElementSlot{Position: i + 1, Type: e.Type, Name: e.Name, Named: e.Named, Site: e.Site}
		if e.Named {
			named++
		}
	}

	var diags []diagnostics.Diagnostic
	if named > 0 && named < len(elems) {
		for _, s := range slots {
			if s.Named {
				continue
			}
			d := diagnostics.Diagnostic{
				Kind:      diagnostics.KindExplicitNamesOnAllOrNone,
				Level:     diagnostics.DiagnosticError,
				Message:   fmt.Sprintf("tuple element %d must be named because other elements are named", s.Position),
				Positions: []int{s.Position},
				Span:      site,
			}
			if s.Site.IsValid() {
				d.Sites = []position.Span{s.Site}
			}
			diags = append(diags, d)
		}
	}

	t := c.intern(slots)
	for _, d := range t.diags {
		if !d.Span.IsValid() {
			d.Span = site
		}
		diags = append(diags, d)
	}
	diagnostics.SortByPosition(diags)
	return t, diags, nil
}
