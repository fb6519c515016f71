package tuples

import (
	"github.com/orizon-lang/tuples/internal/errors"
	"github.com/orizon-lang/tuples/internal/types"
)

// ====== Equality and Conversion Oracle ======

// Conversion is a classified conversion. Tuple conversions carry one
// element conversion per flattened position; nullable conversions carry the
// conversion of the wrapped types.
type Conversion struct {
	Kind     types.ConversionKind
	Source   *types.Type
	Target   *types.Type
	Elements []*Conversion
	Inner    *Conversion
}

// Exists reports whether the conversion exists.
func (c *Conversion) Exists() bool { return c.Kind.Exists() }

// IsImplicit reports whether the conversion needs no cast.
func (c *Conversion) IsImplicit() bool { return c.Kind.IsImplicit() }

// IsExplicit reports whether the conversion needs a cast.
func (c *Conversion) IsExplicit() bool { return c.Kind.IsExplicit() }

// ConversionChain is a sequence of conversions applied one after another,
// e.g. a cast to a tuple followed by wrapping in a nullable. Steps are in
// application order.
type ConversionChain struct {
	Source *types.Type
	Steps  []*Conversion
}

// Innermost returns the first conversion applied.
func (ch *ConversionChain) Innermost() *Conversion { return ch.Steps[0] }

// Outermost returns the last conversion applied. Its kind is the kind of
// the whole chain.
func (ch *ConversionChain) Outermost() *Conversion { return ch.Steps[len(ch.Steps)-1] }

// ConvertedType returns the type the chain produces.
func (ch *ConversionChain) ConvertedType() *types.Type { return ch.Outermost().Target }

// Exists reports whether every step exists.
func (ch *ConversionChain) Exists() bool {
	for _, s := range ch.Steps {
		if !s.Exists() {
			return false
		}
	}
	return true
}

// Oracle answers equality and conversion questions about tuple types.
// Arguments may be tuple views, raw composite instantiations, nullable
// wrappers of either, or any other type.
type Oracle struct {
	elements ElementConverter
}

// IdentityEqual reports whether a and b are the same type: same underlying
// composite and same name table. A raw composite instantiation has no names.
func (o *Oracle) IdentityEqual(a, b *types.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == types.TypeKindNullable && b.Kind == types.TypeKindNullable {
		return o.IdentityEqual(a.Elem(), b.Elem())
	}
	av, bv := a.Tuple(), b.Tuple()
	switch {
	case av != nil && bv != nil:
		return a.Equals(b)
	case av != nil:
		return !hasNames(av) && av.Underlying().Equals(b)
	case bv != nil:
		return !hasNames(bv) && a.Equals(bv.Underlying())
	default:
		return a.Equals(b)
	}
}

func hasNames(v types.TupleView) bool {
	tt, ok := v.(*TupleType)
	return ok && tt.HasNames()
}

// StructurallyEqual reports whether a and b have the same flattened
// element types once names are ignored at every nesting level.
func (o *Oracle) StructurallyEqual(a, b *types.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == types.TypeKindNullable && b.Kind == types.TypeKindNullable {
		return o.StructurallyEqual(a.Elem(), b.Elem())
	}
	ae, aok := flattenAny(a)
	be, bok := flattenAny(b)
	if !aok || !bok {
		return a.EqualsIgnoringNames(b)
	}
	if len(ae) != len(be) {
		return false
	}
	for i := range ae {
		if !ae[i].EqualsIgnoringNames(be[i]) {
			return false
		}
	}
	return true
}

// Classify classifies the conversion from source to target. Tuple
// conversions are decided element-wise over flattened positions; names
// never matter. Types built over missing composite definitions cannot be
// converted and yield ErrUnusableType.
func (o *Oracle) Classify(source, target *types.Type) (*Conversion, error) {
	for _, t := range []*types.Type{source, target} {
		if t.IsError() {
			return nil, errors.Newf(ErrUnusableType, map[string]interface{}{"type": t.String()},
				"cannot convert a value of type '%s'", t)
		}
	}
	return o.classify(source, target), nil
}

func (o *Oracle) classify(source, target *types.Type) *Conversion {
	conv := &Conversion{Source: source, Target: target}

	sInner, sNullable := unwrapNullable(source)
	tInner, tNullable := unwrapNullable(target)
	// Lifting applies only between tuple shapes; a nullable tuple against a
	// non-tuple type follows the element rules like any other nullable.
	if (sNullable || tNullable) && isTupleLike(sInner) && isTupleLike(tInner) {
		conv.Inner = o.classify(sInner, tInner)
		inner := conv.Inner.Kind
		switch {
		case !inner.Exists():
			conv.Kind = types.ConversionNone
		case sNullable && tNullable && inner == types.ConversionIdentity:
			conv.Kind = types.ConversionIdentity
		case sNullable && !tNullable:
			conv.Kind = types.ConversionExplicitNullable
		case inner.IsImplicit():
			conv.Kind = types.ConversionImplicitNullable
		default:
			conv.Kind = types.ConversionExplicitNullable
		}
		return conv
	}

	if !isTupleLike(source) || !isTupleLike(target) {
		conv.Kind = o.elements.ClassifyConversion(source, target)
		return conv
	}

	se, _ := flattenAny(source)
	te, _ := flattenAny(target)
	if len(se) != len(te) {
		conv.Kind = types.ConversionNone
		return conv
	}

	identity, implicit := true, true
	conv.Elements = make([]*Conversion, len(se))
	for i := range se {
		ec := o.classifyElement(se[i], te[i])
		conv.Elements[i] = ec
		if !ec.Exists() {
			conv.Kind = types.ConversionNone
			return conv
		}
		identity = identity && ec.Kind == types.ConversionIdentity
		implicit = implicit && ec.IsImplicit()
	}
	switch {
	case identity:
		conv.Kind = types.ConversionIdentity
	case implicit:
		conv.Kind = types.ConversionImplicitTuple
	default:
		conv.Kind = types.ConversionExplicitTuple
	}
	return conv
}

// classifyElement recurses through the oracle for tuple-shaped elements and
// defers to the element converter for everything else.
func (o *Oracle) classifyElement(source, target *types.Type) *Conversion {
	s, _ := unwrapNullable(source)
	t, _ := unwrapNullable(target)
	if isTupleLike(s) || isTupleLike(t) {
		return o.classify(source, target)
	}
	return &Conversion{
		Kind:   o.elements.ClassifyConversion(source, target),
		Source: source,
		Target: target,
	}
}

// ClassifyChain classifies source converted to each target in turn.
func (o *Oracle) ClassifyChain(source *types.Type, targets ...*types.Type) (*ConversionChain, error) {
	if len(targets) == 0 {
		return nil, errors.NewStandardError(errors.CategoryValidation, "EMPTY_CHAIN",
			"conversion chain needs at least one target", nil)
	}
	chain := &ConversionChain{Source: source}
	cur := source
	for _, target := range targets {
		conv, err := o.Classify(cur, target)
		if err != nil {
			return nil, err
		}
		chain.Steps = append(chain.Steps, conv)
		cur = target
	}
	return chain, nil
}

func unwrapNullable(t *types.Type) (*types.Type, bool) {
	if t != nil && t.Kind == types.TypeKindNullable {
		return t.Elem(), true
	}
	return t, false
}

func isTupleLike(t *types.Type) bool {
	_, ok := flattenAny(t)
	return ok
}
