package tuples

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/orizon-lang/tuples/internal/types"
)

func pair(a, b *types.Type) []*types.Type { return []*types.Type{a, b} }

func TestOracleNameInsensitivity(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()
	elems := pair(types.TypeInt32, types.TypeString)

	nameSets := [][]string{nil, {"a", "b"}, {"c", "d"}, {"Item1", "Item2"}, {"", ""}, {"a", "a"}}
	for i, n1 := range nameSets {
		for j, n2 := range nameSets {
			t1 := mustCreate(t, c, elems, n1...)
			t2 := mustCreate(t, c, elems, n2...)

			qt.Assert(t, qt.IsTrue(o.StructurallyEqual(t1.Type(), t2.Type())))
			qt.Assert(t, qt.Equals(o.IdentityEqual(t1.Type(), t2.Type()), i == j),
				qt.Commentf("%v vs %v", n1, n2))
			qt.Assert(t, qt.Equals(t1 == t2, i == j))

			conv, err := o.Classify(t1.Type(), t2.Type())
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(conv.Kind, types.ConversionIdentity))
		}
	}
}

func TestOracleRawComposite(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()
	unnamed := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))
	named := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32), "a", "b")
	raw := unnamed.Underlying()

	qt.Assert(t, qt.IsTrue(o.IdentityEqual(unnamed.Type(), raw)))
	qt.Assert(t, qt.IsTrue(o.IdentityEqual(raw, unnamed.Type())))
	qt.Assert(t, qt.IsFalse(o.IdentityEqual(named.Type(), raw)))
	qt.Assert(t, qt.IsTrue(o.StructurallyEqual(named.Type(), raw)))
	qt.Assert(t, qt.IsFalse(o.StructurallyEqual(named.Type(), types.TypeInt32)))

	conv, err := o.Classify(raw, named.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionIdentity))
}

func TestOracleElementDirection(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()

	tests := []struct {
		name   string
		source []*types.Type
		target []*types.Type
		want   types.ConversionKind
	}{
		{"widening", pair(types.TypeInt16, types.TypeString), pair(types.TypeInt32, types.TypeString), types.ConversionImplicitTuple},
		{"narrowing", pair(types.TypeInt32, types.TypeString), pair(types.TypeInt16, types.TypeString), types.ConversionExplicitTuple},
		{"short to int pair", pair(types.TypeInt16, types.TypeInt16), pair(types.TypeInt32, types.TypeInt32), types.ConversionImplicitTuple},
		{"int to short pair", pair(types.TypeInt32, types.TypeInt32), pair(types.TypeInt16, types.TypeInt16), types.ConversionExplicitTuple},
		{"no element conversion", pair(types.TypeString, types.TypeInt32), pair(types.TypeInt32, types.TypeInt32), types.ConversionNone},
		{"mixed", pair(types.TypeInt16, types.TypeInt64), pair(types.TypeInt32, types.TypeInt32), types.ConversionExplicitTuple},
		{"to any element", pair(types.TypeInt32, types.TypeString), pair(types.TypeAny, types.TypeAny), types.ConversionImplicitTuple},
		{"arity mismatch", pair(types.TypeInt32, types.TypeInt32), repeat(types.TypeInt32, 3), types.ConversionNone},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			source := mustCreate(t, c, test.source)
			target := mustCreate(t, c, test.target)
			conv, err := o.Classify(source.Type(), target.Type())
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(conv.Kind, test.want))
		})
	}
}

func TestOracleShortStringDoesNotConvertBack(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()
	shortString := mustCreate(t, c, pair(types.TypeInt16, types.TypeString))
	intInt := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))

	conv, err := o.Classify(shortString.Type(), intInt.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(conv.IsImplicit()))
	qt.Assert(t, qt.Equals(conv.Elements[0].Kind, types.ConversionImplicitNumeric))
	qt.Assert(t, qt.Equals(conv.Elements[1].Kind, types.ConversionNone))
}

func TestOracleLongTuples(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()

	source := repeat(types.TypeInt32, 17)
	target := repeat(types.TypeInt32, 17)
	target[15] = types.TypeInt64
	s := mustCreate(t, c, source)
	d := mustCreate(t, c, target)

	conv, err := o.Classify(s.Type(), d.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.HasLen(conv.Elements, 17))
	qt.Assert(t, qt.Equals(conv.Elements[15].Kind, types.ConversionImplicitNumeric))

	qt.Assert(t, qt.IsFalse(o.StructurallyEqual(s.Type(), d.Type())))
	qt.Assert(t, qt.IsTrue(o.StructurallyEqual(s.Type(), s.Underlying())))
}

func TestOracleNestedTuples(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()

	innerNamed := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32), "x", "y")
	inner := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))
	innerWide := mustCreate(t, c, pair(types.TypeInt64, types.TypeInt64))

	a := mustCreate(t, c, pair(innerNamed.Type(), types.TypeString), "p", "q")
	b := mustCreate(t, c, pair(inner.Type(), types.TypeString))
	wide := mustCreate(t, c, pair(innerWide.Type(), types.TypeString))

	qt.Assert(t, qt.IsTrue(o.StructurallyEqual(a.Type(), b.Type())))
	qt.Assert(t, qt.IsFalse(o.IdentityEqual(a.Type(), b.Type())))

	conv, err := o.Classify(a.Type(), b.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionIdentity))

	conv, err = o.Classify(b.Type(), wide.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.Equals(conv.Elements[0].Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.HasLen(conv.Elements[0].Elements, 2))

	conv, err = o.Classify(wide.Type(), b.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionExplicitTuple))
}

func TestOracleNullable(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()
	tt := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))
	named := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32), "a", "b")
	wide := mustCreate(t, c, pair(types.TypeInt64, types.TypeInt64))
	nullable := types.NewNullableType(tt.Type())
	nullableNamed := types.NewNullableType(named.Type())
	nullableWide := types.NewNullableType(wide.Type())

	tests := []struct {
		name           string
		source, target *types.Type
		want           types.ConversionKind
	}{
		{"wrap", tt.Type(), nullable, types.ConversionImplicitNullable},
		{"wrap and widen", tt.Type(), nullableWide, types.ConversionImplicitNullable},
		{"unwrap", nullable, tt.Type(), types.ConversionExplicitNullable},
		{"names under nullable", nullable, nullableNamed, types.ConversionIdentity},
		{"widen under nullable", nullable, nullableWide, types.ConversionImplicitNullable},
		{"narrow under nullable", nullableWide, nullable, types.ConversionExplicitNullable},
		{"narrow and wrap", wide.Type(), nullable, types.ConversionExplicitNullable},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conv, err := o.Classify(test.source, test.target)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(conv.Kind, test.want))
			qt.Assert(t, qt.IsNotNil(conv.Inner))
		})
	}

	qt.Assert(t, qt.IsTrue(o.StructurallyEqual(nullable, nullableNamed)))
	qt.Assert(t, qt.IsFalse(o.IdentityEqual(nullable, nullableNamed)))
}

func TestOracleChain(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()
	longs := mustCreate(t, c, pair(types.TypeInt64, types.TypeInt64))
	ints := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))
	nullableInts := types.NewNullableType(ints.Type())

	chain, err := o.ClassifyChain(longs.Type(), ints.Type(), nullableInts)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(chain.Steps, 2))
	qt.Assert(t, qt.IsTrue(chain.Exists()))

	inner := chain.Innermost()
	qt.Assert(t, qt.Equals(inner.Kind, types.ConversionExplicitTuple))
	qt.Assert(t, qt.Equals(inner.Elements[0].Kind, types.ConversionExplicitNumeric))
	qt.Assert(t, qt.Equals(inner.Elements[1].Kind, types.ConversionExplicitNumeric))

	outer := chain.Outermost()
	qt.Assert(t, qt.Equals(outer.Kind, types.ConversionImplicitNullable))
	qt.Assert(t, qt.Equals(outer.Inner.Kind, types.ConversionIdentity))
	qt.Assert(t, qt.Equals(chain.ConvertedType(), nullableInts))

	_, err = o.ClassifyChain(longs.Type())
	qt.Assert(t, qt.IsNotNil(err))
}

func TestOracleNonTuples(t *testing.T) {
	o := newTestContext().Oracle()

	conv, err := o.Classify(types.TypeInt16, types.TypeInt32)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitNumeric))
	qt.Assert(t, qt.IsNil(conv.Elements))

	qt.Assert(t, qt.IsTrue(o.IdentityEqual(types.TypeString, types.TypeString)))
	qt.Assert(t, qt.IsFalse(o.StructurallyEqual(types.TypeString, types.TypeInt32)))
}

func TestOracleTupleToAny(t *testing.T) {
	c := newTestContext()
	tt := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))

	conv, err := c.Oracle().Classify(tt.Type(), types.TypeAny)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitReference))

	conv, err = c.Oracle().Classify(types.TypeAny, tt.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionExplicitReference))
}

func TestOracleNullableTupleToAny(t *testing.T) {
	c := newTestContext()
	o := c.Oracle()
	tt := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))
	nullable := types.NewNullableType(tt.Type())

	// A nullable tuple boxes to any exactly like a nullable int does.
	conv, err := o.Classify(nullable, types.TypeAny)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitReference))
	qt.Assert(t, qt.Equals(conv.Kind, types.StandardConversions{}.ClassifyConversion(types.NewNullableType(types.TypeInt32), types.TypeAny)))

	conv, err = o.Classify(tt.Type(), types.NewNullableType(types.TypeAny))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitNullable))

	conv, err = o.Classify(types.TypeAny, nullable)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionExplicitNullable))

	conv, err = o.Classify(nullable, types.TypeInt32)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionNone))

	// Nested as an element, the boxing conversion keeps the tuple implicit.
	outer := mustCreate(t, c, pair(nullable, types.TypeInt32))
	boxed := mustCreate(t, c, pair(types.TypeAny, types.TypeInt32))
	conv, err = o.Classify(outer.Type(), boxed.Type())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(conv.Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.Equals(conv.Elements[0].Kind, types.ConversionImplicitReference))
	qt.Assert(t, qt.IsTrue(conv.IsImplicit()))
}

func TestOraclePlaceholder(t *testing.T) {
	c := NewContext(universeWithout(2), Options{})
	broken := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32))
	fine := mustCreate(t, c, repeat(types.TypeInt32, 3))

	_, err := c.Oracle().Classify(broken.Type(), broken.Type())
	qt.Assert(t, qt.ErrorIs(err, ErrUnusableType))

	_, err = c.Oracle().Classify(fine.Type(), types.NewNullableType(broken.Type()))
	qt.Assert(t, qt.ErrorIs(err, ErrUnusableType))

	// Equality questions still have answers.
	other := mustCreate(t, c, pair(types.TypeInt32, types.TypeInt32), "a", "b")
	qt.Assert(t, qt.IsTrue(c.Oracle().StructurallyEqual(broken.Type(), other.Type())))
}
