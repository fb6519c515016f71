package types

import (
	"sync"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestStandardCompositeShapes(t *testing.T) {
	for arity := 1; arity <= MaxCompositeArity; arity++ {
		def := StandardComposite(arity)
		qt.Assert(t, qt.Equals(def.Arity(), arity))
		qt.Assert(t, qt.IsTrue(def.Composite))
		qt.Assert(t, qt.HasLen(def.Fields, arity))

		for i := 0; i < arity && i < MaxDirectItems; i++ {
			qt.Assert(t, qt.Equals(def.Fields[i].Name, ItemName(i+1)))
			qt.Assert(t, qt.IsTrue(def.Fields[i].Type.IsParam(i)))
		}
		ctor := def.MethodsNamed(".ctor")
		qt.Assert(t, qt.HasLen(ctor, 1))
		qt.Assert(t, qt.HasLen(ctor[0].Params, arity))
	}

	eight := StandardComposite(8)
	qt.Assert(t, qt.Equals(eight.QualifiedName(), "System.ValueTuple`8"))
	qt.Assert(t, qt.Equals(eight.Fields[7].Name, RestFieldName))
	qt.Assert(t, qt.Equals(eight.TypeParams[7], "TRest"))
	qt.Assert(t, qt.HasLen(eight.FieldsNamed("Item8"), 0))
	qt.Assert(t, qt.Equals(eight.MethodsNamed(".ctor")[0].Params[7].Name, "rest"))

	qt.Assert(t, qt.PanicMatches(func() { StandardComposite(9) }, "StandardComposite: arity 9 out of range"))
}

func TestMethodSignature(t *testing.T) {
	def := StandardComposite(2)
	qt.Assert(t, qt.Equals(def.MethodsNamed(".ctor")[0].Signature(def), ".ctor(item1 T1, item2 T2)"))
	qt.Assert(t, qt.Equals(def.MethodsNamed("Equals")[0].Signature(def), "Equals(other any) bool"))
}

func TestTypeRefSubstitute(t *testing.T) {
	args := []*Type{TypeInt32, TypeString}
	qt.Assert(t, qt.Equals(ParamRef(1).Substitute(args), TypeString))
	qt.Assert(t, qt.Equals(ParamRef(5).Substitute(args), TypeUnknown))
	qt.Assert(t, qt.Equals(ConcreteRef(TypeBool).Substitute(args), TypeBool))
	qt.Assert(t, qt.IsFalse(ConcreteRef(TypeBool).IsParam(0)))
}

func TestUniverse(t *testing.T) {
	u := StandardUniverse()
	qt.Assert(t, qt.DeepEquals(u.Arities(), []int{1, 2, 3, 4, 5, 6, 7, 8}))
	qt.Assert(t, qt.Equals(u.Source(), "standard"))

	def, ok := u.LookupComposite(3)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(def.QualifiedName(), "System.ValueTuple`3"))

	u.Remove(3)
	_, ok = u.LookupComposite(3)
	qt.Assert(t, qt.IsFalse(ok))

	_, ok = NewUniverse().LookupComposite(2)
	qt.Assert(t, qt.IsFalse(ok))

	foreign := &GenericDefinition{Namespace: "System", Name: "ValueTuple", TypeParams: []string{"A", "B", "C"}}
	u.Define(foreign)
	def, ok = u.LookupComposite(3)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(def, foreign))
	qt.Assert(t, qt.IsTrue(def.Composite))

	u.SetSource("universe.json")
	qt.Assert(t, qt.Equals(u.Source(), "universe.json"))
}

func TestUniverseConcurrentAccess(t *testing.T) {
	u := StandardUniverse()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				u.Define(StandardComposite(i%MaxCompositeArity + 1))
				return
			}
			_, _ = u.LookupComposite(i%MaxCompositeArity + 1)
		}(i)
	}
	wg.Wait()
	qt.Assert(t, qt.HasLen(u.Arities(), MaxCompositeArity))
}
