package types

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// ====== Tuple Composite Definitions ======

const (
	// CompositeNamespace and CompositeName name the standard tuple storage shapes.
	CompositeNamespace = "System"
	CompositeName      = "ValueTuple"

	// MaxDirectItems is the number of elements a composite stores directly;
	// the largest shape stores the remaining elements in its Rest field.
	MaxDirectItems = 7
	// MaxCompositeArity is the type-parameter count of the largest shape.
	MaxCompositeArity = MaxDirectItems + 1

	// RestFieldName is the overflow field of the largest shape.
	RestFieldName = "Rest"
)

// ItemName returns the positional name of the k-th element (1-based).
func ItemName(k int) string { return fmt.Sprintf("Item%d", k) }

// StandardComposite builds the standard tuple storage definition with the
// given number of type parameters (1..8).
func StandardComposite(arity int) *GenericDefinition {
	if arity < 1 || arity > MaxCompositeArity {
		panic(fmt.Sprintf("StandardComposite: arity %d out of range", arity))
	}

	def := &GenericDefinition{
		Namespace: CompositeNamespace,
		Name:      CompositeName,
		Composite: true,
	}

	direct := arity
	if arity == MaxCompositeArity {
		direct = MaxDirectItems
	}

	ctorParams := make([]ParamDef, 0, arity)
	for i := 0; i < direct; i++ {
		def.TypeParams = append(def.TypeParams, fmt.Sprintf("T%d", i+1))
		def.Fields = append(def.Fields, FieldDef{Name: ItemName(i + 1), Type: ParamRef(i)})
		ctorParams = append(ctorParams, ParamDef{Name: fmt.Sprintf("item%d", i+1), Type: ParamRef(i)})
	}
	if arity == MaxCompositeArity {
		def.TypeParams = append(def.TypeParams, "TRest")
		def.Fields = append(def.Fields, FieldDef{Name: RestFieldName, Type: ParamRef(MaxDirectItems)})
		ctorParams = append(ctorParams, ParamDef{Name: "rest", Type: ParamRef(MaxDirectItems)})
	}

	def.Methods = []MethodDef{
		{Name: ".ctor", Params: ctorParams, Constructor: true},
		{Name: "Equals", Params: []ParamDef{{Name: "other", Type: ConcreteRef(TypeAny)}}, Result: ConcreteRef(TypeBool)},
		{Name: "GetHashCode", Result: ConcreteRef(TypeInt32)},
		{Name: "CompareTo", Params: []ParamDef{{Name: "other", Type: ConcreteRef(TypeAny)}}, Result: ConcreteRef(TypeInt32)},
		{Name: "ToString", Result: ConcreteRef(TypeString)},
	}
	return def
}

// ====== Type Universe ======

// Universe holds the generic definitions a compilation references. It
// answers the composite lookups of the tuple facility and is safe for
// concurrent use.
type Universe struct {
	mu         sync.RWMutex
	composites map[int]*GenericDefinition
	source     string
}

// NewUniverse returns an empty universe, in which every composite lookup fails.
func NewUniverse() *Universe {
	return &Universe{composites: make(map[int]*GenericDefinition)}
}

// StandardUniverse returns a universe with all eight standard composites.
func StandardUniverse() *Universe {
	u := NewUniverse()
	for arity := 1; arity <= MaxCompositeArity; arity++ {
		u.Define(StandardComposite(arity))
	}
	u.source = "standard"
	return u
}

// Define adds or replaces the composite with the definition's arity.
func (u *Universe) Define(def *GenericDefinition) {
	u.mu.Lock()
	defer u.mu.Unlock()
	def.Composite = true
	u.composites[def.Arity()] = def
}

// Remove drops the composite with the given arity.
func (u *Universe) Remove(arity int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.composites, arity)
}

// LookupComposite returns the composite definition with the given number of
// type parameters.
func (u *Universe) LookupComposite(arity int) (*GenericDefinition, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	def, ok := u.composites[arity]
	return def, ok
}

// Arities returns the defined composite arities in ascending order.
func (u *Universe) Arities() []int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]int, 0, len(u.composites))
	for a := range u.composites {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// SetSource records where the universe was loaded from.
func (u *Universe) SetSource(source string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.source = source
}

// Source returns where the universe was loaded from.
func (u *Universe) Source() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.source
}
