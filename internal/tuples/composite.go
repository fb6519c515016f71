package tuples

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/types"
)

// ====== Underlying Composite ======

// CompositeNode is one level of the Rest chain.
type CompositeNode struct {
	Depth int
	// Shape is the type-parameter count of the definition used at this
	// depth (1..8).
	Shape int
	// Definition is nil when the universe lacks the shape.
	Definition *types.GenericDefinition
	// Type is the instantiation at this depth, or a placeholder.
	Type *types.Type
	// Offset is the 0-based flattened index of Items[0].
	Offset int
	// Items are the elements stored directly at this depth.
	Items []*types.Type
}

// Composite is the physical storage of a tuple: composite instantiations
// nested to the right through Rest. The chain is kept as a flat list of
// depth nodes, so flattening and comparison are linear scans.
type Composite struct {
	typ      *types.Type
	nodes    []CompositeNode
	elements []*types.Type
	rest     *Composite
	missing  []int
}

// Type returns the outermost instantiation, or an error placeholder that
// records the requested arity and element types.
func (c *Composite) Type() *types.Type { return c.typ }

// Arity returns the total number of flattened elements.
func (c *Composite) Arity() int { return len(c.elements) }

// Depth returns the number of nodes in the Rest chain.
func (c *Composite) Depth() int { return len(c.nodes) }

// Node returns the node at depth d.
func (c *Composite) Node(d int) CompositeNode { return c.nodes[d] }

// Nodes returns a copy of the depth nodes.
func (c *Composite) Nodes() []CompositeNode { return slices.Clone(c.nodes) }

// Elements returns the flattened element types.
func (c *Composite) Elements() []*types.Type { return slices.Clone(c.elements) }

// Rest returns the composite nested in the Rest field, or nil.
func (c *Composite) Rest() *Composite { return c.rest }

// IsPlaceholder reports whether some shape was missing.
func (c *Composite) IsPlaceholder() bool { return len(c.missing) > 0 }

// MissingArities returns the arities whose definitions were missing.
func (c *Composite) MissingArities() []int { return slices.Clone(c.missing) }

func (c *Composite) diagnostics() []diagnostics.Diagnostic {
	if len(c.missing) == 0 {
		return nil
	}
	out := make([]diagnostics.Diagnostic, 0, len(c.missing))
	for _, arity := range c.missing {
		name := compositeQualifiedName(arity)
		out = append(out, diagnostics.Diagnostic{
			Kind:    diagnostics.KindMissingCompositeDefinition,
			Level:   diagnostics.DiagnosticError,
			Message: fmt.Sprintf("predefined type '%s' is not defined or imported", name),
			Name:    name,
			Related: arity,
		})
	}
	return out
}

func compositeQualifiedName(arity int) string {
	return fmt.Sprintf("%s.%s`%d", types.CompositeNamespace, types.CompositeName, arity)
}

// ResolveComposite returns the composite storing elems, building and
// interning it on first use. Arities 2..7 map to the shape of the same
// arity; larger arities use the 8 shape with the remainder nested in Rest,
// ending in the 1 shape when a single element remains. Missing shapes are
// reported as MissingCompositeDefinition and yield a placeholder.
func (c *Context) ResolveComposite(elems []*types.Type) (*Composite, []diagnostics.Diagnostic) {
	comp := c.resolveComposite(elems)
	return comp, comp.diagnostics()
}

func (c *Context) resolveComposite(elems []*types.Type) *Composite {
	key := elementsKey(elems)
	if v, ok := c.composites.Load(key); ok {
		return v.(*Composite)
	}

	v, _, _ := c.group.Do("composite:"+key, func() (interface{}, error) {
		if v, ok := c.composites.Load(key); ok {
			return v, nil
		}
		// Built outside any lock: the provider lookup may itself construct
		// further tuple types.
		comp := c.buildComposite(elems)
		actual, _ := c.composites.LoadOrStore(key, comp)
		return actual, nil
	})
	return v.(*Composite)
}

func (c *Context) buildComposite(elems []*types.Type) *Composite {
	n := len(elems)
	comp := &Composite{elements: slices.Clone(elems)}

	shape := n
	direct := elems
	if n > types.MaxDirectItems {
		shape = types.MaxCompositeArity
		direct = elems[:types.MaxDirectItems]
		comp.rest = c.resolveComposite(elems[types.MaxDirectItems:])
	}

	def, ok := c.provider.LookupComposite(shape)
	if !ok {
		comp.missing = append(comp.missing, shape)
	}
	if comp.rest != nil {
		for _, a := range comp.rest.missing {
			if !slices.Contains(comp.missing, a) {
				comp.missing = append(comp.missing, a)
			}
		}
	}
	slices.Sort(comp.missing)

	if !comp.IsPlaceholder() {
		args := slices.Clone(direct)
		if comp.rest != nil {
			args = append(args, comp.rest.typ)
		}
		inst, err := types.Instantiate(def, args)
		if err != nil {
			comp.typ = types.NewErrorType(compositeQualifiedName(shape), elems, err.Error())
		} else {
			comp.typ = inst
		}
	} else {
		comp.typ = types.NewErrorType(compositeQualifiedName(shape), elems, "missing composite definition")
	}

	node := CompositeNode{
		Depth:      0,
		Shape:      shape,
		Definition: def,
		Type:       comp.typ,
		Items:      slices.Clone(direct),
	}
	if !ok {
		node.Definition = nil
	}
	comp.nodes = append(comp.nodes, node)
	if comp.rest != nil {
		for _, inner := range comp.rest.nodes {
			inner.Depth++
			inner.Offset += types.MaxDirectItems
			comp.nodes = append(comp.nodes, inner)
		}
	}
	return comp
}

// FlattenComposite returns the flattened element types of a composite
// instantiation, following Rest to any depth. It reports false when t is
// not a tuple composite. Placeholders flatten to their recorded elements.
func FlattenComposite(t *types.Type) ([]*types.Type, bool) {
	if t == nil {
		return nil, false
	}
	if e := t.Placeholder(); e != nil {
		return slices.Clone(e.Args), true
	}
	inst := t.Instance()
	if inst == nil || !inst.Definition.Composite {
		return nil, false
	}
	if inst.Definition.Arity() < types.MaxCompositeArity {
		return slices.Clone(inst.Args), true
	}
	out := slices.Clone(inst.Args[:types.MaxDirectItems])
	rest, ok := flattenAny(inst.Args[types.MaxDirectItems])
	if !ok {
		// A Rest that is not itself a composite counts as one element.
		return append(out, inst.Args[types.MaxDirectItems]), true
	}
	return append(out, rest...), true
}

// flattenAny flattens tuple views and composite instantiations.
func flattenAny(t *types.Type) ([]*types.Type, bool) {
	if tt, ok := AsTuple(t); ok {
		return tt.ElementTypes(), true
	}
	if v := t.Tuple(); v != nil {
		return FlattenComposite(v.Underlying())
	}
	return FlattenComposite(t)
}
