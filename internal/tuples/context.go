package tuples

import (
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"

	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/types"
)

// ====== Construction Context ======

// CompositeProvider answers composite definition lookups. It is called
// without any lock held and may itself construct tuple types.
type CompositeProvider interface {
	LookupComposite(arity int) (*types.GenericDefinition, bool)
}

// ElementConverter classifies conversions between element types that are
// not tuples.
type ElementConverter interface {
	ClassifyConversion(source, target *types.Type) types.ConversionKind
}

// Options configures a Context.
type Options struct {
	// LanguageVersion gates the feature. Nil means the latest version.
	LanguageVersion *semver.Version
	// Conversions classifies element conversions. Nil means
	// types.StandardConversions.
	Conversions ElementConverter
}

// Context owns the intern cache of one compilation. Lookups of known
// shapes are lock-free; the first construction of a shape is deduplicated
// across goroutines.
type Context struct {
	provider CompositeProvider
	opts     Options
	oracle   *Oracle
	gate     *diagnostics.Diagnostic

	composites sync.Map // elementsKey -> *Composite
	tuples     sync.Map // slotsKey -> *TupleType
	group      singleflight.Group

	built atomic.Int64
	hits  atomic.Int64
}

// NewContext creates a context over a composite provider.
func NewContext(provider CompositeProvider, opts Options) *Context {
	if opts.Conversions == nil {
		opts.Conversions = types.StandardConversions{}
	}
	c := &Context{
		provider: provider,
		opts:     opts,
		gate:     featureGate(opts.LanguageVersion),
	}
	c.oracle = &Oracle{elements: opts.Conversions}
	return c
}

// Oracle returns the equality and conversion oracle of the context.
func (c *Context) Oracle() *Oracle { return c.oracle }

// Stats reports intern cache activity.
type Stats struct {
	Composites int
	Tuples     int
	Built      int64
	Hits       int64
}

// Stats returns a snapshot of the intern cache counters.
func (c *Context) Stats() Stats {
	st := Stats{Built: c.built.Load(), Hits: c.hits.Load()}
	c.composites.Range(func(_, _ any) bool {
		st.Composites++
		return true
	})
	c.tuples.Range(func(_, _ any) bool {
		st.Tuples++
		return true
	})
	return st
}

// intern returns the tuple type for slots, building it on first use.
func (c *Context) intern(slots []ElementSlot) *TupleType {
	key := slotsKey(slots)
	if v, ok := c.tuples.Load(key); ok {
		c.hits.Add(1)
		return v.(*TupleType)
	}

	v, _, _ := c.group.Do("tuple:"+key, func() (interface{}, error) {
		if v, ok := c.tuples.Load(key); ok {
			return v, nil
		}
		t := c.build(slots)
		actual, loaded := c.tuples.LoadOrStore(key, t)
		if !loaded {
			c.built.Add(1)
		}
		return actual, nil
	})
	return v.(*TupleType)
}

func (c *Context) build(slots []ElementSlot) *TupleType {
	comp := c.resolveComposite(slotTypes(slots))
	t := &TupleType{
		slots:     slots,
		composite: comp,
		namesKey:  namesKey(slots),
	}
	t.typ = types.NewTupleType(t)

	var diags []diagnostics.Diagnostic
	if c.gate != nil {
		diags = append(diags, *c.gate)
	}
	diags = append(diags, comp.diagnostics()...)
	diags = append(diags, ValidateNames(slots)...)

	members, memberDiags := c.synthesizeMembers(t)
	diags = append(diags, memberDiags...)
	diagnostics.SortByPosition(diags)

	t.members = members
	t.lookup = buildLookup(members)
	t.diags = diags
	return t
}

func unnamedSlots(elems []*types.Type) []ElementSlot {
	slots := make([]ElementSlot, len(elems))
	for i, e := range elems {
		slots[i] = ElementSlot{Position: i + 1, Type: e}
	}
	return slots
}
