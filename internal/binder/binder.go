package binder

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/tuples/internal/cli"
	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/errors"
	"github.com/orizon-lang/tuples/internal/position"
	"github.com/orizon-lang/tuples/internal/tuples"
	"github.com/orizon-lang/tuples/internal/types"
)

// Binder binds units over one shared tuple context. It is safe for
// concurrent use.
type Binder struct {
	tuples   *tuples.Context
	registry *types.TypeRegistry
	logger   *cli.Logger
	limit    int
}

// New returns a binder. A nil registry means the built-in types, a nil
// logger discards progress messages, and limit bounds the number of units
// bound at once (at least one).
func New(tc *tuples.Context, registry *types.TypeRegistry, logger *cli.Logger, limit int) *Binder {
	if registry == nil {
		registry = types.NewTypeRegistry()
	}
	if logger == nil {
		logger = cli.NewLogger(false, false)
	}
	if limit < 1 {
		limit = 1
	}
	return &Binder{tuples: tc, registry: registry, logger: logger, limit: limit}
}

// Context returns the shared tuple context.
func (b *Binder) Context() *tuples.Context { return b.tuples }

// Binding is the outcome of one declaration. Type is nil when Err is set.
type Binding struct {
	ID          string
	Site        position.Span
	Type        *tuples.TupleType
	Diagnostics []diagnostics.Diagnostic
	Err         error
}

// Answer is the outcome of one conversion query.
type Answer struct {
	Query ConversionQuery
	// Chain holds one step per hop of the query; Conversion is its
	// outermost step.
	Chain      *tuples.ConversionChain
	Conversion *tuples.Conversion
	// Allowed reports whether the conversion may be applied as written:
	// every step implicit, or every step existing when the query is explicit.
	Allowed bool
	Err     error
}

// Result is the outcome of binding one unit.
type Result struct {
	Unit     string
	Bindings []*Binding
	Answers  []*Answer
}

// Lookup returns the binding with the given declaration id.
func (r *Result) Lookup(id string) (*Binding, bool) {
	for _, bd := range r.Bindings {
		if bd.ID == id {
			return bd, true
		}
	}
	return nil, false
}

// Diagnostics returns the diagnostics of every declaration, each
// declaration's in position order.
func (r *Result) Diagnostics() []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	for _, bd := range r.Bindings {
		out = append(out, bd.Diagnostics...)
	}
	return out
}

// HasErrors reports whether any declaration failed or produced an error
// diagnostic.
func (r *Result) HasErrors() bool {
	for _, bd := range r.Bindings {
		if bd.Err != nil {
			return true
		}
		for _, d := range bd.Diagnostics {
			if d.Level == diagnostics.DiagnosticError {
				return true
			}
		}
	}
	return false
}

// BindUnits binds units concurrently and returns their results in the
// order of units.
func (b *Binder) BindUnits(ctx context.Context, units []*Unit) ([]*Result, error) {
	results := make([]*Result, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := b.BindUnit(u)
			if err != nil {
				return fmt.Errorf("unit %s: %w", u.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	st := b.tuples.Stats()
	b.logger.Debug("bound %d units: %d tuple types, %d composites, %d cache hits", len(units), st.Tuples, st.Composites, st.Hits)
	return results, nil
}

// BindUnit binds the declarations of one unit, then answers its
// conversion queries.
func (b *Binder) BindUnit(u *Unit) (*Result, error) {
	b.logger.Debug("binding unit %s (%d declarations)", u.Name, len(u.Declarations))

	res := &Result{Unit: u.Name}
	ids := set.New[string](len(u.Declarations))
	for i := range u.Declarations {
		decl := &u.Declarations[i]
		if !ids.Insert(decl.ID) {
			return nil, errors.Newf(ErrDuplicateID, map[string]interface{}{"id": decl.ID},
				"declaration %q at %d:%d is declared twice", decl.ID, decl.Line, decl.Column)
		}
		res.Bindings = append(res.Bindings, b.bindDeclaration(u, decl))
	}
	for _, q := range u.Conversions {
		res.Answers = append(res.Answers, b.answer(res, q))
	}
	return res, nil
}

func (b *Binder) bindDeclaration(u *Unit, decl *Declaration) *Binding {
	site := position.Point(u.file(), decl.Line, decl.Column)
	bd := &Binding{ID: decl.ID, Site: site}

	t, diags, err := b.declare(u, site, decl.Elements)
	if err != nil {
		bd.Err = err
		b.logger.Debug("%s: declaration %s failed: %v", site, decl.ID, err)
		return bd
	}
	diagnostics.SortByPosition(diags)
	bd.Type = t
	bd.Diagnostics = diags
	return bd
}

// declare resolves element syntax and builds the tuple type. Diagnostics
// of nested tuple types come before those of the enclosing declaration.
func (b *Binder) declare(u *Unit, site position.Span, elems []ElementSyntax) (*tuples.TupleType, []diagnostics.Diagnostic, error) {
	var nested []diagnostics.Diagnostic
	decls := make([]tuples.ElementDecl, len(elems))
	for i, e := range elems {
		esite := elementSite(u, e)
		typ, diags, err := b.resolveType(u, e.Type, i+1, esite, site)
		if err != nil {
			return nil, nil, err
		}
		nested = append(nested, diags...)
		decls[i] = tuples.ElementDecl{Type: typ, Site: esite}
		if e.Name != nil {
			decls[i].Name = *e.Name
			decls[i].Named = true
		}
	}

	t, diags, err := b.tuples.Declare(site, decls)
	if err != nil {
		return nil, nil, err
	}
	return t, append(nested, diags...), nil
}

func (b *Binder) resolveType(u *Unit, ts TypeSyntax, pos int, esite, site position.Span) (*types.Type, []diagnostics.Diagnostic, error) {
	var typ *types.Type
	var diags []diagnostics.Diagnostic

	switch {
	case len(ts.Elements) > 0:
		inner := site
		if esite.IsValid() {
			inner = esite
		}
		t, d, err := b.declare(u, inner, ts.Elements)
		if err != nil {
			return nil, nil, err
		}
		typ, diags = t.Type(), d
	case ts.Name != "":
		t, ok := b.registry.LookupType(ts.Name)
		if !ok {
			at := esite
			if !at.IsValid() {
				at = site
			}
			diags = append(diags, diagnostics.UnresolvedTypeError(ts.Name, pos, at))
			t = types.TypeUnknown
		}
		typ = t
	default:
		return nil, nil, errors.Newf(ErrMalformedUnit, map[string]interface{}{"position": pos, "site": site.String()},
			"%s: element %d has neither a type name nor elements", site, pos)
	}

	if ts.Nullable {
		typ = types.NewNullableType(typ)
	}
	return typ, diags, nil
}

func elementSite(u *Unit, e ElementSyntax) position.Span {
	if e.Line <= 0 || e.Column <= 0 {
		return position.Span{}
	}
	width := 0
	if e.Name != nil {
		width = len(*e.Name)
	}
	return position.At(u.file(), e.Line, e.Column, width)
}

func (b *Binder) answer(res *Result, q ConversionQuery) *Answer {
	a := &Answer{Query: q}
	path := q.Path()
	hops := make([]*types.Type, len(path))
	for i, id := range path {
		t, err := bindingType(res, id)
		if err != nil {
			a.Err = err
			return a
		}
		hops[i] = t.Type()
	}
	if q.Nullable {
		hops = append(hops, types.NewNullableType(hops[len(hops)-1]))
	}

	chain, err := b.tuples.Oracle().ClassifyChain(hops[0], hops[1:]...)
	if err != nil {
		a.Err = err
		return a
	}
	a.Chain = chain
	a.Conversion = chain.Outermost()
	a.Allowed = chain.Exists() && (q.Explicit || chainImplicit(chain))
	return a
}

func chainImplicit(ch *tuples.ConversionChain) bool {
	for _, s := range ch.Steps {
		if !s.IsImplicit() {
			return false
		}
	}
	return true
}

func bindingType(res *Result, id string) (*tuples.TupleType, error) {
	bd, ok := res.Lookup(id)
	if !ok {
		return nil, errors.Newf(ErrUnknownID, map[string]interface{}{"id": id}, "no declaration %q", id)
	}
	if bd.Err != nil {
		return nil, fmt.Errorf("declaration %q: %w", id, bd.Err)
	}
	return bd.Type, nil
}
