package binder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/orizon-lang/tuples/internal/cli"
	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/tuples"
	"github.com/orizon-lang/tuples/internal/types"
)

const sampleUnit = `{
  "name": "sample",
  "declarations": [
    {"id": "p", "line": 1, "column": 5, "elements": [
      {"name": "a", "type": {"name": "int"}},
      {"name": "b", "type": {"name": "string"}}
    ]},
    {"id": "q", "line": 2, "column": 5, "elements": [
      {"type": {"name": "int"}},
      {"type": {"name": "string"}}
    ]},
    {"id": "r", "line": 3, "column": 5, "elements": [
      {"name": "x", "type": {"name": "long"}},
      {"name": "y", "type": {"name": "string"}}
    ]},
    {"id": "bad", "line": 4, "column": 5, "elements": [
      {"name": "Item2", "type": {"name": "int"}, "line": 4, "column": 6},
      {"name": "b", "type": {"name": "Foo"}, "line": 4, "column": 17}
    ]}
  ],
  "conversions": [
    {"from": "p", "to": "q"},
    {"from": "p", "to": "r"},
    {"from": "r", "to": "p"},
    {"from": "r", "to": "p", "explicit": true},
    {"from": "p", "to": "missing"}
  ]
}`

func newTestBinder(t *testing.T, limit int) (*Binder, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := cli.NewLogger(false, true)
	logger.SetOutput(&buf)
	tc := tuples.NewContext(types.StandardUniverse(), tuples.Options{})
	return New(tc, nil, logger, limit), &buf
}

func mustParse(t *testing.T, data string) *Unit {
	t.Helper()
	u, err := ParseUnit([]byte(data))
	qt.Assert(t, qt.IsNil(err))
	return u
}

func kinds(ds []diagnostics.Diagnostic) []diagnostics.Kind {
	out := make([]diagnostics.Kind, len(ds))
	for i, d := range ds {
		out[i] = d.Kind
	}
	return out
}

func TestBindUnit(t *testing.T) {
	b, log := newTestBinder(t, 1)
	res, err := b.BindUnit(mustParse(t, sampleUnit))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(res.Unit, "sample"))
	qt.Assert(t, qt.HasLen(res.Bindings, 4))
	qt.Assert(t, qt.StringContains(log.String(), "binding unit sample (4 declarations)"))

	p, _ := res.Lookup("p")
	qt.Assert(t, qt.Equals(p.Type.Display(), "(a: int32, b: string)"))
	qt.Assert(t, qt.HasLen(p.Diagnostics, 0))
	qt.Assert(t, qt.Equals(p.Site.String(), "sample:1:5"))

	q, _ := res.Lookup("q")
	qt.Assert(t, qt.Equals(q.Type.Display(), "(int32, string)"))
	qt.Assert(t, qt.IsFalse(q.Type.HasNames()))

	bad, _ := res.Lookup("bad")
	qt.Assert(t, qt.DeepEquals(kinds(bad.Diagnostics), []diagnostics.Kind{
		diagnostics.KindReservedMemberName,
		diagnostics.KindUnresolvedType,
	}))
	qt.Assert(t, qt.Equals(bad.Diagnostics[1].String(),
		"sample:4:17-18: error[TUP008] UnresolvedType: the type name 'Foo' could not be found"))
	qt.Assert(t, qt.IsTrue(res.HasErrors()))
	qt.Assert(t, qt.HasLen(res.Diagnostics(), 2))
}

func TestConversionAnswers(t *testing.T) {
	b, _ := newTestBinder(t, 1)
	res, err := b.BindUnit(mustParse(t, sampleUnit))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(res.Answers, 5))

	tests := []struct {
		kind    types.ConversionKind
		allowed bool
	}{
		{types.ConversionIdentity, true},
		{types.ConversionImplicitTuple, true},
		{types.ConversionExplicitTuple, false},
		{types.ConversionExplicitTuple, true},
	}
	for i, test := range tests {
		a := res.Answers[i]
		qt.Assert(t, qt.IsNil(a.Err), qt.Commentf("query %d", i))
		qt.Check(t, qt.Equals(a.Conversion.Kind, test.kind), qt.Commentf("query %d", i))
		qt.Check(t, qt.Equals(a.Allowed, test.allowed), qt.Commentf("query %d", i))
	}
	qt.Assert(t, qt.ErrorIs(res.Answers[4].Err, ErrUnknownID))
}

func TestPartialNames(t *testing.T) {
	b, _ := newTestBinder(t, 1)
	res, err := b.BindUnit(mustParse(t, `{"name": "partial", "declarations": [
		{"id": "d", "line": 1, "column": 1, "elements": [
			{"name": "a", "type": {"name": "int"}},
			{"type": {"name": "string"}}
		]}]}`))
	qt.Assert(t, qt.IsNil(err))

	d := res.Bindings[0]
	qt.Assert(t, qt.DeepEquals(kinds(d.Diagnostics), []diagnostics.Kind{diagnostics.KindExplicitNamesOnAllOrNone}))
	qt.Assert(t, qt.Equals(d.Diagnostics[0].Position(), 2))
	qt.Assert(t, qt.Equals(d.Type.Display(), "(a: int32, string)"))
}

func TestNestedAndNullable(t *testing.T) {
	b, _ := newTestBinder(t, 1)
	res, err := b.BindUnit(mustParse(t, `{"name": "nested", "declarations": [
		{"id": "d", "line": 1, "column": 1, "elements": [
			{"name": "p", "type": {"elements": [
				{"name": "x", "type": {"name": "int"}},
				{"name": "y", "type": {"name": "int"}}
			]}},
			{"name": "q", "type": {"name": "string", "nullable": true}}
		]},
		{"id": "e", "line": 2, "column": 1, "elements": [
			{"type": {"elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}], "nullable": true}},
			{"type": {"name": "string", "nullable": true}}
		]}],
		"conversions": [{"from": "d", "to": "e"}]}`))
	qt.Assert(t, qt.IsNil(err))

	d, _ := res.Lookup("d")
	qt.Assert(t, qt.Equals(d.Type.Display(), "(p: (x: int32, y: int32), q: string?)"))
	qt.Assert(t, qt.HasLen(d.Diagnostics, 0))

	e, _ := res.Lookup("e")
	qt.Assert(t, qt.Equals(e.Type.Display(), "((int32, int32)?, string?)"))

	a := res.Answers[0]
	qt.Assert(t, qt.IsNil(a.Err))
	qt.Assert(t, qt.Equals(a.Conversion.Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.IsTrue(a.Allowed))
}

func TestNullableTupleElementBoxes(t *testing.T) {
	b, _ := newTestBinder(t, 1)
	res, err := b.BindUnit(mustParse(t, `{"name": "boxing", "declarations": [
		{"id": "n", "line": 1, "column": 1, "elements": [
			{"type": {"elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}], "nullable": true}},
			{"type": {"name": "int"}}
		]},
		{"id": "o", "line": 2, "column": 1, "elements": [
			{"type": {"name": "object"}},
			{"type": {"name": "int"}}
		]}],
		"conversions": [{"from": "n", "to": "o"}]}`))
	qt.Assert(t, qt.IsNil(err))

	a := res.Answers[0]
	qt.Assert(t, qt.IsNil(a.Err))
	qt.Assert(t, qt.Equals(a.Conversion.Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.Equals(a.Conversion.Elements[0].Kind, types.ConversionImplicitReference))
	qt.Assert(t, qt.IsTrue(a.Allowed))
}

func TestConversionChains(t *testing.T) {
	b, _ := newTestBinder(t, 1)
	res, err := b.BindUnit(mustParse(t, `{"name": "chains", "declarations": [
		{"id": "ints", "line": 1, "column": 1, "elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}]},
		{"id": "longs", "line": 2, "column": 1, "elements": [{"type": {"name": "long"}}, {"type": {"name": "long"}}]},
		{"id": "boxed", "line": 3, "column": 1, "elements": [{"type": {"name": "object"}}, {"type": {"name": "object"}}]}],
		"conversions": [
			{"from": "longs", "to": "ints", "nullable": true},
			{"from": "longs", "to": "ints", "nullable": true, "explicit": true},
			{"from": "ints", "via": ["longs"], "to": "boxed"},
			{"from": "ints", "via": ["nope"], "to": "longs"}
		]}`))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(res.Answers, 4))

	cast := res.Answers[0]
	qt.Assert(t, qt.IsNil(cast.Err))
	qt.Assert(t, qt.HasLen(cast.Chain.Steps, 2))
	qt.Assert(t, qt.Equals(cast.Chain.Innermost().Kind, types.ConversionExplicitTuple))
	qt.Assert(t, qt.Equals(cast.Conversion.Kind, types.ConversionImplicitNullable))
	qt.Assert(t, qt.Equals(cast.Chain.ConvertedType().String(), "(int32, int32)?"))
	qt.Assert(t, qt.IsFalse(cast.Allowed))
	qt.Assert(t, qt.IsTrue(res.Answers[1].Allowed))

	via := res.Answers[2]
	qt.Assert(t, qt.IsNil(via.Err))
	qt.Assert(t, qt.HasLen(via.Chain.Steps, 2))
	qt.Assert(t, qt.Equals(via.Chain.Innermost().Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.Equals(via.Conversion.Kind, types.ConversionImplicitTuple))
	qt.Assert(t, qt.IsTrue(via.Allowed))

	qt.Assert(t, qt.ErrorIs(res.Answers[3].Err, ErrUnknownID))
	qt.Assert(t, qt.DeepEquals(res.Answers[3].Query.Path(), []string{"ints", "nope", "longs"}))
}

func TestBindErrors(t *testing.T) {
	b, _ := newTestBinder(t, 1)

	_, err := b.BindUnit(mustParse(t, `{"name": "dup", "declarations": [
		{"id": "d", "elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}]},
		{"id": "d", "elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}]}]}`))
	qt.Assert(t, qt.ErrorIs(err, ErrDuplicateID))

	res, err := b.BindUnit(mustParse(t, `{"name": "broken", "declarations": [
		{"id": "one", "elements": [{"type": {"name": "int"}}]},
		{"id": "empty", "elements": [{"type": {}}, {"type": {"name": "int"}}]}],
		"conversions": [{"from": "one", "to": "empty"}]}`))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.ErrorIs(res.Bindings[0].Err, tuples.ErrInvalidArity))
	qt.Assert(t, qt.ErrorIs(res.Bindings[1].Err, ErrMalformedUnit))
	qt.Assert(t, qt.ErrorIs(res.Answers[0].Err, tuples.ErrInvalidArity))
	qt.Assert(t, qt.IsTrue(res.HasErrors()))
}

func TestMissingComposite(t *testing.T) {
	u := types.StandardUniverse()
	u.Remove(2)
	b := New(tuples.NewContext(u, tuples.Options{}), nil, nil, 1)

	res, err := b.BindUnit(mustParse(t, `{"name": "missing", "declarations": [
		{"id": "d", "line": 1, "column": 1, "elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}]}],
		"conversions": [{"from": "d", "to": "d"}]}`))
	qt.Assert(t, qt.IsNil(err))

	d := res.Bindings[0]
	qt.Assert(t, qt.DeepEquals(kinds(d.Diagnostics), []diagnostics.Kind{diagnostics.KindMissingCompositeDefinition}))
	qt.Assert(t, qt.IsFalse(d.Type.IsUsable()))
	qt.Assert(t, qt.ErrorIs(res.Answers[0].Err, tuples.ErrUnusableType))
}

func TestBindUnitsShareInstances(t *testing.T) {
	b, _ := newTestBinder(t, 4)

	var units []*Unit
	for i := 0; i < 16; i++ {
		units = append(units, mustParse(t, fmt.Sprintf(`{"name": "u%d", "declarations": [
			{"id": "d", "line": 1, "column": 1, "elements": [
				{"name": "a", "type": {"name": "int"}},
				{"name": "b", "type": {"name": "string"}},
				{"type": {"name": "long"}, "name": "c"},
				{"type": {"name": "long"}, "name": "d"},
				{"type": {"name": "long"}, "name": "e"},
				{"type": {"name": "long"}, "name": "f"},
				{"type": {"name": "long"}, "name": "g"},
				{"type": {"name": "long"}, "name": "h"},
				{"type": {"name": "long"}, "name": "i"}
			]}]}`, i)))
	}

	results, err := b.BindUnits(context.Background(), units)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(results, len(units)))

	first := results[0].Bindings[0].Type
	for i, r := range results {
		qt.Assert(t, qt.Equals(r.Unit, fmt.Sprintf("u%d", i)))
		qt.Assert(t, qt.Equals(r.Bindings[0].Type, first))
	}
	qt.Assert(t, qt.Equals(first.Composite().Depth(), 2))
	qt.Assert(t, qt.Equals(b.Context().Stats().Tuples, 2))
}

func TestBindUnitsCancelled(t *testing.T) {
	b, _ := newTestBinder(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.BindUnits(ctx, []*Unit{mustParse(t, sampleUnit)})
	qt.Assert(t, qt.ErrorIs(err, context.Canceled))
}

func TestLoadUnit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.json")
	qt.Assert(t, qt.IsNil(os.WriteFile(path, []byte(`{"declarations": [
		{"id": "d", "line": 3, "column": 5, "elements": [{"type": {"name": "int"}}, {"type": {"name": "int"}}]}]}`), 0o644)))

	u, err := LoadUnit(path)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(u.Name, path))
	qt.Assert(t, qt.Equals(u.File, path))

	b, _ := newTestBinder(t, 1)
	res, err := b.BindUnit(u)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(res.Bindings[0].Site.String(), "unit.json:3:5"))

	_, err = LoadUnit(filepath.Join(dir, "absent.json"))
	qt.Assert(t, qt.ErrorIs(err, ErrReadUnit))

	bad := filepath.Join(dir, "bad.json")
	qt.Assert(t, qt.IsNil(os.WriteFile(bad, []byte(`{"declarations": 3}`), 0o644)))
	_, err = LoadUnit(bad)
	qt.Assert(t, qt.ErrorIs(err, ErrMalformedUnit))
}
