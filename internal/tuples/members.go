package tuples

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v2"
	"golang.org/x/exp/slices"

	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/position"
	"github.com/orizon-lang/tuples/internal/types"
)

// ====== Member Projections ======

// MemberKind tags the variants of Member.
type MemberKind int

const (
	// MemberPositionalField forwards ItemK to the composite field storing
	// position K.
	MemberPositionalField MemberKind = iota
	// MemberFriendlyField is a declared name aliasing the storage of a
	// positional field.
	MemberFriendlyField
	// MemberOverflowField forwards Rest to the nested composite.
	MemberOverflowField
	// MemberForwardedMethod forwards a non-element member of the composite,
	// rebound to the tuple type.
	MemberForwardedMethod
)

// String returns the string representation of a MemberKind
func (k MemberKind) String() string {
	switch k {
	case MemberPositionalField:
		return "PositionalField"
	case MemberFriendlyField:
		return "FriendlyField"
	case MemberOverflowField:
		return "OverflowField"
	case MemberForwardedMethod:
		return "ForwardedMethod"
	default:
		return "Unknown"
	}
}

// Storage locates a field: Depth Rest hops, then field Slot of the
// composite at that depth (1..7 for items, 8 for Rest).
type Storage struct {
	Depth int
	Slot  int
}

// StorageOf returns the storage of element position k.
func StorageOf(k int) Storage {
	return Storage{
		Depth: (k - 1) / types.MaxDirectItems,
		Slot:  (k-1)%types.MaxDirectItems + 1,
	}
}

// Path returns the field names walked to reach the storage, e.g.
// ["Rest", "Item2"] for position 9.
func (s Storage) Path() []string {
	path := make([]string, 0, s.Depth+1)
	for i := 0; i < s.Depth; i++ {
		path = append(path, types.RestFieldName)
	}
	if s.Slot == types.MaxCompositeArity {
		return append(path, types.RestFieldName)
	}
	return append(path, types.ItemName(s.Slot))
}

// Parameter is a formal parameter of a forwarded method.
type Parameter struct {
	Name string
	Type *types.Type
}

// Member is one member projected by a tuple type onto its composite.
type Member struct {
	Kind MemberKind
	Name string
	// Position is the element position of positional and friendly fields,
	// 0 otherwise.
	Position int
	// Type is the field type, or the result type of a method. A
	// constructor's type is the tuple type itself.
	Type  *types.Type
	Owner *TupleType

	Storage Storage
	// Field and Method point into the composite definition being forwarded
	// to. Field is nil for a positional field whose composite lacks it.
	Field  *types.FieldDef
	Method *types.MethodDef
	Params []Parameter

	// Site is the declaration site of a friendly field.
	Site position.Span

	Unusable  bool
	Ambiguous bool
}

// IsField reports whether the member reads or writes storage.
func (m *Member) IsField() bool {
	return m.Kind != MemberForwardedMethod
}

// Path returns the field path of a field member.
func (m *Member) Path() []string {
	if !m.IsField() {
		return nil
	}
	return m.Storage.Path()
}

// SameStorage reports whether both members read and write the same field.
func (m *Member) SameStorage(other *Member) bool {
	return m.IsField() && other.IsField() &&
		m.Storage == other.Storage && m.Field == other.Field
}

// String formats the member for listings, e.g. "FriendlyField a int32 [Item1]".
func (m *Member) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", m.Kind, m.Name)
	if m.Method != nil {
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.Name + " " + p.Type.String()
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(params, ", "))
		if !m.Method.Constructor {
			b.WriteString(" " + m.Type.String())
		}
	} else {
		b.WriteString(" " + m.Type.String())
		if m.IsField() {
			fmt.Fprintf(&b, " [%s]", strings.Join(m.Path(), "."))
		}
	}
	if m.Ambiguous {
		b.WriteString(" ambiguous")
	}
	if m.Unusable {
		b.WriteString(" unusable")
	}
	return b.String()
}

// ====== Member Lookup ======

// Lookup returns every member with the given name, in member order. More
// than one result means the name is ambiguous.
func (t *TupleType) Lookup(name string) []*Member {
	return slices.Clone(t.lookup[name])
}

// Constructor returns the forwarded constructor.
func (t *TupleType) Constructor() (*Member, bool) {
	for _, m := range t.members {
		if m.Method != nil && m.Method.Constructor {
			return m, true
		}
	}
	return nil, false
}

// Resolve binds a member access at site. It returns the single usable
// member. Otherwise the diagnostic explains why: the member is ambiguous or
// cannot be used. Both results are nil when nothing has the name.
func (t *TupleType) Resolve(name string, site position.Span) (*Member, *diagnostics.Diagnostic) {
	found := t.lookup[name]
	switch {
	case len(found) == 0:
		return nil, nil
	case len(found) > 1:
		owner := t.Underlying().QualifiedString()
		return nil, &diagnostics.Diagnostic{
			Kind:      diagnostics.KindAmbiguousOrMissingUnderlyingMember,
			Level:     diagnostics.DiagnosticError,
			Message:   fmt.Sprintf("member '%s' is ambiguous in '%s'", name, owner),
			Name:      name,
			Positions: memberPositions(found),
			Span:      site,
			Owner:     owner,
		}
	case found[0].Unusable:
		owner := t.Underlying().QualifiedString()
		return found[0], &diagnostics.Diagnostic{
			Kind:      diagnostics.KindAmbiguousOrMissingUnderlyingMember,
			Level:     diagnostics.DiagnosticError,
			Message:   fmt.Sprintf("member '%s' of '%s' cannot be used", name, owner),
			Name:      name,
			Positions: memberPositions(found),
			Span:      site,
			Owner:     owner,
		}
	default:
		return found[0], nil
	}
}

func memberPositions(ms []*Member) []int {
	var out []int
	for _, m := range ms {
		if m.Position > 0 && !slices.Contains(out, m.Position) {
			out = append(out, m.Position)
		}
	}
	slices.Sort(out)
	return out
}

// LookupMember looks a name up on a tuple view or on a raw composite
// instantiation, such as the type of a Rest member. It returns nil for other
// types.
func LookupMember(t *types.Type, name string) []*Member {
	if tt, ok := AsTuple(t); ok {
		return tt.Lookup(name)
	}
	inst := t.Instance()
	if inst == nil || !inst.Definition.Composite {
		return nil
	}
	var out []*Member
	for _, m := range compositeMembers(inst) {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// compositeMembers lists the members of a raw composite instantiation.
func compositeMembers(inst *types.InstanceType) []*Member {
	def := inst.Definition
	var out []*Member
	for i := range def.Fields {
		f := &def.Fields[i]
		m := &Member{
			Kind:  MemberForwardedMethod,
			Name:  f.Name,
			Type:  f.Type.Substitute(inst.Args),
			Field: f,
		}
		if f.Name == types.RestFieldName && def.Arity() == types.MaxCompositeArity {
			m.Kind = MemberOverflowField
			m.Storage = Storage{Slot: types.MaxCompositeArity}
		} else if k, ok := positionalIndex(f.Name); ok && k <= types.MaxDirectItems {
			m.Kind = MemberPositionalField
			m.Position = k
			m.Storage = Storage{Slot: k}
		}
		out = append(out, m)
	}
	for i := range def.Methods {
		md := &def.Methods[i]
		out = append(out, &Member{
			Kind:   MemberForwardedMethod,
			Name:   md.Name,
			Type:   md.Result.Substitute(inst.Args),
			Method: md,
			Params: forwardParams(md, inst.Args),
		})
	}
	return out
}

// ====== Synthesis ======

// fieldBinding is the result of checking one expected field of a composite
// definition against its actual declaration.
type fieldBinding struct {
	name    string
	fields  []*types.FieldDef
	methods []*types.MethodDef
	param   int
}

func bindField(def *types.GenericDefinition, name string, param int) fieldBinding {
	return fieldBinding{
		name:    name,
		fields:  def.FieldsNamed(name),
		methods: def.MethodsNamed(name),
		param:   param,
	}
}

func (b fieldBinding) missing() bool { return len(b.fields) == 0 }

func (b fieldBinding) ambiguous() bool { return len(b.fields)+len(b.methods) > 1 }

func (b fieldBinding) wellTyped() bool {
	return len(b.fields) > 0 && b.fields[0].Type.IsParam(b.param)
}

func (b fieldBinding) ok() bool {
	return !b.missing() && !b.ambiguous() && b.wellTyped()
}

func (b fieldBinding) problem(owner string) string {
	switch {
	case b.missing():
		return fmt.Sprintf("member '%s' is missing from '%s'", b.name, owner)
	case b.ambiguous():
		return fmt.Sprintf("member '%s' is ambiguous in '%s'", b.name, owner)
	default:
		return fmt.Sprintf("member '%s' of '%s' does not have the expected type", b.name, owner)
	}
}

// synthesizer builds the member list of one tuple type.
type synthesizer struct {
	ctx     *Context
	t       *TupleType
	members []*Member
	diags   []diagnostics.Diagnostic
	// reachable[d] is false once a Rest hop above depth d is broken.
	reachable []bool
	rests     []fieldBinding
}

func (c *Context) synthesizeMembers(t *TupleType) ([]*Member, []diagnostics.Diagnostic) {
	s := &synthesizer{ctx: c, t: t}
	if t.composite.IsPlaceholder() {
		s.echo()
		return s.members, nil
	}
	s.checkRests()
	for _, slot := range t.slots {
		if slot.Position == types.MaxCompositeArity {
			s.overflow()
		}
		s.element(slot)
	}
	s.forward()
	return s.members, s.diags
}

// echo produces the best-effort name table of a tuple whose composite is
// missing: unusable positional and friendly fields, nothing else.
func (s *synthesizer) echo() {
	for _, slot := range s.t.slots {
		pos := &Member{
			Kind:     MemberPositionalField,
			Name:     types.ItemName(slot.Position),
			Position: slot.Position,
			Type:     slot.Type,
			Owner:    s.t,
			Storage:  StorageOf(slot.Position),
			Unusable: true,
		}
		s.members = append(s.members, pos)
		if canBeFriendly(slot) {
			s.members = append(s.members, s.friendly(slot, pos))
		}
	}
}

func (s *synthesizer) checkRests() {
	comp := s.t.composite
	s.reachable = make([]bool, comp.Depth())
	s.rests = make([]fieldBinding, comp.Depth())
	s.reachable[0] = true
	for d := 0; d < comp.Depth(); d++ {
		node := comp.nodes[d]
		if node.Shape != types.MaxCompositeArity {
			continue
		}
		b := bindField(node.Definition, types.RestFieldName, types.MaxDirectItems)
		s.rests[d] = b
		if !b.ok() {
			s.report(b, node, node.Offset+types.MaxCompositeArity)
		}
		if d+1 < len(s.reachable) {
			s.reachable[d+1] = s.reachable[d] && b.ok()
		}
	}
}

func (s *synthesizer) report(b fieldBinding, node CompositeNode, pos int) {
	owner := node.Type.QualifiedString()
	slot := s.t.slots[pos-1]
	d := diagnostics.Diagnostic{
		Kind:      diagnostics.KindAmbiguousOrMissingUnderlyingMember,
		Level:     diagnostics.DiagnosticError,
		Message:   b.problem(owner),
		Name:      b.name,
		Positions: []int{pos},
		Owner:     owner,
	}
	if slot.Site.IsValid() {
		d.Sites = []position.Span{slot.Site}
	}
	s.diags = append(s.diags, d)
}

// overflow emits the Rest member of the depth-0 composite.
func (s *synthesizer) overflow() {
	b := s.rests[0]
	rest := s.t.composite.rest
	restType := rest.Type()
	if rest.Arity() >= 2 {
		restType = s.ctx.intern(unnamedSlots(rest.Elements())).Type()
	}
	if b.missing() {
		s.members = append(s.members, &Member{
			Kind:     MemberOverflowField,
			Name:     types.RestFieldName,
			Type:     restType,
			Owner:    s.t,
			Storage:  Storage{Slot: types.MaxCompositeArity},
			Unusable: true,
		})
		return
	}
	for i, f := range b.fields {
		s.members = append(s.members, &Member{
			Kind:      MemberOverflowField,
			Name:      types.RestFieldName,
			Type:      restType,
			Owner:     s.t,
			Storage:   Storage{Slot: types.MaxCompositeArity},
			Field:     f,
			Unusable:  i > 0 || !b.ok(),
			Ambiguous: b.ambiguous(),
		})
	}
	for _, md := range b.methods {
		s.members = append(s.members, s.method(md, s.t.composite.nodes[0], true))
	}
}

// element emits ItemK, its same-named competitors and the friendly alias.
func (s *synthesizer) element(slot ElementSlot) {
	st := StorageOf(slot.Position)
	node := s.t.composite.nodes[st.Depth]
	name := types.ItemName(slot.Position)
	b := bindField(node.Definition, types.ItemName(st.Slot), st.Slot-1)
	if !b.ok() {
		s.report(b, node, slot.Position)
	}
	reachable := s.reachable[st.Depth]

	var primary *Member
	if b.missing() {
		primary = &Member{
			Kind:     MemberPositionalField,
			Name:     name,
			Position: slot.Position,
			Type:     slot.Type,
			Owner:    s.t,
			Storage:  st,
			Unusable: true,
		}
		s.members = append(s.members, primary)
	}
	args := node.Type.Instance().Args
	for i, f := range b.fields {
		m := &Member{
			Kind:      MemberPositionalField,
			Name:      name,
			Position:  slot.Position,
			Type:      f.Type.Substitute(args),
			Owner:     s.t,
			Storage:   st,
			Field:     f,
			Unusable:  i > 0 || !b.ok() || !reachable,
			Ambiguous: b.ambiguous(),
		}
		if i == 0 {
			primary = m
		}
		s.members = append(s.members, m)
	}
	// Same-named methods are only visible at the depth they are declared.
	if st.Depth == 0 {
		for _, md := range b.methods {
			s.members = append(s.members, s.method(md, node, true))
		}
	}

	if canBeFriendly(slot) {
		s.members = append(s.members, s.friendly(slot, primary))
	}
}

func (s *synthesizer) friendly(slot ElementSlot, pos *Member) *Member {
	return &Member{
		Kind:     MemberFriendlyField,
		Name:     slot.Name,
		Position: slot.Position,
		Type:     pos.Type,
		Owner:    s.t,
		Storage:  pos.Storage,
		Field:    pos.Field,
		Site:     slot.Site,
		Unusable: pos.Unusable,
	}
}

// forward emits the non-element members of the depth-0 composite.
func (s *synthesizer) forward() {
	node := s.t.composite.nodes[0]
	def := node.Definition
	direct := len(node.Items)

	elementNames := set.New[string](direct + 1)
	for k := 1; k <= direct; k++ {
		elementNames.Insert(types.ItemName(k))
	}
	if node.Shape == types.MaxCompositeArity {
		elementNames.Insert(types.RestFieldName)
	}

	for i := range def.Methods {
		md := &def.Methods[i]
		if elementNames.Contains(md.Name) {
			continue
		}
		s.members = append(s.members, s.method(md, node, false))
	}
	// Fields a foreign composite declares beyond the element layout.
	for i := range def.Fields {
		f := &def.Fields[i]
		if elementNames.Contains(f.Name) {
			continue
		}
		s.members = append(s.members, &Member{
			Kind:  MemberForwardedMethod,
			Name:  f.Name,
			Type:  f.Type.Substitute(node.Type.Instance().Args),
			Owner: s.t,
			Field: f,
		})
	}
}

func (s *synthesizer) method(md *types.MethodDef, node CompositeNode, ambiguous bool) *Member {
	m := &Member{
		Kind:      MemberForwardedMethod,
		Name:      md.Name,
		Type:      md.Result.Substitute(node.Type.Instance().Args),
		Owner:     s.t,
		Method:    md,
		Params:    forwardParams(md, node.Type.Instance().Args),
		Ambiguous: ambiguous,
		Unusable:  ambiguous,
	}
	if md.Constructor {
		m.Type = s.t.Type()
	}
	return m
}

// forwardParams substitutes parameter types and renames element parameters
// positionally: item1..item7, then rest.
func forwardParams(md *types.MethodDef, args []*types.Type) []Parameter {
	out := make([]Parameter, len(md.Params))
	for i, p := range md.Params {
		out[i] = Parameter{Name: p.Name, Type: p.Type.Substitute(args)}
		switch {
		case p.Type.Param >= 0 && p.Type.Param < types.MaxDirectItems:
			out[i].Name = fmt.Sprintf("item%d", p.Type.Param+1)
		case p.Type.Param == types.MaxDirectItems:
			out[i].Name = "rest"
		}
	}
	return out
}

func buildLookup(members []*Member) map[string][]*Member {
	lookup := make(map[string][]*Member, len(members))
	for _, m := range members {
		lookup[m.Name] = append(lookup[m.Name], m)
	}
	return lookup
}
