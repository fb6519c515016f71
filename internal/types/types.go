// Basic type model for the tuple facility.
// This module provides the element types that tuple positions carry and the
// composite instantiations that store them.

package types

import (
	"fmt"
	"strings"
	"sync"
)

// ====== Core Type System ======

// TypeKind represents the kind of a type
type TypeKind int

const (
	// Primitive types
	TypeKindVoid TypeKind = iota
	TypeKindBool
	TypeKindInt8
	TypeKindInt16
	TypeKindInt32
	TypeKindInt64
	TypeKindUint8
	TypeKindUint16
	TypeKindUint32
	TypeKindUint64
	TypeKindFloat32
	TypeKindFloat64
	TypeKindChar
	TypeKindString

	// Compound types
	TypeKindNullable
	TypeKindNamed
	TypeKindInstance
	TypeKindTuple

	// Special types
	TypeKindAny
	TypeKindNever
	TypeKindError
	TypeKindUnknown
)

// String returns the string representation of a TypeKind
func (tk TypeKind) String() string {
	switch tk {
	case TypeKindVoid:
		return "void"
	case TypeKindBool:
		return "bool"
	case TypeKindInt8:
		return "int8"
	case TypeKindInt16:
		return "int16"
	case TypeKindInt32:
		return "int32"
	case TypeKindInt64:
		return "int64"
	case TypeKindUint8:
		return "uint8"
	case TypeKindUint16:
		return "uint16"
	case TypeKindUint32:
		return "uint32"
	case TypeKindUint64:
		return "uint64"
	case TypeKindFloat32:
		return "float32"
	case TypeKindFloat64:
		return "float64"
	case TypeKindChar:
		return "char"
	case TypeKindString:
		return "string"
	case TypeKindNullable:
		return "nullable"
	case TypeKindNamed:
		return "named"
	case TypeKindInstance:
		return "instance"
	case TypeKindTuple:
		return "tuple"
	case TypeKindAny:
		return "any"
	case TypeKindNever:
		return "never"
	case TypeKindError:
		return "error"
	case TypeKindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Type represents a type in the Orizon type system
type Type struct {
	Kind TypeKind
	Size int         // Size in bytes, 0 for dynamic/unknown size
	Data interface{} // Type-specific data
}

// ====== Type Data ======

// PrimitiveType represents a primitive type
type PrimitiveType struct {
	Name   string
	Size   int
	Signed bool // For integer types
}

// NullableType wraps a value type so that it can also hold null.
type NullableType struct {
	Elem *Type
}

// NamedType is a nominal, non-generic type.
type NamedType struct {
	Namespace string
	Name      string
}

// InstanceType is a generic definition applied to type arguments.
type InstanceType struct {
	Definition *GenericDefinition
	Args       []*Type
}

// ErrorType stands in for a type that could not be built. It keeps the
// requested shape so later diagnostics can still talk about it.
type ErrorType struct {
	Name   string
	Arity  int
	Args   []*Type
	Reason string
}

// TupleView is implemented by tuple types so that they can be used as
// element types of other types. A tuple is the same type as its underlying
// composite once names are ignored.
type TupleView interface {
	// Underlying returns the composite instantiation storing the elements.
	Underlying() *Type
	// NamesKey identifies the element name table; equal keys mean equal
	// names at equal positions.
	NamesKey() string
	// Display returns the friendly display form, e.g. "(a: int32, string)".
	Display() string
}

// ====== Type Construction Functions ======

// NewPrimitiveType creates a new primitive type
func NewPrimitiveType(kind TypeKind, size int, signed bool) *Type {
	return &Type{
		Kind: kind,
		Size: size,
		Data: &PrimitiveType{
			Name:   kind.String(),
			Size:   size,
			Signed: signed,
		},
	}
}

// NewNullableType creates a nullable wrapper. Wrapping a nullable type
// returns it unchanged.
func NewNullableType(elem *Type) *Type {
	if elem == nil {
		return nil
	}
	if elem.Kind == TypeKindNullable {
		return elem
	}
	return &Type{
		Kind: TypeKindNullable,
		Size: elem.Size + 1,
		Data: &NullableType{Elem: elem},
	}
}

// NewNamedType creates a nominal type
func NewNamedType(namespace, name string) *Type {
	return &Type{Kind: TypeKindNamed, Data: &NamedType{Namespace: namespace, Name: name}}
}

// NewErrorType creates a placeholder for a type that could not be built.
func NewErrorType(name string, args []*Type, reason string) *Type {
	return &Type{
		Kind: TypeKindError,
		Data: &ErrorType{
			Name:   name,
			Arity:  len(args),
			Args:   append([]*Type(nil), args...),
			Reason: reason,
		},
	}
}

// NewTupleType wraps a tuple view as a Type.
func NewTupleType(view TupleView) *Type {
	return &Type{Kind: TypeKindTuple, Data: view}
}

// ====== Built-in Types ======

var (
	// Primitive types
	TypeVoid    = NewPrimitiveType(TypeKindVoid, 0, false)
	TypeBool    = NewPrimitiveType(TypeKindBool, 1, false)
	TypeInt8    = NewPrimitiveType(TypeKindInt8, 1, true)
	TypeInt16   = NewPrimitiveType(TypeKindInt16, 2, true)
	TypeInt32   = NewPrimitiveType(TypeKindInt32, 4, true)
	TypeInt64   = NewPrimitiveType(TypeKindInt64, 8, true)
	TypeUint8   = NewPrimitiveType(TypeKindUint8, 1, false)
	TypeUint16  = NewPrimitiveType(TypeKindUint16, 2, false)
	TypeUint32  = NewPrimitiveType(TypeKindUint32, 4, false)
	TypeUint64  = NewPrimitiveType(TypeKindUint64, 8, false)
	TypeFloat32 = NewPrimitiveType(TypeKindFloat32, 4, true)
	TypeFloat64 = NewPrimitiveType(TypeKindFloat64, 8, true)
	TypeChar    = NewPrimitiveType(TypeKindChar, 2, false)
	TypeString  = NewPrimitiveType(TypeKindString, 16, false) // String header

	// Special types
	TypeAny     = &Type{Kind: TypeKindAny, Size: 0, Data: nil}
	TypeNever   = &Type{Kind: TypeKindNever, Size: 0, Data: nil}
	TypeUnknown = &Type{Kind: TypeKindUnknown, Size: 0, Data: nil}
)

// ====== Accessors ======

// Elem returns the wrapped type of a nullable type, or nil.
func (t *Type) Elem() *Type {
	if t == nil || t.Kind != TypeKindNullable {
		return nil
	}
	return t.Data.(*NullableType).Elem
}

// Instance returns the instantiation data of an instance type, or nil.
func (t *Type) Instance() *InstanceType {
	if t == nil || t.Kind != TypeKindInstance {
		return nil
	}
	return t.Data.(*InstanceType)
}

// Tuple returns the tuple view of a tuple type, or nil.
func (t *Type) Tuple() TupleView {
	if t == nil || t.Kind != TypeKindTuple {
		return nil
	}
	return t.Data.(TupleView)
}

// Placeholder returns the error data of a placeholder type, or nil.
func (t *Type) Placeholder() *ErrorType {
	if t == nil || t.Kind != TypeKindError {
		return nil
	}
	return t.Data.(*ErrorType)
}

// StripNames returns the type with tuple views replaced by their
// underlying composites at the top level.
func (t *Type) StripNames() *Type {
	if v := t.Tuple(); v != nil {
		return v.Underlying()
	}
	return t
}

// ====== Type Properties ======

// IsNumeric checks if the type is a numeric type
func (t *Type) IsNumeric() bool {
	switch t.Kind {
	case TypeKindInt8, TypeKindInt16, TypeKindInt32, TypeKindInt64,
		TypeKindUint8, TypeKindUint16, TypeKindUint32, TypeKindUint64,
		TypeKindFloat32, TypeKindFloat64:
		return true
	default:
		return false
	}
}

// IsInteger checks if the type is an integer type
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case TypeKindInt8, TypeKindInt16, TypeKindInt32, TypeKindInt64,
		TypeKindUint8, TypeKindUint16, TypeKindUint32, TypeKindUint64:
		return true
	default:
		return false
	}
}

// IsValueType reports whether the type is stored inline. Only value types
// may be wrapped in a nullable.
func (t *Type) IsValueType() bool {
	switch t.Kind {
	case TypeKindString, TypeKindAny, TypeKindNamed, TypeKindVoid, TypeKindNever, TypeKindUnknown:
		return false
	default:
		return true
	}
}

// IsError reports whether the type is or contains a placeholder.
func (t *Type) IsError() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case TypeKindError:
		return true
	case TypeKindNullable:
		return t.Elem().IsError()
	case TypeKindTuple:
		return t.Tuple().Underlying().IsError()
	case TypeKindInstance:
		for _, a := range t.Instance().Args {
			if a.IsError() {
				return true
			}
		}
	}
	return false
}

// ====== Type Equivalence ======

// Equals checks if two types are identical, tuple element names included.
func (t *Type) Equals(other *Type) bool {
	return identical(t, other, false)
}

// EqualsIgnoringNames checks if two types are identical once tuple element
// names are ignored at every nesting level. A tuple type is equal to its
// underlying composite under this relation.
func (t *Type) EqualsIgnoringNames(other *Type) bool {
	return identical(t, other, true)
}

func identical(t, other *Type, ignoreNames bool) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t == other {
		return true
	}

	if ignoreNames {
		t, other = t.StripNames(), other.StripNames()
	}

	if t.Kind != other.Kind {
		return false
	}

	switch t.Kind {
	case TypeKindVoid, TypeKindBool, TypeKindInt8, TypeKindInt16, TypeKindInt32, TypeKindInt64,
		TypeKindUint8, TypeKindUint16, TypeKindUint32, TypeKindUint64,
		TypeKindFloat32, TypeKindFloat64, TypeKindChar, TypeKindString,
		TypeKindAny, TypeKindNever, TypeKindUnknown:
		return true // Primitive types are equal if kinds match

	case TypeKindNullable:
		return identical(t.Elem(), other.Elem(), ignoreNames)

	case TypeKindNamed:
		tNamed := t.Data.(*NamedType)
		oNamed := other.Data.(*NamedType)
		return *tNamed == *oNamed

	case TypeKindInstance:
		tInst := t.Instance()
		oInst := other.Instance()
		if !tInst.Definition.SameAs(oInst.Definition) || len(tInst.Args) != len(oInst.Args) {
			return false
		}
		for i, arg := range tInst.Args {
			if !identical(arg, oInst.Args[i], ignoreNames) {
				return false
			}
		}
		return true

	case TypeKindTuple:
		tView := t.Tuple()
		oView := other.Tuple()
		return tView.NamesKey() == oView.NamesKey() &&
			identical(tView.Underlying(), oView.Underlying(), false)

	case TypeKindError:
		tErr := t.Placeholder()
		oErr := other.Placeholder()
		if tErr.Name != oErr.Name || len(tErr.Args) != len(oErr.Args) {
			return false
		}
		for i, arg := range tErr.Args {
			if !identical(arg, oErr.Args[i], ignoreNames) {
				return false
			}
		}
		return true

	default:
		return t == other
	}
}

// Key returns a canonical string for the type. Types with equal keys are
// identical; with ignoreNames the key is insensitive to tuple element names.
func (t *Type) Key(ignoreNames bool) string {
	var b strings.Builder
	writeKey(&b, t, ignoreNames)
	return b.String()
}

func writeKey(b *strings.Builder, t *Type, ignoreNames bool) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case TypeKindNullable:
		writeKey(b, t.Elem(), ignoreNames)
		b.WriteByte('?')
	case TypeKindNamed:
		named := t.Data.(*NamedType)
		b.WriteString(named.Namespace)
		b.WriteByte('.')
		b.WriteString(named.Name)
	case TypeKindInstance:
		inst := t.Instance()
		b.WriteString(inst.Definition.QualifiedName())
		writeArgKeys(b, inst.Args, ignoreNames)
	case TypeKindTuple:
		view := t.Tuple()
		writeKey(b, view.Underlying(), ignoreNames)
		if !ignoreNames {
			b.WriteByte('{')
			b.WriteString(view.NamesKey())
			b.WriteByte('}')
		}
	case TypeKindError:
		e := t.Placeholder()
		b.WriteByte('!')
		b.WriteString(e.Name)
		writeArgKeys(b, e.Args, ignoreNames)
	default:
		b.WriteString(t.Kind.String())
	}
}

func writeArgKeys(b *strings.Builder, args []*Type, ignoreNames bool) {
	b.WriteByte('[')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, a, ignoreNames)
	}
	b.WriteByte(']')
}

// ====== String Representation ======

// String returns the friendly string representation of the type
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind {
	case TypeKindNullable:
		return t.Elem().String() + "?"

	case TypeKindNamed:
		return t.Data.(*NamedType).Name

	case TypeKindInstance:
		inst := t.Instance()
		return inst.Definition.DisplayName() + formatArgs(inst.Args, (*Type).String)

	case TypeKindTuple:
		return t.Tuple().Display()

	case TypeKindError:
		e := t.Placeholder()
		return fmt.Sprintf("<missing %s>%s", e.Name, formatArgs(e.Args, (*Type).String))

	default:
		return t.Kind.String()
	}
}

// QualifiedString returns the fully qualified display form, in which tuple
// types are shown as their underlying composites. It is the form used to
// disambiguate members in diagnostics.
func (t *Type) QualifiedString() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeKindNullable:
		return t.Elem().QualifiedString() + "?"
	case TypeKindNamed:
		named := t.Data.(*NamedType)
		if named.Namespace == "" {
			return named.Name
		}
		return named.Namespace + "." + named.Name
	case TypeKindInstance:
		inst := t.Instance()
		return inst.Definition.DisplayName() + formatArgs(inst.Args, (*Type).QualifiedString)
	case TypeKindTuple:
		return t.Tuple().Underlying().QualifiedString()
	case TypeKindError:
		e := t.Placeholder()
		return fmt.Sprintf("<missing %s>%s", e.Name, formatArgs(e.Args, (*Type).QualifiedString))
	default:
		return t.Kind.String()
	}
}

func formatArgs(args []*Type, format func(*Type) string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = format(a)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// ====== Type Registry ======

// TypeRegistry maps type names to types. It is safe for concurrent use.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewTypeRegistry creates a new type registry
func NewTypeRegistry() *TypeRegistry {
	registry := &TypeRegistry{
		types: make(map[string]*Type),
	}

	// Register built-in types
	for _, t := range []*Type{
		TypeVoid, TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint8, TypeUint16, TypeUint32, TypeUint64,
		TypeFloat32, TypeFloat64, TypeChar, TypeString, TypeAny, TypeNever,
	} {
		registry.RegisterType(t.Kind.String(), t)
	}

	// Common aliases
	registry.RegisterType("byte", TypeUint8)
	registry.RegisterType("sbyte", TypeInt8)
	registry.RegisterType("short", TypeInt16)
	registry.RegisterType("ushort", TypeUint16)
	registry.RegisterType("int", TypeInt32)
	registry.RegisterType("uint", TypeUint32)
	registry.RegisterType("long", TypeInt64)
	registry.RegisterType("ulong", TypeUint64)
	registry.RegisterType("float", TypeFloat32)
	registry.RegisterType("double", TypeFloat64)
	registry.RegisterType("object", TypeAny)

	return registry
}

// RegisterType registers a type with the given name
func (tr *TypeRegistry) RegisterType(name string, typeObj *Type) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.types[name] = typeObj
}

// LookupType looks up a type by name
func (tr *TypeRegistry) LookupType(name string) (*Type, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	typeObj, exists := tr.types[name]
	return typeObj, exists
}
