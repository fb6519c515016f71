package types

import (
	"fmt"
	"strings"
)

// ====== Generic Definitions ======

// TypeRef is a type mentioned inside a generic definition: either one of
// the definition's type parameters or a concrete type.
type TypeRef struct {
	Param    int   // index into TypeParams, or -1
	Concrete *Type // used when Param < 0
}

// ParamRef refers to the type parameter at index i.
func ParamRef(i int) TypeRef { return TypeRef{Param: i} }

// ConcreteRef refers to a concrete type.
func ConcreteRef(t *Type) TypeRef { return TypeRef{Param: -1, Concrete: t} }

// IsParam reports whether the reference is to type parameter i.
func (r TypeRef) IsParam(i int) bool { return r.Param >= 0 && r.Param == i }

// Substitute resolves the reference against type arguments.
func (r TypeRef) Substitute(args []*Type) *Type {
	if r.Param < 0 {
		return r.Concrete
	}
	if r.Param >= len(args) {
		return TypeUnknown
	}
	return args[r.Param]
}

func (r TypeRef) describe(d *GenericDefinition) string {
	if r.Param < 0 {
		return r.Concrete.String()
	}
	if r.Param < len(d.TypeParams) {
		return d.TypeParams[r.Param]
	}
	return fmt.Sprintf("T%d", r.Param+1)
}

// FieldDef declares a field of a generic definition.
type FieldDef struct {
	Name string
	Type TypeRef
}

// ParamDef declares a formal parameter of a method.
type ParamDef struct {
	Name string
	Type TypeRef
}

// MethodDef declares a method or constructor of a generic definition.
type MethodDef struct {
	Name        string
	Params      []ParamDef
	Result      TypeRef
	Constructor bool
}

// Signature renders the method against the definition's own parameters.
func (m *MethodDef) Signature(d *GenericDefinition) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Name + " " + p.Type.describe(d)
	}
	if m.Constructor {
		return fmt.Sprintf("%s(%s)", m.Name, strings.Join(params, ", "))
	}
	return fmt.Sprintf("%s(%s) %s", m.Name, strings.Join(params, ", "), m.Result.describe(d))
}

// GenericDefinition is a generic record type such as one of the tuple
// composites.
type GenericDefinition struct {
	Namespace  string
	Name       string
	TypeParams []string
	Fields     []FieldDef
	Methods    []MethodDef

	// Composite marks the definition as one of the tuple storage shapes.
	Composite bool
	// Foreign marks a definition that was not produced by StandardComposite,
	// e.g. one loaded from a hand-written universe file.
	Foreign bool
}

// Arity returns the number of type parameters.
func (d *GenericDefinition) Arity() int { return len(d.TypeParams) }

// QualifiedName returns Namespace.Name`Arity.
func (d *GenericDefinition) QualifiedName() string {
	if d.Namespace == "" {
		return fmt.Sprintf("%s`%d", d.Name, d.Arity())
	}
	return fmt.Sprintf("%s.%s`%d", d.Namespace, d.Name, d.Arity())
}

// DisplayName returns Namespace.Name without the arity suffix.
func (d *GenericDefinition) DisplayName() string {
	if d.Namespace == "" {
		return d.Name
	}
	return d.Namespace + "." + d.Name
}

// SameAs reports whether both definitions denote the same generic type.
// Definitions are compared by qualified name so that a universe reloaded
// from disk still matches instances built before the reload.
func (d *GenericDefinition) SameAs(other *GenericDefinition) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	return d.QualifiedName() == other.QualifiedName()
}

// FieldsNamed returns every field with the given name, in declaration order.
func (d *GenericDefinition) FieldsNamed(name string) []*FieldDef {
	var out []*FieldDef
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			out = append(out, &d.Fields[i])
		}
	}
	return out
}

// MethodsNamed returns every method with the given name, in declaration order.
func (d *GenericDefinition) MethodsNamed(name string) []*MethodDef {
	var out []*MethodDef
	for i := range d.Methods {
		if d.Methods[i].Name == name {
			out = append(out, &d.Methods[i])
		}
	}
	return out
}

// Instantiate applies the definition to type arguments.
func Instantiate(def *GenericDefinition, args []*Type) (*Type, error) {
	if def == nil {
		return nil, fmt.Errorf("instantiate: nil definition")
	}
	if len(args) != def.Arity() {
		return nil, fmt.Errorf("instantiate %s: got %d type arguments, want %d", def.QualifiedName(), len(args), def.Arity())
	}
	size := 0
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("instantiate %s: type argument %d is nil", def.QualifiedName(), i+1)
		}
		size += a.Size
	}
	return &Type{
		Kind: TypeKindInstance,
		Size: size,
		Data: &InstanceType{Definition: def, Args: append([]*Type(nil), args...)},
	}, nil
}
