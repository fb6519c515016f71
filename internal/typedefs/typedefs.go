// Package typedefs loads the type universe a compilation references: the
// composite definitions that store tuple elements. A universe file may
// declare any subset of the composite shapes, including hand-written ones
// whose members differ from the standard layout.
package typedefs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/orizon-lang/tuples/internal/errors"
	"github.com/orizon-lang/tuples/internal/types"
)

// Errors returned while loading a universe file.
var (
	ErrRead    = errors.New(errors.CategoryEnvironment, "UNIVERSE_READ", "cannot read universe file")
	ErrSyntax  = errors.New(errors.CategoryEnvironment, "UNIVERSE_SYNTAX", "malformed universe file")
	ErrInvalid = errors.New(errors.CategoryEnvironment, "UNIVERSE_INVALID", "invalid composite definition")
)

// Document is the JSON form of a universe file.
type Document struct {
	Namespace  string          `json:"namespace"`
	Composites []CompositeDecl `json:"composites"`
}

// CompositeDecl declares one composite shape.
type CompositeDecl struct {
	Name       string       `json:"name"`
	TypeParams []string     `json:"type_params"`
	Fields     []FieldDecl  `json:"fields"`
	Methods    []MethodDecl `json:"methods"`
}

// FieldDecl declares a field or a method parameter. Type is a type
// parameter name or a registry type name, optionally suffixed with '?'.
type FieldDecl struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MethodDecl declares a method or, with Constructor set, a constructor.
type MethodDecl struct {
	Name        string      `json:"name"`
	Params      []FieldDecl `json:"params"`
	Result      string      `json:"result,omitempty"`
	Constructor bool        `json:"constructor,omitempty"`
}

// Standard returns the universe with all standard composite shapes.
func Standard() *types.Universe {
	return types.StandardUniverse()
}

// Load reads and parses a universe file. Type names resolve against
// registry, or against the built-in types when registry is nil.
func Load(path string, registry *types.TypeRegistry) (*types.Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf(ErrRead, map[string]interface{}{"path": path}, "read %s: %v", path, err)
	}
	u, err := Parse(data, registry)
	if err != nil {
		return nil, err
	}
	u.SetSource(path)
	return u, nil
}

// Parse builds a universe from the JSON form.
func Parse(data []byte, registry *types.TypeRegistry) (*types.Universe, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Newf(ErrSyntax, nil, "parse universe: %v", err)
	}
	return Build(&doc, registry)
}

// Build converts a decoded document into a universe.
func Build(doc *Document, registry *types.TypeRegistry) (*types.Universe, error) {
	if registry == nil {
		registry = types.NewTypeRegistry()
	}
	namespace := doc.Namespace
	if namespace == "" {
		namespace = types.CompositeNamespace
	}
	if namespace != types.CompositeNamespace {
		return nil, errors.Newf(ErrInvalid, map[string]interface{}{"namespace": namespace},
			"composites must be declared in namespace %s, not %s", types.CompositeNamespace, namespace)
	}

	u := types.NewUniverse()
	seen := set.New[int](len(doc.Composites))
	for i := range doc.Composites {
		def, err := buildComposite(namespace, &doc.Composites[i], registry)
		if err != nil {
			return nil, err
		}
		if !seen.Insert(def.Arity()) {
			return nil, errors.Newf(ErrInvalid, map[string]interface{}{"arity": def.Arity()},
				"composite %s declared twice", def.QualifiedName())
		}
		u.Define(def)
	}
	return u, nil
}

func buildComposite(namespace string, decl *CompositeDecl, registry *types.TypeRegistry) (*types.GenericDefinition, error) {
	name := decl.Name
	if name == "" {
		name = types.CompositeName
	}
	if name != types.CompositeName {
		return nil, errors.Newf(ErrInvalid, map[string]interface{}{"name": name},
			"%s is not a tuple composite", name)
	}
	arity := len(decl.TypeParams)
	if arity < 1 || arity > types.MaxCompositeArity {
		return nil, errors.Newf(ErrInvalid, map[string]interface{}{"arity": arity},
			"composite %s has %d type parameters, want 1 to %d", name, arity, types.MaxCompositeArity)
	}

	def := &types.GenericDefinition{
		Namespace:  namespace,
		Name:       name,
		TypeParams: append([]string(nil), decl.TypeParams...),
		Composite:  true,
		Foreign:    true,
	}
	resolve := func(s string) (types.TypeRef, error) {
		return resolveRef(s, def, registry)
	}

	for _, f := range decl.Fields {
		ref, err := resolve(f.Type)
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, types.FieldDef{Name: f.Name, Type: ref})
	}
	for _, m := range decl.Methods {
		md := types.MethodDef{Name: m.Name, Constructor: m.Constructor}
		if md.Constructor && md.Name == "" {
			md.Name = ".ctor"
		}
		for _, p := range m.Params {
			ref, err := resolve(p.Type)
			if err != nil {
				return nil, err
			}
			md.Params = append(md.Params, types.ParamDef{Name: p.Name, Type: ref})
		}
		if !md.Constructor {
			result := m.Result
			if result == "" {
				result = "void"
			}
			ref, err := resolve(result)
			if err != nil {
				return nil, err
			}
			md.Result = ref
		}
		def.Methods = append(def.Methods, md)
	}
	return def, nil
}

func resolveRef(s string, def *types.GenericDefinition, registry *types.TypeRegistry) (types.TypeRef, error) {
	for i, p := range def.TypeParams {
		if p == s {
			return types.ParamRef(i), nil
		}
	}
	name, nullable := strings.CutSuffix(s, "?")
	t, ok := registry.LookupType(name)
	if !ok {
		return types.TypeRef{}, errors.Newf(ErrInvalid, map[string]interface{}{"type": s},
			"unknown type %q in %s", s, def.QualifiedName())
	}
	if nullable {
		t = types.NewNullableType(t)
	}
	return types.ConcreteRef(t), nil
}

// Describe renders a universe back into its JSON form. Concrete types are
// written by their display names.
func Describe(u *types.Universe) *Document {
	doc := &Document{Namespace: types.CompositeNamespace}
	for _, arity := range u.Arities() {
		def, _ := u.LookupComposite(arity)
		decl := CompositeDecl{Name: def.Name, TypeParams: append([]string(nil), def.TypeParams...)}
		for _, f := range def.Fields {
			decl.Fields = append(decl.Fields, FieldDecl{Name: f.Name, Type: describeRef(f.Type, def)})
		}
		for _, m := range def.Methods {
			md := MethodDecl{Name: m.Name, Constructor: m.Constructor}
			for _, p := range m.Params {
				md.Params = append(md.Params, FieldDecl{Name: p.Name, Type: describeRef(p.Type, def)})
			}
			if !m.Constructor {
				md.Result = describeRef(m.Result, def)
			}
			decl.Methods = append(decl.Methods, md)
		}
		doc.Composites = append(doc.Composites, decl)
	}
	return doc
}

func describeRef(r types.TypeRef, def *types.GenericDefinition) string {
	if r.Param >= 0 && r.Param < len(def.TypeParams) {
		return def.TypeParams[r.Param]
	}
	if r.Concrete == nil {
		return "void"
	}
	return r.Concrete.String()
}

// String implements fmt.Stringer.
func (d CompositeDecl) String() string {
	return fmt.Sprintf("%s`%d", d.Name, len(d.TypeParams))
}
