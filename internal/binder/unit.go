// Package binder is a reference front end for the tuple facility. It reads
// program units that declare tuple types, resolves element type syntax
// against a type registry, binds every declaration through one shared
// tuples.Context and answers conversion queries between the declarations.
package binder

import (
	"encoding/json"
	"os"

	"github.com/orizon-lang/tuples/internal/errors"
)

// Errors returned while reading or binding a unit.
var (
	ErrReadUnit      = errors.New(errors.CategoryEnvironment, "UNIT_READ", "cannot read unit")
	ErrMalformedUnit = errors.New(errors.CategoryValidation, "UNIT_MALFORMED", "malformed unit")
	ErrDuplicateID   = errors.New(errors.CategoryValidation, "DUPLICATE_DECLARATION", "declaration id used twice")
	ErrUnknownID     = errors.New(errors.CategoryValidation, "UNKNOWN_DECLARATION", "no declaration with this id")
)

// Unit is one independent program unit.
type Unit struct {
	Name         string            `json:"name"`
	Declarations []Declaration     `json:"declarations"`
	Conversions  []ConversionQuery `json:"conversions,omitempty"`

	// File names the unit in declaration sites. It defaults to Name.
	File string `json:"-"`
}

// Declaration declares one tuple type at line:column.
type Declaration struct {
	ID       string          `json:"id"`
	Line     int             `json:"line"`
	Column   int             `json:"column"`
	Elements []ElementSyntax `json:"elements"`
}

// ElementSyntax is one tuple element as written. A nil Name declares no
// name; a non-nil empty Name declares the empty name.
type ElementSyntax struct {
	Name   *string    `json:"name,omitempty"`
	Type   TypeSyntax `json:"type"`
	Line   int        `json:"line,omitempty"`
	Column int        `json:"column,omitempty"`
}

// TypeSyntax names a type from the registry or, with Elements, spells out
// a nested tuple type.
type TypeSyntax struct {
	Name     string          `json:"name,omitempty"`
	Elements []ElementSyntax `json:"elements,omitempty"`
	Nullable bool            `json:"nullable,omitempty"`
}

// ConversionQuery asks whether the type of declaration From converts to
// the type of declaration To, with a cast when Explicit is set. Via names
// declarations the value passes through first, in order, and Nullable
// wraps the final target in a nullable.
type ConversionQuery struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Via      []string `json:"via,omitempty"`
	Nullable bool     `json:"nullable,omitempty"`
	Explicit bool     `json:"explicit,omitempty"`
}

// Path returns the declaration ids of the query in conversion order.
func (q ConversionQuery) Path() []string {
	path := make([]string, 0, len(q.Via)+2)
	path = append(path, q.From)
	path = append(path, q.Via...)
	return append(path, q.To)
}

// LoadUnit reads a unit file.
func LoadUnit(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf(ErrReadUnit, map[string]interface{}{"path": path}, "read %s: %v", path, err)
	}
	u, err := ParseUnit(data)
	if err != nil {
		return nil, errors.Newf(ErrMalformedUnit, map[string]interface{}{"path": path}, "%s: %v", path, err)
	}
	u.File = path
	if u.Name == "" {
		u.Name = path
	}
	return u, nil
}

// ParseUnit decodes a unit from its JSON form.
func ParseUnit(data []byte) (*Unit, error) {
	var u Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, errors.Newf(ErrMalformedUnit, nil, "parse unit: %v", err)
	}
	return &u, nil
}

func (u *Unit) file() string {
	if u.File != "" {
		return u.File
	}
	return u.Name
}
