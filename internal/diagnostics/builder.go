// Package diagnostics - Diagnostic builder for front ends that report
// their own problems alongside those of the tuple facility.
package diagnostics

import (
	"fmt"

	"github.com/orizon-lang/tuples/internal/position"
)

// DiagnosticBuilder provides a fluent interface for building diagnostics.
type DiagnosticBuilder struct {
	diagnostic Diagnostic
}

// NewDiagnosticBuilder creates a new diagnostic builder for kind. The level
// defaults to error.
func NewDiagnosticBuilder(kind Kind) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		diagnostic: Diagnostic{Kind: kind, Level: DiagnosticError},
	}
}

// WithMessage sets the main diagnostic message.
func (db *DiagnosticBuilder) WithMessage(message string) *DiagnosticBuilder {
	db.diagnostic.Message = message

	return db
}

// WithMessagef sets the main diagnostic message with formatting.
func (db *DiagnosticBuilder) WithMessagef(format string, args ...interface{}) *DiagnosticBuilder {
	db.diagnostic.Message = fmt.Sprintf(format, args...)

	return db
}

// WithName sets the offending name.
func (db *DiagnosticBuilder) WithName(name string) *DiagnosticBuilder {
	db.diagnostic.Name = name

	return db
}

// AtPosition adds an offending element position and its declaration site.
func (db *DiagnosticBuilder) AtPosition(pos int, site position.Span) *DiagnosticBuilder {
	db.diagnostic.Positions = append(db.diagnostic.Positions, pos)
	db.diagnostic.Sites = append(db.diagnostic.Sites, site)

	return db
}

// WithSpan sets the site of the whole declaration.
func (db *DiagnosticBuilder) WithSpan(span position.Span) *DiagnosticBuilder {
	db.diagnostic.Span = span

	return db
}

// WithOwner sets the display form of the type the diagnostic is about.
func (db *DiagnosticBuilder) WithOwner(owner string) *DiagnosticBuilder {
	db.diagnostic.Owner = owner

	return db
}

// Build returns the constructed diagnostic.
func (db *DiagnosticBuilder) Build() Diagnostic {
	return db.diagnostic
}

// UnresolvedTypeError reports an element type name that does not resolve.
func UnresolvedTypeError(name string, pos int, site position.Span) Diagnostic {
	return NewDiagnosticBuilder(KindUnresolvedType).
		WithMessagef("the type name '%s' could not be found", name).
		WithName(name).
		AtPosition(pos, site).
		Build()
}
