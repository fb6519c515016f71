package tuples

import (
	"github.com/orizon-lang/tuples/internal/errors"
)

// Construction errors. Match them with errors.Is from the standard library.
var (
	ErrInvalidArity      = errors.New(errors.CategoryValidation, "INVALID_ARITY", "a tuple needs at least two elements")
	ErrNullElement       = errors.New(errors.CategoryValidation, "NULL_ELEMENT", "tuple element type is nil")
	ErrPartialNames      = errors.New(errors.CategoryValidation, "PARTIAL_NAMES", "fewer element names than elements")
	ErrNameCountMismatch = errors.New(errors.CategoryValidation, "NAME_COUNT_MISMATCH", "more element names than elements")
	ErrNullName          = errors.New(errors.CategoryValidation, "NULL_NAME", "element name is null")

	// ErrUnusableType is returned when a value of a tuple whose composite
	// definitions are missing would have to be constructed or converted.
	ErrUnusableType = errors.New(errors.CategoryEnvironment, "UNUSABLE_TYPE", "tuple type cannot be used")
)
