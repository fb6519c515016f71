package types

// ====== Type Conversion Rules ======

// ConversionKind classifies the conversion from one type to another.
type ConversionKind int

const (
	ConversionNone ConversionKind = iota
	ConversionIdentity
	ConversionImplicitNumeric
	ConversionImplicitReference
	ConversionImplicitNullable
	ConversionImplicitTuple
	ConversionExplicitNumeric
	ConversionExplicitReference
	ConversionExplicitNullable
	ConversionExplicitTuple
)

// String returns the string representation of a ConversionKind
func (k ConversionKind) String() string {
	switch k {
	case ConversionNone:
		return "None"
	case ConversionIdentity:
		return "Identity"
	case ConversionImplicitNumeric:
		return "ImplicitNumeric"
	case ConversionImplicitReference:
		return "ImplicitReference"
	case ConversionImplicitNullable:
		return "ImplicitNullable"
	case ConversionImplicitTuple:
		return "ImplicitTuple"
	case ConversionExplicitNumeric:
		return "ExplicitNumeric"
	case ConversionExplicitReference:
		return "ExplicitReference"
	case ConversionExplicitNullable:
		return "ExplicitNullable"
	case ConversionExplicitTuple:
		return "ExplicitTuple"
	default:
		return "Invalid"
	}
}

// Exists reports whether any conversion exists.
func (k ConversionKind) Exists() bool { return k != ConversionNone }

// IsImplicit reports whether the conversion can be applied without a cast.
// Identity counts as implicit.
func (k ConversionKind) IsImplicit() bool {
	switch k {
	case ConversionIdentity, ConversionImplicitNumeric, ConversionImplicitReference,
		ConversionImplicitNullable, ConversionImplicitTuple:
		return true
	default:
		return false
	}
}

// IsExplicit reports whether the conversion needs a cast.
func (k ConversionKind) IsExplicit() bool {
	return k.Exists() && !k.IsImplicit()
}

// implicitNumeric lists, for each numeric source, the targets it widens to.
var implicitNumeric = map[TypeKind][]TypeKind{
	TypeKindInt8:    {TypeKindInt16, TypeKindInt32, TypeKindInt64, TypeKindFloat32, TypeKindFloat64},
	TypeKindUint8:   {TypeKindInt16, TypeKindUint16, TypeKindInt32, TypeKindUint32, TypeKindInt64, TypeKindUint64, TypeKindFloat32, TypeKindFloat64},
	TypeKindInt16:   {TypeKindInt32, TypeKindInt64, TypeKindFloat32, TypeKindFloat64},
	TypeKindUint16:  {TypeKindInt32, TypeKindUint32, TypeKindInt64, TypeKindUint64, TypeKindFloat32, TypeKindFloat64},
	TypeKindInt32:   {TypeKindInt64, TypeKindFloat32, TypeKindFloat64},
	TypeKindUint32:  {TypeKindInt64, TypeKindUint64, TypeKindFloat32, TypeKindFloat64},
	TypeKindInt64:   {TypeKindFloat32, TypeKindFloat64},
	TypeKindUint64:  {TypeKindFloat32, TypeKindFloat64},
	TypeKindChar:    {TypeKindUint16, TypeKindInt32, TypeKindUint32, TypeKindInt64, TypeKindUint64, TypeKindFloat32, TypeKindFloat64},
	TypeKindFloat32: {TypeKindFloat64},
}

// StandardConversions implements the element-wise conversion rules of the
// language: numeric widening and narrowing, conversions to and from any, and
// lifting over nullable. Tuple-to-tuple conversions are not its business;
// apart from identity and conversions through any it reports them as None.
type StandardConversions struct{}

// ClassifyConversion classifies the conversion from source to target.
func (StandardConversions) ClassifyConversion(source, target *Type) ConversionKind {
	return classifyConversion(source, target)
}

func classifyConversion(source, target *Type) ConversionKind {
	if source == nil || target == nil {
		return ConversionNone
	}
	if source.IsError() || target.IsError() {
		return ConversionNone
	}
	if source.EqualsIgnoringNames(target) {
		return ConversionIdentity
	}

	// Nullable lifting
	if target.Kind == TypeKindNullable {
		var inner ConversionKind
		if source.Kind == TypeKindNullable {
			inner = classifyConversion(source.Elem(), target.Elem())
		} else {
			inner = classifyConversion(source, target.Elem())
		}
		switch {
		case inner.IsImplicit():
			return ConversionImplicitNullable
		case inner.Exists():
			return ConversionExplicitNullable
		default:
			return ConversionNone
		}
	}
	if source.Kind == TypeKindNullable {
		if target.Kind == TypeKindAny {
			return ConversionImplicitReference
		}
		if classifyConversion(source.Elem(), target).Exists() {
			return ConversionExplicitNullable
		}
		return ConversionNone
	}

	// Any type can convert to Any
	if target.Kind == TypeKindAny {
		if source.Kind == TypeKindVoid {
			return ConversionNone
		}
		return ConversionImplicitReference
	}
	if source.Kind == TypeKindAny {
		if target.Kind == TypeKindVoid {
			return ConversionNone
		}
		return ConversionExplicitReference
	}

	// Never can convert to any type
	if source.Kind == TypeKindNever {
		return ConversionImplicitReference
	}

	if isNumericOrChar(source) && isNumericOrChar(target) {
		for _, k := range implicitNumeric[source.Kind] {
			if k == target.Kind {
				return ConversionImplicitNumeric
			}
		}
		return ConversionExplicitNumeric
	}

	return ConversionNone
}

func isNumericOrChar(t *Type) bool {
	return t.IsNumeric() || t.Kind == TypeKindChar
}
