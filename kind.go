package materia

import "strings"

// DeclaredType is the declared runtime representation of a property.
type DeclaredType string

const (
	String     DeclaredType = "string"
	Int        DeclaredType = "int"
	Float      DeclaredType = "float"
	Bool       DeclaredType = "bool"
	Array      DeclaredType = "array"
	Date       DeclaredType = "date"
	EnumType   DeclaredType = "enum"
	Nested     DeclaredType = "nested"
	Collection DeclaredType = "collection"
	Any        DeclaredType = "any"
)

// Cast kinds understood by the built-in casters. CastNone means passthrough.
const (
	CastNone   = ""
	CastString = "string"
	CastInt    = "int"
	CastFloat  = "float"
	CastBool   = "bool"
	CastArray  = "array"
	CastDate   = "date"
	CastEnum   = "enum"
	CastNested = "nested"
)

var typeAliases = map[string]DeclaredType{
	"string":     String,
	"int":        Int,
	"integer":    Int,
	"float":      Float,
	"double":     Float,
	"bool":       Bool,
	"boolean":    Bool,
	"array":      Array,
	"date":       Date,
	"datetime":   Date,
	"enum":       EnumType,
	"nested":     Nested,
	"dto":        Nested,
	"relation":   Nested,
	"collection": Collection,
	"any":        Any,
	"mixed":      Any,
}

// Normalize folds aliases (integer, boolean, datetime, ...) onto the canonical
// declared type. Unknown names are returned lower-cased and otherwise verbatim.
func (t DeclaredType) Normalize() DeclaredType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	if c, ok := typeAliases[s]; ok {
		return c
	}
	return DeclaredType(s)
}

// Known reports whether t (after normalization) is one of the canonical types.
func (t DeclaredType) Known() bool {
	_, ok := typeAliases[strings.ToLower(strings.TrimSpace(string(t)))]
	return ok
}

// castFor maps a canonical declared type to its cast kind; ok is false when the
// declared type has no intrinsic cast kind.
func castFor(t DeclaredType) (string, bool) {
	switch t {
	case String:
		return CastString, true
	case Int:
		return CastInt, true
	case Float:
		return CastFloat, true
	case Bool:
		return CastBool, true
	case Array:
		return CastArray, true
	case Date:
		return CastDate, true
	case EnumType:
		return CastEnum, true
	case Nested, Collection:
		return CastNested, true
	case Any:
		return CastNone, true
	}
	return CastNone, false
}
