package materia

import "fmt"

// Enum declares an enumeration usable as the target of enum properties. When
// every case carries a Value the enum is value-backed; otherwise cases are
// matched by name.
type Enum struct {
	Name  string
	Cases []EnumCase
}

// EnumCase is both the declaration of a case and the materialized value of an
// enum property.
type EnumCase struct {
	Enum  string
	Name  string
	Value any
}

func (c EnumCase) String() string {
	if c.Value != nil {
		return fmt.Sprint(c.Value)
	}
	return c.Name
}

// IsZero reports whether c is the zero case.
func (c EnumCase) IsZero() bool { return c.Enum == "" && c.Name == "" && c.Value == nil }

// NewEnum declares a name-only enum.
func NewEnum(name string, cases ...string) *Enum {
	e := &Enum{Name: name}
	for _, c := range cases {
		e.Cases = append(e.Cases, EnumCase{Enum: name, Name: c})
	}
	return e
}

// NewBackedEnum declares a value-backed enum from name/value pairs, in order.
func NewBackedEnum(name string, pairs ...any) *Enum {
	if len(pairs)%2 != 0 {
		panic("materia: NewBackedEnum expects name/value pairs")
	}
	e := &Enum{Name: name}
	for i := 0; i < len(pairs); i += 2 {
		n, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("materia: enum case name must be a string, got %T", pairs[i]))
		}
		e.Cases = append(e.Cases, EnumCase{Enum: name, Name: n, Value: pairs[i+1]})
	}
	return e
}

// Backed reports whether every case carries a value.
func (e *Enum) Backed() bool {
	if len(e.Cases) == 0 {
		return false
	}
	for _, c := range e.Cases {
		if c.Value == nil {
			return false
		}
	}
	return true
}

// Case returns the case with the given name.
func (e *Enum) Case(name string) (EnumCase, bool) {
	for _, c := range e.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return EnumCase{}, false
}

// MustCase is Case that panics when the case does not exist.
func (e *Enum) MustCase(name string) EnumCase {
	c, ok := e.Case(name)
	if !ok {
		panic(fmt.Sprintf("materia: enum %s has no case %s", e.Name, name))
	}
	return c
}
