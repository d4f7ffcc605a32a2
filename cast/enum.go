package cast

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/reoring/materia"
)

// Enum resolves values to cases of the enum named by the descriptor ref.
type Enum struct {
	reg *materia.Registry
}

// NewEnum returns an enum caster looking enums up in reg.
func NewEnum(reg *materia.Registry) *Enum { return &Enum{reg: reg} }

func (*Enum) CanCast(kind string) bool { return kind == materia.CastEnum }

func (c *Enum) lookup(d *materia.Descriptor) (*materia.Enum, error) {
	if d.Nested == "" {
		return nil, &materia.UnresolvedTypeError{Property: d.Name}
	}
	e, ok := c.reg.Enum(d.Nested)
	if !ok {
		return nil, &materia.UnresolvedTypeError{Property: d.Name, Ref: d.Nested}
	}
	return e, nil
}

func (c *Enum) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	e, err := c.lookup(d)
	if err != nil {
		return nil, err
	}
	if ec, ok := v.(materia.EnumCase); ok {
		if ec.Enum == e.Name {
			return ec, nil
		}
		if ec.Value != nil {
			v = ec.Value
		} else {
			v = ec.Name
		}
	}
	if e.Backed() {
		for _, cs := range e.Cases {
			if sameValue(cs.Value, v) {
				return cs, nil
			}
		}
		return nil, fail(materia.CastEnum, v, fmt.Sprintf("%v is not a valid backing value for enum %s", v, e.Name))
	}
	name, ok := v.(string)
	if !ok {
		name = fmt.Sprint(v)
	}
	for _, cs := range e.Cases {
		if cs.Name == name {
			return cs, nil
		}
	}
	for _, cs := range e.Cases {
		if strings.EqualFold(cs.Name, name) {
			return cs, nil
		}
	}
	return nil, fail(materia.CastEnum, v, fmt.Sprintf("unknown enum case %q for enum %s", name, e.Name))
}

func (c *Enum) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	ec, ok := v.(materia.EnumCase)
	if !ok {
		return v, nil
	}
	if ec.Value != nil {
		return ec.Value, nil
	}
	return ec.Name, nil
}

// sameValue compares a backing value with raw input. Numbers compare by
// value across Go kinds; everything else falls back to textual comparison.
func sameValue(backing, v any) bool {
	if reflect.DeepEqual(backing, v) {
		return true
	}
	if a, ok := asFloat(backing); ok {
		if b, ok := asFloat(v); ok {
			return a == b
		}
	}
	return fmt.Sprint(backing) == fmt.Sprint(v)
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
