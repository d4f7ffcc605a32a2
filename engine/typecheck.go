package engine

import (
	"time"

	"github.com/reoring/materia"
)

// typeCheck verifies a cast value against the declared type of d. Unknown
// declared types and "any" accept anything.
func typeCheck(d *materia.Descriptor, v any) error {
	if v == nil {
		if d.AcceptsNull() {
			return nil
		}
		return mismatch(d, v)
	}
	if d.Collection {
		if _, ok := v.([]*materia.Record); !ok {
			return mismatch(d, v)
		}
		return nil
	}
	var ok bool
	switch d.Type {
	case materia.String:
		_, ok = v.(string)
	case materia.Int:
		_, ok = v.(int)
	case materia.Float:
		switch v.(type) {
		case float64, int:
			ok = true
		}
	case materia.Bool:
		_, ok = v.(bool)
	case materia.Array:
		switch v.(type) {
		case []any, map[string]any:
			ok = true
		}
	case materia.Date:
		_, ok = v.(time.Time)
	case materia.EnumType:
		_, ok = v.(materia.EnumCase)
	case materia.Nested:
		_, ok = v.(*materia.Record)
	case materia.Collection:
		_, ok = v.([]*materia.Record)
	default:
		ok = true
	}
	if !ok {
		return mismatch(d, v)
	}
	return nil
}

func mismatch(d *materia.Descriptor, v any) error {
	return &materia.TypeMismatchError{
		Property: d.Name,
		Expected: d.Type,
		Actual:   v,
	}
}
