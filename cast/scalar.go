package cast

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/reoring/materia"
)

// String casts scalars to string.
type String struct{}

func (String) CanCast(kind string) bool { return kind == materia.CastString }

func (String) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case materia.EnumCase:
		return x.String(), nil
	case *materia.Record, materia.Externalizer:
		return nil, fail(materia.CastString, v, "value has no textual form")
	case fmt.Stringer:
		return x.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, fail(materia.CastString, v, "value has no textual form")
}

func (String) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// Int casts to int. Float-looking strings and floats truncate toward zero.
type Int struct{}

func (Int) CanCast(kind string) bool { return kind == materia.CastInt || kind == "integer" }

func (Int) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseInt(x)
	case fmt.Stringer:
		return parseInt(x.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt {
			return nil, fail(materia.CastInt, v, "out of int range")
		}
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fail(materia.CastInt, v, "not a finite number")
		}
		if !intRange(f) {
			return nil, fail(materia.CastInt, v, "out of int range")
		}
		return int(f), nil
	case reflect.String:
		return parseInt(rv.String())
	}
	return nil, fail(materia.CastInt, v, "not numeric")
}

func parseInt(s string) (any, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fail(materia.CastInt, s, "not numeric")
	}
	if !intRange(f) {
		return nil, fail(materia.CastInt, s, "out of int range")
	}
	return int(f), nil
}

// intRange reports whether f truncates to a representable int.
func intRange(f float64) bool {
	return f >= math.MinInt && f < math.MaxInt+1
}

func (Int) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) { return v, nil }

// Float casts to float64.
type Float struct{}

func (Float) CanCast(kind string) bool {
	return kind == materia.CastFloat || kind == "double" || kind == "numeric"
}

func (Float) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		return parseFloat(x)
	case fmt.Stringer:
		return parseFloat(x.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return rv.Float(), nil
	case reflect.String:
		return parseFloat(rv.String())
	}
	return nil, fail(materia.CastFloat, v, "not numeric")
}

func parseFloat(s string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fail(materia.CastFloat, s, "not numeric")
	}
	return f, nil
}

func (Float) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) { return v, nil }

// Bool casts with the vocabulary true/1/yes/on and false/0/no/off/"".
// Other non-empty strings are true; numbers are true when non-zero.
type Bool struct{}

func (Bool) CanCast(kind string) bool { return kind == materia.CastBool || kind == "boolean" }

func (Bool) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return Truthy(x), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0, nil
	case reflect.String:
		return Truthy(rv.String()), nil
	}
	return true, nil
}

func (Bool) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) { return v, nil }

// Truthy applies the boolean vocabulary to a string.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off", "":
		return false
	}
	return true
}

// BoolWord reports whether s belongs to the boolean vocabulary.
func BoolWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "false", "0", "no", "off", "":
		return true
	}
	return false
}
