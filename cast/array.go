package cast

import (
	"context"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/materia"
)

// Array casts to []any or map[string]any.
type Array struct{}

func (Array) CanCast(kind string) bool { return kind == materia.CastArray }

func (Array) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case map[string]any:
		return x, nil
	case string:
		if out, ok := decodeJSONContainer(x); ok {
			return out, nil
		}
		return []any{x}, nil
	case []byte:
		if out, ok := decodeJSONContainer(string(x)); ok {
			return out, nil
		}
		return []any{string(x)}, nil
	case *materia.Record:
		return x.Export(ctx)
	case materia.Externalizer:
		return x.ToMap(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := String{}.Materialize(ctx, iter.Key().Interface(), d)
			if err != nil {
				return nil, fail(materia.CastArray, v, "map key has no textual form")
			}
			out[k.(string)] = iter.Value().Interface()
		}
		return out, nil
	case reflect.Struct, reflect.Pointer:
		return structToMap(v)
	}
	return []any{v}, nil
}

func (Array) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) { return v, nil }

// decodeJSONContainer decodes s when it is a JSON array or object.
func decodeJSONContainer(s string) (any, bool) {
	t := strings.TrimSpace(s)
	if t == "" || (t[0] != '[' && t[0] != '{') {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return nil, false
	}
	switch out.(type) {
	case []any, map[string]any:
		return out, true
	}
	return nil, false
}

// structToMap converts a struct through its JSON form.
func structToMap(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, failWrap(materia.CastArray, v, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, failWrap(materia.CastArray, v, err)
	}
	switch out.(type) {
	case []any, map[string]any:
		return out, nil
	}
	return []any{out}, nil
}
