package cast

import (
	"context"
	"fmt"
	"reflect"

	"github.com/reoring/materia"
)

// Nested materializes nested records and collections of them through a
// Materializer. It does not track depth; callers building self-referential
// graphs bound recursion themselves.
type Nested struct {
	m materia.Materializer
}

// NewNested returns a nested caster delegating to m.
func NewNested(m materia.Materializer) *Nested { return &Nested{m: m} }

func (*Nested) CanCast(kind string) bool {
	switch kind {
	case materia.CastNested, "dto", "relation", "collection":
		return true
	}
	return false
}

func (c *Nested) target(d *materia.Descriptor) error {
	if d.Nested == "" {
		return &materia.UnresolvedTypeError{Property: d.Name}
	}
	if _, ok := c.m.Registry().Type(d.Nested); !ok {
		return &materia.UnresolvedTypeError{Property: d.Name, Ref: d.Nested}
	}
	return nil
}

func (c *Nested) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	if err := c.target(d); err != nil {
		return nil, err
	}
	if d.Collection {
		return c.many(ctx, v, d)
	}
	return c.one(ctx, v, d)
}

func (c *Nested) many(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	if recs, ok := v.([]*materia.Record); ok {
		out := make([]*materia.Record, 0, len(recs))
		for _, r := range recs {
			rec, err := c.one(ctx, r, d)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fail(materia.CastNested, v, "collection expects a list")
	}
	out := make([]*materia.Record, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i).Interface()
		if el == nil {
			return nil, fail(materia.CastNested, v, fmt.Sprintf("element %d is null", i))
		}
		rec, err := c.one(ctx, el, d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Nested) one(ctx context.Context, v any, d *materia.Descriptor) (*materia.Record, error) {
	var data map[string]any
	switch x := v.(type) {
	case *materia.Record:
		if x.TypeName() == d.Nested {
			return x, nil
		}
		m, err := x.Export(ctx)
		if err != nil {
			return nil, err
		}
		data = m
	case map[string]any:
		data = x
	case materia.Externalizer:
		data = x.ToMap()
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, fail(materia.CastNested, v, "expected a map, a record or an externalizable value")
		}
		data = make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			data[iter.Key().String()] = iter.Value().Interface()
		}
	}
	rec, err := c.m.Materialize(ctx, d.Nested, data)
	if err != nil {
		ce := materia.NewCastError(materia.CastNested, v, err.Error())
		ce.Cause = err
		return nil, ce
	}
	return rec, nil
}

func (c *Nested) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	switch x := v.(type) {
	case *materia.Record:
		return x.Export(ctx)
	case []*materia.Record:
		out := make([]any, len(x))
		for i, r := range x {
			m, err := r.Export(ctx)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	}
	return v, nil
}
