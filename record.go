package materia

import (
	"context"
	"fmt"
	"reflect"
	"time"

	json "github.com/goccy/go-json"
)

// Record is a materialized instance of a record type. Records are immutable:
// With and WithValues return new records built through the full pipeline.
type Record struct {
	typ      *Type
	values   map[string]any
	presence PresenceMap
	extra    map[string]any
	m        Materializer
}

// NewRecord assembles a record from already-materialized values. It is meant
// for Materializer implementations; application code obtains records from a
// Materializer. extra holds passthrough keys without a descriptor.
func NewRecord(m Materializer, t *Type, values map[string]any, presence PresenceMap, extra map[string]any) *Record {
	rec := &Record{
		typ:      t,
		values:   make(map[string]any, len(values)),
		presence: presence.clone(),
		m:        m,
	}
	for k, v := range values {
		rec.values[k] = v
	}
	if len(extra) > 0 {
		rec.extra = make(map[string]any, len(extra))
		for k, v := range extra {
			rec.extra[k] = v
		}
	}
	if rec.presence == nil {
		rec.presence = PresenceMap{}
	}
	return rec
}

// Type returns the record type.
func (r *Record) Type() *Type { return r.typ }

// TypeName returns the record type name.
func (r *Record) TypeName() string {
	if r.typ == nil {
		return ""
	}
	return r.typ.name
}

// Get returns the materialized value of name.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Value returns the value of name, or nil.
func (r *Record) Value(name string) any { return r.values[name] }

// Has reports whether name holds a non-nil value.
func (r *Record) Has(name string) bool { return r.values[name] != nil }

// Names returns property names in declaration order.
func (r *Record) Names() []string { return r.typ.Fields() }

// Extra returns the passthrough value of an undeclared key.
func (r *Record) Extra(key string) (any, bool) {
	v, ok := r.extra[key]
	return v, ok
}

// Extras returns a copy of the passthrough keys; never nil.
func (r *Record) Extras() map[string]any {
	out := make(map[string]any, len(r.extra))
	for k, v := range r.extra {
		out[k] = v
	}
	return out
}

// Presence returns the presence flags of name.
func (r *Record) Presence(name string) Presence { return r.presence.Of(name) }

// PresenceMap returns a copy of all presence flags.
func (r *Record) PresenceMap() PresenceMap { return r.presence.clone() }

// GetString returns the string value of name.
func (r *Record) GetString(name string) string {
	s, _ := r.values[name].(string)
	return s
}

// GetInt returns the int value of name.
func (r *Record) GetInt(name string) int {
	n, _ := r.values[name].(int)
	return n
}

// GetFloat returns the float value of name; int values widen.
func (r *Record) GetFloat(name string) float64 {
	switch n := r.values[name].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// GetBool returns the bool value of name.
func (r *Record) GetBool(name string) bool {
	b, _ := r.values[name].(bool)
	return b
}

// GetTime returns the date value of name.
func (r *Record) GetTime(name string) time.Time {
	t, _ := r.values[name].(time.Time)
	return t
}

// GetEnum returns the enum case of name.
func (r *Record) GetEnum(name string) EnumCase {
	c, _ := r.values[name].(EnumCase)
	return c
}

// GetRecord returns the nested record of name, or nil.
func (r *Record) GetRecord(name string) *Record {
	n, _ := r.values[name].(*Record)
	return n
}

// GetRecords returns the nested collection of name.
func (r *Record) GetRecords(name string) []*Record {
	n, _ := r.values[name].([]*Record)
	return n
}

// Export externalizes the record: every value goes back through its caster's
// externalize direction and nested records recurse.
func (r *Record) Export(ctx context.Context) (map[string]any, error) {
	if r.m == nil {
		return r.raw(), nil
	}
	return r.m.Externalize(ctx, r)
}

// ToMap is Export without a context. If externalization fails the
// materialized values are returned as they are.
func (r *Record) ToMap() map[string]any {
	out, err := r.Export(context.Background())
	if err != nil {
		return r.raw()
	}
	return out
}

// Values returns a shallow copy of the materialized values, passthrough keys
// included.
func (r *Record) Values() map[string]any { return r.raw() }

func (r *Record) raw() map[string]any {
	out := make(map[string]any, len(r.values)+len(r.extra))
	for k, v := range r.extra {
		out[k] = v
	}
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the externalized form.
func (r *Record) MarshalJSON() ([]byte, error) {
	m, err := r.Export(context.Background())
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// With returns a new record with name set to v.
func (r *Record) With(ctx context.Context, name string, v any) (*Record, error) {
	return r.WithValues(ctx, map[string]any{name: v})
}

// WithValues returns a new record built from the externalized form of r
// merged with values. The merged data runs through the full pipeline, so
// derived properties are recomputed.
func (r *Record) WithValues(ctx context.Context, values map[string]any) (*Record, error) {
	if r.m == nil {
		return nil, fmt.Errorf("materia: record %s has no materializer", r.TypeName())
	}
	data, err := r.Export(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		data[k] = v
	}
	return r.m.Materialize(ctx, r.typ.name, data)
}

// Equal reports whether both records have the same type and equal values.
// Dates compare with time.Time.Equal; nested records compare recursively.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.TypeName() != o.TypeName() || len(r.values) != len(o.values) {
		return false
	}
	for k, a := range r.values {
		b, ok := o.values[k]
		if !ok || !valuesEqual(a, b) {
			return false
		}
	}
	return reflect.DeepEqual(r.extra, o.extra)
}

func valuesEqual(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case *Record:
		y, ok := b.(*Record)
		return ok && x.Equal(y)
	case []*Record:
		y, ok := b.([]*Record)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !x[i].Equal(y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.TypeName(), r.values)
}
