package materia

import (
	"fmt"
	"strings"
)

// TransformerRef points at a transformer either by live instance or by an
// identifier resolved lazily (for example "trim" or "slug:title").
type TransformerRef struct {
	id   string
	inst any
}

// Use wraps a live transformer instance (Transformer or SimpleTransformer).
func Use(t any) TransformerRef { return TransformerRef{inst: t} }

// Ref refers to a transformer by identifier.
func Ref(id string) TransformerRef { return TransformerRef{id: strings.TrimSpace(id)} }

// ID returns the identifier, or "" for instance references.
func (r TransformerRef) ID() string { return r.id }

// Instance returns the live instance, or nil for identifier references.
func (r TransformerRef) Instance() any { return r.inst }

// IsZero reports whether the reference points at nothing.
func (r TransformerRef) IsZero() bool { return r.id == "" && r.inst == nil }

func (r TransformerRef) String() string {
	if r.id != "" {
		return r.id
	}
	if r.inst == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", r.inst)
}

// TransformContext is an immutable snapshot of a record's current property
// values, handed to context-dependent transformers.
type TransformContext struct {
	values map[string]any
}

// NewTransformContext copies values into a snapshot.
func NewTransformContext(values map[string]any) TransformContext {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return TransformContext{values: cp}
}

// Get returns the value of name and whether it is present.
func (tc TransformContext) Get(name string) (any, bool) {
	v, ok := tc.values[name]
	return v, ok
}

// Has reports whether name holds a non-nil value.
func (tc TransformContext) Has(name string) bool {
	v, ok := tc.values[name]
	return ok && v != nil
}

// String renders name as text; nil and missing values render as "".
func (tc TransformContext) String(name string) string {
	v, ok := tc.values[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if st, ok := v.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprint(v)
}

// Len returns the number of properties in the snapshot.
func (tc TransformContext) Len() int { return len(tc.values) }
