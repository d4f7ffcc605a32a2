package materia

import (
	"context"
	"fmt"
)

// Caster converts between the raw and typed representation of one cast kind.
// Implementations hold no cross-call state and are safe for concurrent use.
type Caster interface {
	// CanCast reports whether the caster handles the cast kind.
	CanCast(kind string) bool
	// Materialize converts a raw, non-nil value into its typed form.
	Materialize(ctx context.Context, v any, d *Descriptor) (any, error)
	// Externalize converts a typed, non-nil value into a primitive form.
	Externalize(ctx context.Context, v any, d *Descriptor) (any, error)
}

// Transformer is the context-aware transformer contract. tc is a snapshot of
// sibling property values; it is empty for transformers that do not depend
// on context.
type Transformer interface {
	Transform(v any, tc TransformContext) (any, error)
	ShouldTransform(v any, tc TransformContext) bool
}

// SimpleTransformer is the context-less transformer contract. It is adapted
// to Transformer at resolution time.
type SimpleTransformer interface {
	Transform(v any) (any, error)
}

// ContextDependent is implemented by transformers that read sibling values.
// Such transformers run in the second pass, after every property is set.
type ContextDependent interface {
	DependsOnContext() bool
}

// TransformFunc adapts a plain function to SimpleTransformer.
type TransformFunc func(v any) (any, error)

func (f TransformFunc) Transform(v any) (any, error) { return f(v) }

// Validator evaluates derived rules against raw input. It returns nil when the
// input passes and Issues (one per failing rule, Path "/field") otherwise.
type Validator interface {
	Validate(ctx context.Context, data map[string]any, rules map[string]string) Issues
}

// Materializer builds records of registered types from raw data.
type Materializer interface {
	Materialize(ctx context.Context, typeName string, data map[string]any) (*Record, error)
	Externalize(ctx context.Context, r *Record) (map[string]any, error)
	Registry() *Registry
}

// Externalizer is implemented by foreign model-like objects that can serve as
// the source of a nested record without implementing the record contract.
type Externalizer interface {
	ToMap() map[string]any
}

// UnknownPolicy controls how input keys without a descriptor are handled.
type UnknownPolicy int

const (
	UnknownStrip       UnknownPolicy = iota // Drop unknown keys.
	UnknownStrict                           // Reject unknown keys with a validation failure.
	UnknownPassthrough                      // Keep unknown keys verbatim on the record.
)

// ParseUnknownPolicy maps "strip", "strict" and "passthrough" to a policy.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "strip":
		return UnknownStrip, nil
	case "strict":
		return UnknownStrict, nil
	case "passthrough":
		return UnknownPassthrough, nil
	}
	return UnknownStrip, fmt.Errorf("materia: unknown policy %q", s)
}

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownStrict:
		return "strict"
	case UnknownPassthrough:
		return "passthrough"
	default:
		return "strip"
	}
}
