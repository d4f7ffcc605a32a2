// Package transform resolves transformer references into one uniform
// contract, classifies them as independent or context-dependent, and applies
// transformer chains.
package transform

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/reoring/materia"
)

// Factory builds a transformer from the arguments of an identifier:
// "slug:title,_" calls the "slug" factory with ["title", "_"].
type Factory func(args []string) (any, error)

// Resolved is an adapted transformer ready to apply.
type Resolved struct {
	Ref        materia.TransformerRef
	T          materia.Transformer
	Contextual bool
}

// Resolver turns TransformerRefs into Resolved transformers. Identifier
// references are instantiated lazily through registered factories and cached
// per identifier. A Resolver is safe for concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	contextual map[string]bool

	cache sync.Map // identifier -> Resolved
	gen   atomic.Uint64
}

// NewResolver returns a resolver without factories.
func NewResolver() *Resolver {
	return &Resolver{factories: map[string]Factory{}, contextual: map[string]bool{}}
}

// Defaults returns a resolver with the built-in transformers registered:
// trim, lower, upper, hash, slug, abs, clamp_min and clamp_max.
func Defaults() *Resolver {
	r := NewResolver()
	r.Register("trim", noArgs(func() any { return Trim{} }))
	r.Register("lower", noArgs(func() any { return Lower{} }))
	r.Register("lowercase", noArgs(func() any { return Lower{} }))
	r.Register("upper", noArgs(func() any { return Upper{} }))
	r.Register("uppercase", noArgs(func() any { return Upper{} }))
	r.Register("hash", newHash)
	r.Register("slug", newSlug)
	r.Register("abs", noArgs(func() any { return Abs{} }))
	r.Register("clamp_min", newClamp(false))
	r.Register("clamp_max", newClamp(true))
	return r
}

func noArgs(build func() any) Factory {
	return func(args []string) (any, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("takes no arguments, got %d", len(args))
		}
		return build(), nil
	}
}

// Register adds a factory under name, replacing any previous one.
func (r *Resolver) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
	r.gen.Add(1)
	r.cache.Range(func(k, _ any) bool {
		if n, _ := splitID(k.(string)); n == name {
			r.cache.Delete(k)
		}
		return true
	})
}

// MarkContextual classifies transformers as context-dependent by identifier
// name ("slug") or by Go type name as printed by %T ("*app.FullName").
func (r *Resolver) MarkContextual(names ...string) {
	r.mu.Lock()
	for _, n := range names {
		r.contextual[n] = true
	}
	r.mu.Unlock()
	r.gen.Add(1)
	r.cache.Range(func(k, _ any) bool {
		r.cache.Delete(k)
		return true
	})
}

// Generation changes on every Register and MarkContextual, so holders of
// resolved chains know when to resolve again.
func (r *Resolver) Generation() uint64 { return r.gen.Load() }

// Resolve adapts one reference.
func (r *Resolver) Resolve(ref materia.TransformerRef) (Resolved, error) {
	if ref.IsZero() {
		return Resolved{}, &materia.UnknownTransformerError{Reason: "empty reference"}
	}
	if inst := ref.Instance(); inst != nil {
		t, err := Adapt(inst)
		if err != nil {
			return Resolved{}, &materia.UnknownTransformerError{Ref: ref.String(), Reason: err.Error()}
		}
		return Resolved{Ref: ref, T: t, Contextual: r.classify("", inst)}, nil
	}
	id := ref.ID()
	if v, ok := r.cache.Load(id); ok {
		return v.(Resolved), nil
	}
	name, args := splitID(id)
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return Resolved{}, &materia.UnknownTransformerError{Ref: id}
	}
	inst, err := f(args)
	if err != nil {
		return Resolved{}, &materia.UnknownTransformerError{Ref: id, Reason: err.Error()}
	}
	t, err := Adapt(inst)
	if err != nil {
		return Resolved{}, &materia.UnknownTransformerError{Ref: id, Reason: err.Error()}
	}
	res := Resolved{Ref: ref, T: t, Contextual: r.classify(name, inst)}
	actual, _ := r.cache.LoadOrStore(id, res)
	return actual.(Resolved), nil
}

// ResolveAll adapts refs in order, failing on the first unresolvable one.
func (r *Resolver) ResolveAll(refs []materia.TransformerRef) ([]Resolved, error) {
	out := make([]Resolved, 0, len(refs))
	for _, ref := range refs {
		res, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Resolver) classify(name string, inst any) bool {
	if cd, ok := inst.(materia.ContextDependent); ok && cd.DependsOnContext() {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name != "" && r.contextual[name] {
		return true
	}
	return r.contextual[fmt.Sprintf("%T", inst)]
}

// Adapt converts a transformer of either contract generation, or a plain
// func(any) (any, error), to materia.Transformer.
func Adapt(inst any) (materia.Transformer, error) {
	switch t := inst.(type) {
	case materia.Transformer:
		return t, nil
	case materia.SimpleTransformer:
		return Legacy{Inner: t}, nil
	case func(any) (any, error):
		return Legacy{Inner: materia.TransformFunc(t)}, nil
	}
	return nil, fmt.Errorf("%T implements no transformer contract", inst)
}

// Partition splits a chain into independent and context-dependent parts,
// keeping declaration order within each.
func Partition(chain []Resolved) (independent, contextual []Resolved) {
	independent = lo.Filter(chain, func(r Resolved, _ int) bool { return !r.Contextual })
	contextual = lo.Filter(chain, func(r Resolved, _ int) bool { return r.Contextual })
	return independent, contextual
}

// Apply runs chain over v in order, skipping transformers whose
// ShouldTransform rejects the current value.
func Apply(chain []Resolved, v any, tc materia.TransformContext) (any, error) {
	cur := v
	for _, r := range chain {
		if !r.T.ShouldTransform(cur, tc) {
			continue
		}
		out, err := r.T.Transform(cur, tc)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", r.Ref, err)
		}
		cur = out
	}
	return cur, nil
}

// splitID splits "name:a,b" into "name" and ["a", "b"].
func splitID(id string) (string, []string) {
	name, rest, ok := strings.Cut(id, ":")
	name = strings.TrimSpace(name)
	if !ok || strings.TrimSpace(rest) == "" {
		return name, nil
	}
	return name, lo.Map(strings.Split(rest, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
}

// Legacy adapts a SimpleTransformer. It transforms any value that is neither
// nil nor the empty string.
type Legacy struct {
	Inner materia.SimpleTransformer
}

func (l Legacy) Transform(v any, _ materia.TransformContext) (any, error) { return l.Inner.Transform(v) }

func (l Legacy) ShouldTransform(v any, _ materia.TransformContext) bool {
	if v == nil {
		return false
	}
	s, ok := v.(string)
	return !ok || s != ""
}

// DependsOnContext forwards the classification of the wrapped transformer.
func (l Legacy) DependsOnContext() bool {
	cd, ok := l.Inner.(materia.ContextDependent)
	return ok && cd.DependsOnContext()
}
