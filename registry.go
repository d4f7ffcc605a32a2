package materia

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"
)

// Registry holds record types and enums by name, plus the described
// descriptor sets. A Registry is safe for concurrent use; descriptors are
// computed once per type and shared afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
	enums map[string]*Enum

	described sync.Map // *Type -> *Descriptors
	group     singleflight.Group
	gen       atomic.Uint64

	structMu sync.Mutex
	structs  sync.Map // reflect.Type -> *Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]*Type{}, enums: map[string]*Enum{}}
}

// Register adds record types. Registering the same *Type twice is a no-op;
// registering a different type under a taken name is an error.
func (r *Registry) Register(types ...*Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		if t == nil {
			return errors.New("materia: register nil type")
		}
		if prev, ok := r.types[t.name]; ok && prev != t {
			return fmt.Errorf("materia: type %q already registered", t.name)
		}
		if _, ok := r.enums[t.name]; ok {
			return fmt.Errorf("materia: %q already registered as an enum", t.name)
		}
		r.types[t.name] = t
	}
	r.invalidate()
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(types ...*Type) *Registry {
	if err := r.Register(types...); err != nil {
		panic(err)
	}
	return r
}

// RegisterEnum adds enums.
func (r *Registry) RegisterEnum(enums ...*Enum) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range enums {
		if e == nil || e.Name == "" {
			return errors.New("materia: register unnamed enum")
		}
		if _, ok := r.types[e.Name]; ok {
			return fmt.Errorf("materia: %q already registered as a record type", e.Name)
		}
		r.enums[e.Name] = e
	}
	r.invalidate()
	return nil
}

// invalidate drops described descriptors whose inference may depend on the
// set of registered names. Callers hold r.mu.
func (r *Registry) invalidate() {
	r.gen.Add(1)
	r.described.Range(func(k, _ any) bool {
		r.described.Delete(k)
		return true
	})
}

// Generation changes every time a registration invalidates described
// descriptors. Caches keyed by *Descriptor compare it to detect staleness.
func (r *Registry) Generation() uint64 { return r.gen.Load() }

// Type looks up a record type by name.
func (r *Registry) Type(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Enum looks up an enum by name.
func (r *Registry) Enum(name string) (*Enum, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enums[name]
	return e, ok
}

// Types returns registered record type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// DescribeName describes a registered type by name.
func (r *Registry) DescribeName(name string) (*Descriptors, error) {
	t, ok := r.Type(name)
	if !ok {
		return nil, &UnresolvedTypeError{Ref: name}
	}
	return r.Describe(t)
}

// Describe returns the descriptor set of t, computing it on first use.
func (r *Registry) Describe(t *Type) (*Descriptors, error) {
	if t == nil {
		return nil, errors.New("materia: describe nil type")
	}
	if ds, ok := r.described.Load(t); ok {
		return ds.(*Descriptors), nil
	}
	v, err, _ := r.group.Do(fmt.Sprintf("%s@%p", t.name, t), func() (any, error) {
		if ds, ok := r.described.Load(t); ok {
			return ds, nil
		}
		ds := r.describe(t)
		r.described.Store(t, ds)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptors), nil
}

func (r *Registry) describe(t *Type) *Descriptors {
	ds := &Descriptors{
		typ:    t,
		order:  make([]*Descriptor, 0, len(t.fields)),
		byName: make(map[string]*Descriptor, len(t.fields)),
	}
	for i := range t.fields {
		d := t.fields[i]
		d.Type = d.Type.Normalize()
		if len(d.Transforms) > 0 {
			d.Transforms = append([]TransformerRef(nil), d.Transforms...)
		}
		if d.Type == Collection {
			d.Collection = true
		}
		if !d.explicitCast {
			d.Cast = r.inferCast(&d)
		}
		ds.order = append(ds.order, &d)
		ds.byName[d.Name] = &d
	}
	return ds
}

// inferCast picks the cast kind for a descriptor without an explicit one.
func (r *Registry) inferCast(d *Descriptor) string {
	if kind, ok := castFor(d.Type); ok {
		return kind
	}
	if d.Nested == "" {
		return CastNone
	}
	if _, ok := r.Enum(d.Nested); ok {
		return CastEnum
	}
	// Unresolved refs still infer nested so the failure is reported at cast time.
	return CastNested
}
