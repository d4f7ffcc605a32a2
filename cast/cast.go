// Package cast holds the ordered caster registry and the built-in casters.
//
// A registry is consulted by cast kind; the first caster whose CanCast
// accepts the kind wins. Nil values never reach a caster, and a kind no
// caster accepts passes the value through unchanged.
package cast

import (
	"context"
	"errors"
	"sync"

	"github.com/reoring/materia"
	"github.com/reoring/materia/codec"
)

// Registry is an ordered list of casters.
type Registry struct {
	mu      sync.RWMutex
	casters []materia.Caster
}

// New returns a registry consulting casters in the given order.
func New(casters ...materia.Caster) *Registry {
	r := &Registry{}
	for _, c := range casters {
		r.Register(c)
	}
	return r
}

// Option configures Defaults.
type Option func(*defaults)

type defaults struct {
	date  *codec.Date
	extra []materia.Caster
}

// WithDateCodec sets the codec used by the date caster.
func WithDateCodec(dc *codec.Date) Option { return func(d *defaults) { d.date = dc } }

// WithCasters places casters ahead of the built-ins so they win for the
// kinds they accept.
func WithCasters(cs ...materia.Caster) Option {
	return func(d *defaults) { d.extra = append(d.extra, cs...) }
}

// Defaults returns the built-in registry: string, int, float, bool, array,
// date, nested and enum, in that order. m materializes nested records.
func Defaults(m materia.Materializer, opts ...Option) *Registry {
	cfg := defaults{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.date == nil {
		cfg.date = codec.NewDate()
	}
	r := New(cfg.extra...)
	r.Register(String{})
	r.Register(Int{})
	r.Register(Float{})
	r.Register(Bool{})
	r.Register(Array{})
	r.Register(NewDate(cfg.date))
	r.Register(NewNested(m))
	r.Register(NewEnum(m.Registry()))
	return r
}

// Register appends a caster; it is consulted after every caster registered
// before it.
func (r *Registry) Register(c materia.Caster) {
	if c == nil {
		return
	}
	r.mu.Lock()
	r.casters = append(r.casters, c)
	r.mu.Unlock()
}

// Find returns the first caster accepting kind.
func (r *Registry) Find(kind string) (materia.Caster, bool) {
	if kind == materia.CastNone {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.casters {
		if c.CanCast(kind) {
			return c, true
		}
	}
	return nil, false
}

// Len returns the number of registered casters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.casters)
}

// Materialize casts v for descriptor d.
func (r *Registry) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	if v == nil {
		return nil, nil
	}
	c, ok := r.Find(d.Cast)
	if !ok {
		return v, nil
	}
	out, err := c.Materialize(ctx, v, d)
	if err != nil {
		return nil, withProperty(err, d.Name)
	}
	return out, nil
}

// Externalize converts a materialized value of d back to primitive form.
// Nested records are externalized regardless of the cast kind.
func (r *Registry) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rec, ok := v.(*materia.Record); ok {
		return rec.Export(ctx)
	}
	c, ok := r.Find(d.Cast)
	if !ok {
		return v, nil
	}
	out, err := c.Externalize(ctx, v, d)
	if err != nil {
		return nil, withProperty(err, d.Name)
	}
	return out, nil
}

// Handles reports whether kind is handled by a caster rather than passed through.
func (r *Registry) Handles(kind string) bool {
	_, ok := r.Find(kind)
	return ok
}

func withProperty(err error, name string) error {
	var ce *materia.CastError
	if errors.As(err, &ce) && ce.Property == "" {
		cp := *ce
		cp.Property = name
		return &cp
	}
	return err
}

func fail(kind string, v any, reason string) error {
	return materia.NewCastError(kind, v, reason)
}

func failWrap(kind string, v any, cause error) error {
	ce := materia.NewCastError(kind, v, cause.Error())
	ce.Cause = cause
	return ce
}
