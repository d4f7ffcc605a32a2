// Package factory builds records of registered types from synthetic data.
// Generated values go through the same pipeline as hand-written input, so a
// factory never produces a record the engine would reject.
package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/reoring/materia"
	"github.com/reoring/materia/config"
)

// ErrMaxDepth is returned when a required nested property lies beyond the
// configured nesting depth.
var ErrMaxDepth = errors.New("factory: maximum nesting depth exceeded")

// Factory accumulates attributes for one record type. It is not safe for
// concurrent use; BuildMany derives independent copies for each record.
type Factory struct {
	m       materia.Materializer
	typ     string
	attrs   map[string]any
	fakeAll bool
	only    []string

	faker    *gofakeit.Faker
	log      logr.Logger
	maxDepth int
	collMin  int
	collMax  int
	depth    int
}

// Option configures a Factory.
type Option func(*Factory)

// WithSeed seeds the generator; 0 seeds randomly.
func WithSeed(seed uint64) Option {
	return func(f *Factory) { f.faker = gofakeit.New(seed) }
}

// WithFaker shares a generator, for example across factories of one test.
func WithFaker(fk *gofakeit.Faker) Option {
	return func(f *Factory) {
		if fk != nil {
			f.faker = fk
		}
	}
}

// WithMaxDepth bounds nested generation; 0 disables nested children.
func WithMaxDepth(n int) Option {
	return func(f *Factory) { f.maxDepth = n }
}

// WithCollectionSize sets the bounds of generated collection lengths.
func WithCollectionSize(min, max int) Option {
	return func(f *Factory) {
		if min < 0 || max < min {
			return
		}
		f.collMin, f.collMax = min, max
	}
}

// WithLogger sets the logger. Generated values are dumped at V(2).
func WithLogger(log logr.Logger) Option {
	return func(f *Factory) { f.log = log }
}

// WithConfig applies the factory section of cfg.
func WithConfig(cfg config.Config) Option {
	return func(f *Factory) {
		f.maxDepth = cfg.Factory.MaxDepth
		f.collMin, f.collMax = cfg.Factory.CollectionMin, cfg.Factory.CollectionMax
		f.faker = gofakeit.New(uint64(cfg.Factory.Seed))
	}
}

// New starts a factory for typeName built through m.
func New(m materia.Materializer, typeName string, opts ...Option) *Factory {
	f := &Factory{
		m:        m,
		typ:      typeName,
		attrs:    map[string]any{},
		log:      logr.Discard(),
		maxDepth: 3,
		collMin:  1,
		collMax:  3,
	}
	for _, o := range opts {
		o(f)
	}
	if f.faker == nil {
		f.faker = gofakeit.New(0)
	}
	return f
}

// With sets one attribute. It wins over an earlier FakeOnly of the same name.
func (f *Factory) With(name string, v any) *Factory {
	f.attrs[name] = v
	f.only = lo.Without(f.only, name)
	return f
}

// WithOverrides merges attributes; later values win.
func (f *Factory) WithOverrides(values map[string]any) *Factory {
	for k, v := range values {
		f.With(k, v)
	}
	return f
}

// Fake makes Build generate a value for every declared property that has no
// attribute.
func (f *Factory) Fake() *Factory {
	f.fakeAll = true
	return f
}

// FakeOnly makes Build generate values for names, replacing attributes set
// so far. Names the type does not declare are ignored.
func (f *Factory) FakeOnly(names ...string) *Factory {
	f.only = lo.Uniq(append(f.only, names...))
	return f
}

// Attributes returns a copy of the accumulated attributes.
func (f *Factory) Attributes() map[string]any {
	out := make(map[string]any, len(f.attrs))
	for k, v := range f.attrs {
		out[k] = v
	}
	return out
}

// Build generates the requested values and materializes the result.
func (f *Factory) Build(ctx context.Context) (*materia.Record, error) {
	data, err := f.data(ctx)
	if err != nil {
		return nil, err
	}
	if v := f.log.V(2); v.Enabled() {
		v.Info("building record", "type", f.typ, "depth", f.depth, "attributes", spew.Sdump(data))
	}
	return f.m.Materialize(ctx, f.typ, data)
}

func (f *Factory) data(ctx context.Context) (map[string]any, error) {
	data := f.Attributes()
	if !f.fakeAll && len(f.only) == 0 {
		return data, nil
	}
	ds, err := f.m.Registry().DescribeName(f.typ)
	if err != nil {
		return nil, err
	}
	for _, d := range ds.All() {
		_, set := data[d.Name]
		if (f.fakeAll && !set) || lo.Contains(f.only, d.Name) {
			v, err := f.value(ctx, d)
			if err != nil {
				return nil, fmt.Errorf("factory: %s.%s: %w", f.typ, d.Name, err)
			}
			f.log.V(1).Info("generated value", "type", f.typ, "property", d.Name)
			data[d.Name] = v
		}
	}
	return data, nil
}

// BuildMany builds n records from the current builder state. Faking is not
// implied: call Fake or FakeOnly first to generate values, which are then
// drawn independently for each record.
func (f *Factory) BuildMany(ctx context.Context, n int) ([]*materia.Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("factory: negative count %d", n)
	}
	out := make([]*materia.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := f.clone().Build(ctx)
		if err != nil {
			return nil, fmt.Errorf("factory: %s #%d: %w", f.typ, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *Factory) clone() *Factory {
	cp := *f
	cp.attrs = f.Attributes()
	cp.only = append([]string(nil), f.only...)
	return &cp
}

// child returns a fresh factory for a nested type one level deeper, sharing
// the generator and settings.
func (f *Factory) child(typeName string) *Factory {
	return &Factory{
		m:        f.m,
		typ:      typeName,
		attrs:    map[string]any{},
		faker:    f.faker,
		log:      f.log,
		maxDepth: f.maxDepth,
		collMin:  f.collMin,
		collMax:  f.collMax,
		depth:    f.depth + 1,
	}
}
