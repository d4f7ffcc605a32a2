// Package engine runs the two-phase materialization pipeline over a
// materia.Registry.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reoring/materia"
	"github.com/reoring/materia/cast"
	"github.com/reoring/materia/codec"
	"github.com/reoring/materia/config"
	"github.com/reoring/materia/internal/telemetry"
	"github.com/reoring/materia/rules"
	"github.com/reoring/materia/transform"
)

// Engine materializes records of the types registered on its registry. It is
// safe for concurrent use once built.
type Engine struct {
	reg       *materia.Registry
	casters   *cast.Registry
	resolver  *transform.Resolver
	validator materia.Validator
	unknown   materia.UnknownPolicy
	log       logr.Logger
	metrics   *telemetry.Metrics

	date       *codec.Date
	extra      []materia.Caster
	metricsErr error

	cache atomic.Pointer[cacheSet]
}

// cacheSet holds derived rules and transformer plans for one registry and
// resolver generation. A generation change swaps in an empty set, dropping
// entries for replaced descriptors.
type cacheSet struct {
	regGen, resGen uint64

	rules sync.Map // *materia.Descriptors -> map[string]string
	plans sync.Map // *materia.Descriptor -> *plan
}

func (e *Engine) caches() *cacheSet {
	rg, sg := e.reg.Generation(), e.resolver.Generation()
	c := e.cache.Load()
	if c != nil && c.regGen == rg && c.resGen == sg {
		return c
	}
	fresh := &cacheSet{regGen: rg, resGen: sg}
	if e.cache.CompareAndSwap(c, fresh) {
		return fresh
	}
	return e.cache.Load()
}

var _ materia.Materializer = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithValidator replaces the default rules.Evaluator.
func WithValidator(v materia.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithoutValidation skips rule evaluation of raw input.
func WithoutValidation() Option {
	return func(e *Engine) { e.validator = nil }
}

// WithCasters registers casters ahead of the built-ins.
func WithCasters(cs ...materia.Caster) Option {
	return func(e *Engine) { e.extra = append(e.extra, cs...) }
}

// WithResolver replaces the transformer resolver (default transform.Defaults()).
func WithResolver(r *transform.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithUnknownPolicy sets how undeclared input keys are handled.
func WithUnknownPolicy(p materia.UnknownPolicy) Option {
	return func(e *Engine) { e.unknown = p }
}

// WithDateCodec sets the codec of the date caster.
func WithDateCodec(dc *codec.Date) Option {
	return func(e *Engine) {
		if dc != nil {
			e.date = dc
		}
	}
}

// WithConfig applies the unknown-key policy and date settings of cfg.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.unknown = cfg.UnknownPolicy()
		e.date = codec.NewDate(
			codec.WithLocation(cfg.Location()),
			codec.WithDisplayLayout(cfg.Date.DisplayLayout),
			codec.WithLayouts(cfg.Date.Layouts...),
		)
	}
}

// WithMetrics registers the engine collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metrics, e.metricsErr = telemetry.New(reg)
	}
}

// New builds an Engine over reg. It panics if metrics registration fails
// with a conflicting collector.
func New(reg *materia.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:       reg,
		resolver:  transform.Defaults(),
		validator: rules.New(),
		log:       logr.Discard(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.metricsErr != nil {
		panic(e.metricsErr)
	}
	if e.date == nil {
		e.date = codec.NewDate()
	}
	e.casters = cast.Defaults(e, cast.WithDateCodec(e.date), cast.WithCasters(e.extra...))
	return e
}

// Registry returns the type registry.
func (e *Engine) Registry() *materia.Registry { return e.reg }

// Casters returns the caster registry; callers may Register additional
// casters, which are consulted after the built-ins.
func (e *Engine) Casters() *cast.Registry { return e.casters }

// Resolver returns the transformer resolver.
func (e *Engine) Resolver() *transform.Resolver { return e.resolver }

// Rules returns the derived rule strings of a registered type.
func (e *Engine) Rules(typeName string) (map[string]string, error) {
	ds, err := e.reg.DescribeName(typeName)
	if err != nil {
		return nil, err
	}
	return e.rulesFor(ds), nil
}

func (e *Engine) rulesFor(ds *materia.Descriptors) map[string]string {
	c := e.caches()
	if v, ok := c.rules.Load(ds); ok {
		return v.(map[string]string)
	}
	r := materia.DeriveRules(ds)
	actual, _ := c.rules.LoadOrStore(ds, r)
	return actual.(map[string]string)
}
