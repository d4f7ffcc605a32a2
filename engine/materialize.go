package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/exp/slices"

	"github.com/reoring/materia"
	"github.com/reoring/materia/transform"
)

// plan is the resolved transformer chain of one descriptor.
type plan struct {
	independent []transform.Resolved
	contextual  []transform.Resolved
}

func (e *Engine) planFor(d *materia.Descriptor) (*plan, error) {
	c := e.caches()
	if v, ok := c.plans.Load(d); ok {
		return v.(*plan), nil
	}
	chain, err := e.resolver.ResolveAll(d.Transforms)
	if err != nil {
		return nil, err
	}
	p := &plan{}
	p.independent, p.contextual = transform.Partition(chain)
	actual, _ := c.plans.LoadOrStore(d, p)
	return actual.(*plan), nil
}

// Materialize builds a record of typeName from raw data:
//
//  1. apply the unknown-key policy
//  2. validate the raw input against derived rules (skipped for empty input)
//  3. phase 1: independent transforms, cast and type check of every input key
//  4. fill defaults, nil for optional properties, or fail on missing required ones
//  5. phase 2: context-dependent transforms over every declared property,
//     reading one snapshot of all values, then re-cast and re-check
//
// Any failure aborts; no partial record is returned.
func (e *Engine) Materialize(ctx context.Context, typeName string, data map[string]any) (*materia.Record, error) {
	start := time.Now()
	rec, err := e.materialize(ctx, typeName, data)
	e.metrics.Observe(typeName, time.Since(start), err == nil, materia.KindOf(err))
	return rec, err
}

func (e *Engine) materialize(ctx context.Context, typeName string, data map[string]any) (*materia.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := e.reg.Type(typeName)
	if !ok {
		return nil, &materia.UnresolvedTypeError{Ref: typeName}
	}
	ds, err := e.reg.Describe(t)
	if err != nil {
		return nil, err
	}

	input, extra, err := e.applyUnknown(ds, data)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 && e.validator != nil {
		if iss := e.validator.Validate(ctx, input, e.rulesFor(ds)); len(iss) > 0 {
			return nil, &materia.ValidationError{Type: typeName, Issues: iss}
		}
	}

	log := e.log.WithValues("type", typeName)
	values := make(map[string]any, ds.Len())
	presence := materia.PresenceMap{}
	empty := materia.NewTransformContext(nil)

	// Phase 1.
	for _, d := range ds.All() {
		raw, ok := input[d.Name]
		if !ok {
			continue
		}
		presence.Mark(d.Name, materia.PresenceSeen)
		if raw == nil {
			presence.Mark(d.Name, materia.PresenceWasNull)
			if !d.AcceptsNull() {
				return nil, &materia.CastError{
					Property: d.Name, Kind: d.Cast, ValueKind: "null",
					Reason: "null given for a required property",
				}
			}
			values[d.Name] = nil
			continue
		}
		p, err := e.planFor(d)
		if err != nil {
			return nil, err
		}
		v, err := transform.Apply(p.independent, raw, empty)
		if err != nil {
			return nil, fmt.Errorf("materia: %s.%s: %w", typeName, d.Name, err)
		}
		if v, err = e.castChecked(ctx, d, v); err != nil {
			return nil, err
		}
		values[d.Name] = v
	}

	// Defaults.
	for _, d := range ds.All() {
		if _, ok := values[d.Name]; ok {
			continue
		}
		switch {
		case d.HasDefault():
			v, err := e.castChecked(ctx, d, d.Default)
			if err != nil {
				return nil, err
			}
			values[d.Name] = v
			presence.Mark(d.Name, materia.PresenceDefaultApplied)
		case d.AcceptsNull():
			values[d.Name] = nil
		default:
			return nil, &materia.MissingPropertyError{Type: typeName, Property: d.Name}
		}
	}

	// Phase 2.
	snapshot := materia.NewTransformContext(values)
	for _, d := range ds.All() {
		p, err := e.planFor(d)
		if err != nil {
			return nil, err
		}
		if len(p.contextual) == 0 {
			continue
		}
		cur := values[d.Name]
		v, err := transform.Apply(p.contextual, cur, snapshot)
		if err != nil {
			return nil, fmt.Errorf("materia: %s.%s: %w", typeName, d.Name, err)
		}
		if v, err = e.castChecked(ctx, d, v); err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(v, cur) {
			presence.Mark(d.Name, materia.PresenceDerived)
			log.V(1).Info("derived property", "property", d.Name)
		}
		values[d.Name] = v
	}

	return materia.NewRecord(e, t, values, presence, extra), nil
}

// castChecked casts v for d and checks the result against the declared type.
func (e *Engine) castChecked(ctx context.Context, d *materia.Descriptor, v any) (any, error) {
	if d.Cast != materia.CastNone && !e.casters.Handles(d.Cast) {
		e.log.V(1).Info("passthrough cast", "property", d.Name, "cast", d.Cast)
	}
	out, err := e.casters.Materialize(ctx, v, d)
	if err != nil {
		return nil, err
	}
	if err := typeCheck(d, out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyUnknown splits data into declared input and passthrough extras.
func (e *Engine) applyUnknown(ds *materia.Descriptors, data map[string]any) (map[string]any, map[string]any, error) {
	var unknown []string
	for k := range data {
		if _, ok := ds.Get(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return data, nil, nil
	}
	slices.Sort(unknown)
	switch e.unknown {
	case materia.UnknownStrict:
		iss := make(materia.Issues, 0, len(unknown))
		for _, k := range unknown {
			iss = append(iss, materia.Issue{
				Path: materia.Pointer(k), Code: materia.CodeUnknownKey, Message: "unknown key", Rule: "strict",
			})
		}
		return nil, nil, &materia.ValidationError{Type: ds.Type().Name(), Issues: iss}
	case materia.UnknownPassthrough:
		input := make(map[string]any, len(data))
		extra := make(map[string]any, len(unknown))
		for k, v := range data {
			if _, ok := ds.Get(k); ok {
				input[k] = v
			} else {
				extra[k] = v
			}
		}
		return input, extra, nil
	default:
		e.log.V(1).Info("dropping unknown keys", "type", ds.Type().Name(), "keys", unknown)
		input := make(map[string]any, len(data))
		for k, v := range data {
			if _, ok := ds.Get(k); ok {
				input[k] = v
			}
		}
		return input, nil, nil
	}
}

// Externalize converts every value of r back to primitive form; passthrough
// keys are copied as they are.
func (e *Engine) Externalize(ctx context.Context, r *materia.Record) (map[string]any, error) {
	ds, err := e.reg.Describe(r.Type())
	if err != nil {
		return nil, err
	}
	out := r.Extras()
	for _, d := range ds.All() {
		v, err := e.casters.Externalize(ctx, r.Value(d.Name), d)
		if err != nil {
			return nil, err
		}
		out[d.Name] = v
	}
	return out, nil
}
