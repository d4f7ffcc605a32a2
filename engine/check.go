package engine

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/reoring/materia"
	"github.com/reoring/materia/cast"
)

// Check lints every registered type: descriptors must build, nested and enum
// refs must resolve, every transformer must resolve, and every cast kind must
// have a caster. All problems are returned combined.
func (e *Engine) Check() error {
	var err error
	for _, name := range e.reg.Types() {
		ds, derr := e.reg.DescribeName(name)
		if derr != nil {
			err = multierr.Append(err, derr)
			continue
		}
		for _, d := range ds.All() {
			err = multierr.Append(err, e.checkDescriptor(name, d))
		}
	}
	return err
}

func (e *Engine) checkDescriptor(typeName string, d *materia.Descriptor) error {
	var err error
	if d.Nested != "" {
		_, isType := e.reg.Type(d.Nested)
		_, isEnum := e.reg.Enum(d.Nested)
		if !isType && !isEnum {
			err = multierr.Append(err, &materia.UnresolvedTypeError{Property: typeName + "." + d.Name, Ref: d.Nested})
		}
	}
	if d.Cast != materia.CastNone && !e.casters.Handles(d.Cast) {
		err = multierr.Append(err, fmt.Errorf("materia: %s.%s: no caster for kind %q", typeName, d.Name, d.Cast))
	}
	if terr := cast.CheckTimezone(d); terr != nil {
		err = multierr.Append(err, fmt.Errorf("materia: %s.%s: timezone: %w", typeName, d.Name, terr))
	}
	if _, perr := e.planFor(d); perr != nil {
		err = multierr.Append(err, fmt.Errorf("materia: %s.%s: %w", typeName, d.Name, perr))
	}
	return err
}
