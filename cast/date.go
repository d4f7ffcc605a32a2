package cast

import (
	"context"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/reoring/materia"
	"github.com/reoring/materia/codec"
)

// Date casts to time.Time through a codec.Date.
type Date struct {
	codec *codec.Date
}

// NewDate returns a date caster; a nil codec uses codec.NewDate().
func NewDate(dc *codec.Date) *Date {
	if dc == nil {
		dc = codec.NewDate()
	}
	return &Date{codec: dc}
}

func (*Date) CanCast(kind string) bool { return kind == materia.CastDate || kind == "datetime" }

func (c *Date) Materialize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	loc, err := location(d)
	if err != nil {
		return nil, failWrap(materia.CastDate, v, err)
	}
	t, err := c.materialize(ctx, v, d, loc)
	if err != nil || t == nil {
		return t, err
	}
	if loc != nil {
		return t.(time.Time).In(loc), nil
	}
	return t, nil
}

func (c *Date) materialize(ctx context.Context, v any, d *materia.Descriptor, loc *time.Location) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case string:
		dc := c.codec
		if loc != nil {
			dc = dc.In(loc)
		}
		t, err := dc.Decode(ctx, x, d.Format)
		if err != nil {
			return nil, failWrap(materia.CastDate, v, err)
		}
		return t, nil
	case map[string]any:
		// An externalized bundle carries its ISO form.
		if iso, ok := x["iso"].(string); ok {
			return c.materialize(ctx, iso, d, loc)
		}
		return nil, fail(materia.CastDate, v, "map has no iso key")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return c.codec.FromUnix(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, fail(materia.CastDate, v, "out of int64 range")
		}
		return c.codec.FromUnix(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return c.codec.FromUnixFloat(rv.Float()), nil
	case reflect.String:
		// json.Number and other named string types
		if n, err := strconv.ParseFloat(rv.String(), 64); err == nil {
			return c.codec.FromUnixFloat(n), nil
		}
		return c.materialize(ctx, rv.String(), d, loc)
	}
	return nil, fail(materia.CastDate, v, "unsupported date input")
}

// location loads the descriptor timezone; nil means keep the input zone.
func location(d *materia.Descriptor) (*time.Location, error) {
	if d.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(d.Timezone)
}

// CheckTimezone reports whether d names a loadable timezone.
func CheckTimezone(d *materia.Descriptor) error {
	_, err := location(d)
	return err
}

func (c *Date) Externalize(ctx context.Context, v any, d *materia.Descriptor) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fail(materia.CastDate, v, "expected time.Time")
	}
	if d.Format != "" {
		return t.Format(d.Format), nil
	}
	b, err := c.codec.Bundle(t, d.Timezone)
	if err != nil {
		return nil, failWrap(materia.CastDate, v, err)
	}
	return b, nil
}
