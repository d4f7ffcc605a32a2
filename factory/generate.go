package factory

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/reoring/materia"
	"github.com/reoring/materia/rules"
)

// hints are the generation bounds found in a validation fragment.
type hints struct {
	min, max *float64
	email    bool
	uuid     bool
	in       []string
}

func parseHints(fragment string) hints {
	var h hints
	for _, r := range rules.Parse(fragment) {
		switch r.Name {
		case "min", "max", "size":
			if len(r.Args) == 0 {
				continue
			}
			n, err := strconv.ParseFloat(r.Args[0], 64)
			if err != nil {
				continue
			}
			if r.Name != "max" {
				h.min = &n
			}
			if r.Name != "min" {
				h.max = &n
			}
		case "between":
			if len(r.Args) != 2 {
				continue
			}
			lo, err1 := strconv.ParseFloat(r.Args[0], 64)
			hi, err2 := strconv.ParseFloat(r.Args[1], 64)
			if err1 == nil && err2 == nil {
				h.min, h.max = &lo, &hi
			}
		case "email":
			h.email = true
		case "uuid":
			h.uuid = true
		case "in":
			h.in = r.Args
		}
	}
	return h
}

func (h hints) bounds(lo, hi float64) (float64, float64) {
	if h.min != nil {
		lo = *h.min
	}
	if h.max != nil {
		hi = *h.max
	}
	if hi < lo {
		if h.max != nil && h.min == nil {
			lo = hi
		} else {
			hi = lo
		}
	}
	return lo, hi
}

// value produces one raw value for d. Optional properties with a default
// keep the default.
func (f *Factory) value(ctx context.Context, d *materia.Descriptor) (any, error) {
	if !d.Required && d.HasDefault() {
		return d.Default, nil
	}
	switch d.Cast {
	case materia.CastNested:
		if d.Collection {
			return f.collection(ctx, d)
		}
		return f.nested(ctx, d)
	case materia.CastDate:
		now := time.Now()
		return f.faker.DateRange(now.AddDate(0, 0, -365), now), nil
	case materia.CastEnum:
		return f.enum(d), nil
	}

	h := parseHints(d.Validation)
	switch d.Type {
	case materia.String:
		return f.text(h), nil
	case materia.Int:
		lo, hi := h.bounds(1, 100)
		return f.faker.IntRange(int(math.Ceil(lo)), int(math.Floor(hi))), nil
	case materia.Float:
		lo, hi := h.bounds(1, 1000)
		return math.Round(f.faker.Float64Range(lo, hi)*100) / 100, nil
	case materia.Bool:
		return f.faker.Bool(), nil
	case materia.Array:
		n := f.faker.IntRange(1, 3)
		out := make([]any, n)
		for i := range out {
			out[i] = f.faker.Word()
		}
		return out, nil
	}
	// Untyped and unknown declared types.
	if d.HasDefault() {
		return d.Default, nil
	}
	return f.faker.Word(), nil
}

// text honors an explicit max bound even when it is zero.
func (f *Factory) text(h hints) string {
	switch {
	case len(h.in) > 0:
		return f.faker.RandomString(h.in)
	case h.email:
		return f.faker.Email()
	case h.uuid:
		id, err := uuid.NewRandomFromReader(fakerReader{f})
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	}
	lo, hi := h.bounds(1, 64)
	minLen, maxLen := int(math.Ceil(lo)), int(math.Floor(hi))

	words := make([]string, f.faker.IntRange(1, 3))
	for i := range words {
		words[i] = f.faker.Word()
	}
	s := strings.Join(words, " ")
	if n := utf8.RuneCountInString(s); n < minLen {
		s += f.faker.LetterN(uint(minLen - n))
	}
	if h.max != nil && utf8.RuneCountInString(s) > maxLen {
		s = strings.TrimSpace(string([]rune(s)[:maxLen]))
		if n := utf8.RuneCountInString(s); n < minLen {
			s += f.faker.LetterN(uint(minLen - n))
		}
	}
	return s
}

func (f *Factory) enum(d *materia.Descriptor) any {
	e, ok := f.m.Registry().Enum(d.Nested)
	if !ok || len(e.Cases) == 0 {
		return nil
	}
	return e.Cases[f.faker.IntRange(0, len(e.Cases)-1)]
}

func (f *Factory) nested(ctx context.Context, d *materia.Descriptor) (any, error) {
	if f.depth >= f.maxDepth {
		if d.Required {
			return nil, ErrMaxDepth
		}
		return nil, nil
	}
	return f.child(d.Nested).Fake().Build(ctx)
}

func (f *Factory) collection(ctx context.Context, d *materia.Descriptor) (any, error) {
	if f.depth >= f.maxDepth {
		if d.Required {
			return nil, ErrMaxDepth
		}
		return []*materia.Record{}, nil
	}
	n := f.faker.IntRange(f.collMin, f.collMax)
	out := make([]*materia.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := f.child(d.Nested).Fake().Build(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// fakerReader feeds uuid generation from the seeded generator.
type fakerReader struct{ f *Factory }

func (r fakerReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.f.faker.Uint8()
	}
	return len(p), nil
}
