package transform

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/reoring/materia"
)

// Trim removes surrounding whitespace from strings.
type Trim struct{}

func (Trim) Transform(v any, _ materia.TransformContext) (any, error) {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return v, nil
}

func (Trim) ShouldTransform(v any, _ materia.TransformContext) bool {
	s, ok := v.(string)
	return ok && s != strings.TrimSpace(s)
}

// Lower lower-cases strings.
type Lower struct{}

func (Lower) Transform(v any, _ materia.TransformContext) (any, error) {
	if s, ok := v.(string); ok {
		return strings.ToLower(s), nil
	}
	return v, nil
}

func (Lower) ShouldTransform(v any, _ materia.TransformContext) bool {
	s, ok := v.(string)
	return ok && s != strings.ToLower(s)
}

// Upper upper-cases strings.
type Upper struct{}

func (Upper) Transform(v any, _ materia.TransformContext) (any, error) {
	if s, ok := v.(string); ok {
		return strings.ToUpper(s), nil
	}
	return v, nil
}

func (Upper) ShouldTransform(v any, _ materia.TransformContext) bool {
	s, ok := v.(string)
	return ok && s != strings.ToUpper(s)
}

var hashes = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha1":   sha1.New,
	"md5":    md5.New,
	"sha512": sha512.New,
}

// Hash replaces non-empty strings with their hex digest. It is not
// idempotent: materializing an already hashed value hashes it again.
type Hash struct {
	Algorithm string // sha256 (default), sha1, md5 or sha512
}

func newHash(args []string) (any, error) {
	h := Hash{Algorithm: "sha256"}
	if len(args) > 1 {
		return nil, fmt.Errorf("takes at most one argument")
	}
	if len(args) == 1 && args[0] != "" {
		h.Algorithm = strings.ToLower(args[0])
	}
	if _, ok := hashes[h.Algorithm]; !ok {
		return nil, fmt.Errorf("unsupported algorithm %q", h.Algorithm)
	}
	return h, nil
}

func (h Hash) Transform(v any, _ materia.TransformContext) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	alg := h.Algorithm
	if alg == "" {
		alg = "sha256"
	}
	mk, ok := hashes[alg]
	if !ok {
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
	d := mk()
	d.Write([]byte(s))
	return hex.EncodeToString(d.Sum(nil)), nil
}

func (Hash) ShouldTransform(v any, _ materia.TransformContext) bool {
	s, ok := v.(string)
	return ok && s != ""
}

// Slug derives a URL slug. With Source set it reads the sibling property
// Source from the transform context and is context-dependent; otherwise it
// slugs the value itself. MaxLength truncates at the last separator before
// the limit.
type Slug struct {
	Source    string
	Separator string
	Lang      string
	MaxLength int
}

// newSlug accepts positional arguments source, separator, lang, max_length;
// empty positions keep their defaults.
func newSlug(args []string) (any, error) {
	s := Slug{Separator: "-"}
	for i, a := range args {
		if a == "" {
			continue
		}
		switch i {
		case 0:
			s.Source = a
		case 1:
			s.Separator = a
		case 2:
			s.Lang = a
		case 3:
			n, err := strconv.Atoi(a)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid max length %q", a)
			}
			s.MaxLength = n
		default:
			return nil, fmt.Errorf("takes at most four arguments")
		}
	}
	return s, nil
}

func (s Slug) DependsOnContext() bool { return s.Source != "" }

func (s Slug) source(v any, tc materia.TransformContext) string {
	if s.Source != "" && tc.Has(s.Source) {
		return tc.String(s.Source)
	}
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

func (s Slug) Transform(v any, tc materia.TransformContext) (any, error) {
	src := s.source(v, tc)
	if src == "" {
		return v, nil
	}
	sep := s.Separator
	if sep == "" {
		sep = "-"
	}
	out := slug.Make(src)
	if s.Lang != "" {
		out = slug.MakeLang(src, s.Lang)
	}
	if sep != "-" {
		out = strings.ReplaceAll(out, "-", sep)
	}
	if s.MaxLength > 0 && len(out) > s.MaxLength {
		cut := out[:s.MaxLength]
		if i := strings.LastIndex(cut, sep); i > 0 {
			cut = cut[:i]
		}
		out = strings.TrimRight(cut, sep)
	}
	return out, nil
}

func (s Slug) ShouldTransform(v any, tc materia.TransformContext) bool {
	if s.Source != "" {
		return tc.String(s.Source) != ""
	}
	str, ok := v.(string)
	return ok && str != ""
}

// Abs replaces numbers with their absolute value.
type Abs struct{}

func (Abs) Transform(v any, _ materia.TransformContext) (any, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return -n, nil
		}
		return n, nil
	case int64:
		if n < 0 {
			return -n, nil
		}
		return n, nil
	case float64:
		return math.Abs(n), nil
	}
	return v, nil
}

func (Abs) ShouldTransform(v any, _ materia.TransformContext) bool {
	_, ok := number(v)
	return ok
}

// Clamp bounds numbers from one side.
type Clamp struct {
	Bound float64
	Max   bool
}

func newClamp(isMax bool) Factory {
	return func(args []string) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("takes exactly one argument")
		}
		b, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bound %q", args[0])
		}
		return Clamp{Bound: b, Max: isMax}, nil
	}
}

func (c Clamp) Transform(v any, _ materia.TransformContext) (any, error) {
	f, ok := number(v)
	if !ok {
		return v, nil
	}
	if (c.Max && f <= c.Bound) || (!c.Max && f >= c.Bound) {
		return v, nil
	}
	if _, isInt := v.(int); isInt {
		return int(c.Bound), nil
	}
	return c.Bound, nil
}

func (Clamp) ShouldTransform(v any, _ materia.TransformContext) bool {
	_, ok := number(v)
	return ok
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
