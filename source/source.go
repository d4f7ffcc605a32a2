// Package source decodes JSON and YAML documents into the input bags accepted
// by materia.Materializer.
//
// Decoding keeps the raw shape of the document: numbers stay json.Number for
// JSON (the built-in casters accept it) and native ints/floats for YAML,
// nested objects become map[string]any and arrays []any. Duplicate object
// keys are reported as issues instead of silently keeping the last value.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/reoring/materia"
	"github.com/reoring/materia/i18n"
)

// Format identifies a document encoding.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

// FormatOf picks a format from a file name or a bare extension
// (".json", "yaml", "config.yml").
func FormatOf(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = "." + strings.ToLower(strings.TrimPrefix(name, "."))
	}
	switch ext {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return JSON, fmt.Errorf("source: unsupported format %q", name)
}

// Duplicates selects how repeated object keys are handled.
type Duplicates int

const (
	DuplicatesReject Duplicates = iota // report every repeated key as an issue
	DuplicatesLast                     // keep the last occurrence
)

type options struct {
	dup       Duplicates
	maxIssues int
	useNumber bool
}

// Option configures decoding.
type Option func(*options)

// WithDuplicates sets the duplicate key policy. The default is DuplicatesReject.
func WithDuplicates(d Duplicates) Option { return func(o *options) { o.dup = d } }

// WithMaxIssues caps the number of reported issues; n <= 0 means unlimited.
func WithMaxIssues(n int) Option { return func(o *options) { o.maxIssues = n } }

// WithFloats decodes JSON numbers as float64 instead of json.Number.
func WithFloats() Option { return func(o *options) { o.useNumber = false } }

func newOptions(opts []Option) options {
	o := options{dup: DuplicatesReject, maxIssues: 20, useNumber: true}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Decode decodes a single object document.
func Decode(f Format, data []byte, opts ...Option) (map[string]any, error) {
	v, err := decodeAny(f, data, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return asObject(v, "")
}

// DecodeList decodes a document holding an array of objects, or a single
// object which is returned as a one-element list.
func DecodeList(f Format, data []byte, opts ...Option) ([]map[string]any, error) {
	v, err := decodeAny(f, data, newOptions(opts))
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		return []map[string]any{m}, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, invalidRoot("", v)
	}
	out := make([]map[string]any, 0, len(arr))
	for i, el := range arr {
		m, err := asObject(el, fmt.Sprintf("/%d", i))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DecodeReader reads r fully and decodes a single object document.
func DecodeReader(f Format, r io.Reader, opts ...Option) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("source: read: %w", err)
	}
	return Decode(f, data, opts...)
}

func decodeAny(f Format, data []byte, o options) (any, error) {
	if f == YAML {
		return decodeYAML(data, o)
	}
	return decodeJSON(data, o)
}

func asObject(v any, path string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalidRoot(path, v)
	}
	return m, nil
}

func invalidRoot(path string, v any) error {
	if path == "" {
		path = "/"
	}
	return materia.Issues{{
		Path:    path,
		Code:    materia.CodeInvalidType,
		Message: fmt.Sprintf("expected an object, got %s", materia.ValueKind(v)),
		Params:  map[string]any{"expected": "object", "got": materia.ValueKind(v)},
	}}
}

// collector accumulates decode issues up to a limit.
type collector struct {
	max    int
	issues materia.Issues
	full   bool
}

func (c *collector) add(it materia.Issue) {
	if c.full {
		return
	}
	c.issues = materia.AppendIssues(c.issues, it)
	if c.max > 0 && len(c.issues) >= c.max {
		c.issues = append(c.issues, materia.Issue{Path: "/", Code: materia.CodeTruncated, Message: i18n.T(materia.CodeTruncated, nil)})
		c.full = true
	}
}

func (c *collector) duplicate(path, key string) {
	c.add(materia.Issue{
		Path:    path,
		Code:    materia.CodeDuplicateKey,
		Message: i18n.T(materia.CodeDuplicateKey, map[string]string{"key": key}),
		Params:  map[string]any{"key": key},
	})
}

func (c *collector) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	return c.issues
}

func parseError(err error) error {
	return materia.Issues{{Path: "/", Code: materia.CodeParseError, Message: err.Error()}}
}
