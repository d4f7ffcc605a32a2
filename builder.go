package materia

import (
	"errors"
	"fmt"
	"strings"
)

// Type is a named record type: an ordered list of declared properties.
// A Type is immutable once built.
type Type struct {
	name   string
	fields []Descriptor
	index  map[string]int
}

// Name returns the type name used for registry lookups and nested references.
func (t *Type) Name() string { return t.name }

// Fields returns property names in declaration order.
func (t *Type) Fields() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.Name
	}
	return out
}

// Has reports whether the type declares name.
func (t *Type) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Type) String() string { return t.name }

// TypeBuilder declares a record type field by field.
type TypeBuilder struct {
	name   string
	fields []Descriptor
	index  map[string]int
	errs   []error
}

// FieldStep configures the most recently declared field.
type FieldStep struct {
	b   *TypeBuilder
	idx int
}

// Define starts a record type declaration.
func Define(name string) *TypeBuilder {
	return &TypeBuilder{name: name, index: map[string]int{}}
}

// Field declares a property. Fields are optional unless marked Required.
func (b *TypeBuilder) Field(name string, t DeclaredType) *FieldStep {
	if name == "" {
		b.errs = append(b.errs, errors.New("materia: empty field name"))
	}
	if _, dup := b.index[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("materia: duplicate field %q in %s", name, b.name))
	}
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, Descriptor{Name: name, Type: t})
	return &FieldStep{b: b, idx: len(b.fields) - 1}
}

// Build validates the declaration and returns the Type.
func (b *TypeBuilder) Build() (*Type, error) {
	if strings.TrimSpace(b.name) == "" {
		return nil, errors.New("materia: empty type name")
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	fields := make([]Descriptor, len(b.fields))
	copy(fields, b.fields)
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &Type{name: b.name, fields: fields, index: index}, nil
}

// MustBuild is like Build but panics on error.
func (b *TypeBuilder) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (f *FieldStep) d() *Descriptor { return &f.b.fields[f.idx] }

// Required marks the field as required.
func (f *FieldStep) Required() *FieldStep { f.d().Required = true; return f }

// Optional marks the field as optional (default).
func (f *FieldStep) Optional() *FieldStep { f.d().Required = false; return f }

// Nullable lets a required field hold nil.
func (f *FieldStep) Nullable() *FieldStep { f.d().Nullable = true; return f }

// Default sets the value assigned when the field is absent from the input.
func (f *FieldStep) Default(v any) *FieldStep { f.d().Default = v; return f }

// Validate appends a rule fragment ("min:3|max:120").
func (f *FieldStep) Validate(rule string) *FieldStep {
	d := f.d()
	if d.Validation == "" {
		d.Validation = rule
	} else {
		d.Validation += "|" + rule
	}
	return f
}

// Cast overrides the inferred cast kind.
func (f *FieldStep) Cast(kind string) *FieldStep {
	d := f.d()
	d.Cast = kind
	d.explicitCast = true
	return f
}

// Ref names the referenced record or enum type.
func (f *FieldStep) Ref(typeName string) *FieldStep { f.d().Nested = typeName; return f }

// Many marks the field as a collection of nested records.
func (f *FieldStep) Many() *FieldStep { f.d().Collection = true; return f }

// Format sets the Go time layout used to externalize dates.
func (f *FieldStep) Format(layout string) *FieldStep { f.d().Format = layout; return f }

// Timezone sets the IANA zone dates are interpreted and displayed in.
func (f *FieldStep) Timezone(tz string) *FieldStep { f.d().Timezone = tz; return f }

// Transform appends transformer references. Each argument is an identifier
// string, a TransformerRef, or a live transformer instance.
func (f *FieldStep) Transform(refs ...any) *FieldStep {
	d := f.d()
	for _, r := range refs {
		switch v := r.(type) {
		case nil:
			f.b.errs = append(f.b.errs, fmt.Errorf("materia: nil transformer on %s.%s", f.b.name, d.Name))
		case string:
			d.Transforms = append(d.Transforms, Ref(v))
		case TransformerRef:
			d.Transforms = append(d.Transforms, v)
		default:
			d.Transforms = append(d.Transforms, Use(v))
		}
	}
	return f
}

// Field declares the next field.
func (f *FieldStep) Field(name string, t DeclaredType) *FieldStep { return f.b.Field(name, t) }

// Build finishes the declaration.
func (f *FieldStep) Build() (*Type, error) { return f.b.Build() }

// MustBuild finishes the declaration, panicking on error.
func (f *FieldStep) MustBuild() *Type { return f.b.MustBuild() }
