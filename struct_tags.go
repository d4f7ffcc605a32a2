package materia

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// TagName is the struct tag read by Registry.TypeOf and Record.Bind.
const TagName = "materia"

var (
	timeType    = reflect.TypeOf(time.Time{})
	enumType    = reflect.TypeOf(EnumCase{})
	recordType  = reflect.TypeOf(&Record{})
	recordsType = reflect.TypeOf([]*Record{})
)

// ResolveStructKey resolves the property name of a struct field.
// Priority: materia:"name=..." > json tag name > field name; "-" disables the field.
func ResolveStructKey(sf reflect.StructField) string {
	if mt, ok := sf.Tag.Lookup(TagName); ok {
		if mt == "-" {
			return "-"
		}
		for _, p := range strings.Split(mt, ";") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "name=") {
				return strings.TrimPrefix(p, "name=")
			}
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			if i == 0 {
				return sf.Name
			}
			return jt[:i]
		}
		return jt
	}
	return sf.Name
}

// TypeOf declares and registers a record type from a struct type. Each
// exported field becomes a property; options come from the materia tag, a
// semicolon separated list such as
//
//	`materia:"name=title;required;validate=min:3|max:120;transform=trim"`
//
// Recognized keys: name, type, required, nullable, default, validate, cast,
// ref, format, tz, transform (comma separated identifiers). The declared type
// is inferred from the Go type unless set with type=. Nested struct fields
// are introspected recursively and referenced by their struct name. The
// result is cached per struct type.
func (r *Registry) TypeOf(rt reflect.Type) (*Type, error) {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("materia: TypeOf requires a struct, got %s", rt)
	}
	if t, ok := r.structs.Load(rt); ok {
		return t.(*Type), nil
	}
	r.structMu.Lock()
	defer r.structMu.Unlock()
	return r.typeOfLocked(rt, map[reflect.Type]bool{})
}

// TypeFor is TypeOf for the type parameter T.
func TypeFor[T any](r *Registry) (*Type, error) {
	return r.TypeOf(reflect.TypeOf((*T)(nil)).Elem())
}

func (r *Registry) typeOfLocked(rt reflect.Type, building map[reflect.Type]bool) (*Type, error) {
	if t, ok := r.structs.Load(rt); ok {
		return t.(*Type), nil
	}
	building[rt] = true
	b := Define(rt.Name())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := ResolveStructKey(sf)
		if name == "-" || name == "" {
			continue
		}
		dt, ref, elem := inferDeclared(sf.Type)
		step := b.Field(name, dt)
		if ref != "" {
			step.Ref(ref)
		}
		if err := applyTag(step, sf.Tag.Get(TagName)); err != nil {
			return nil, fmt.Errorf("materia: %s.%s: %w", rt.Name(), sf.Name, err)
		}
		if elem != nil && !building[elem] {
			if _, err := r.typeOfLocked(elem, building); err != nil {
				return nil, err
			}
		}
	}
	t, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := r.Register(t); err != nil {
		return nil, err
	}
	r.structs.Store(rt, t)
	return t, nil
}

// inferDeclared maps a Go type to a declared type. For struct-valued fields
// it returns the referenced type name and the struct type to introspect.
func inferDeclared(ft reflect.Type) (DeclaredType, string, reflect.Type) {
	switch ft {
	case timeType, reflect.PointerTo(timeType):
		return Date, "", nil
	case enumType:
		return EnumType, "", nil
	case recordType:
		return Nested, "", nil
	case recordsType:
		return Collection, "", nil
	}
	base := ft
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.String:
		return String, "", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int, "", nil
	case reflect.Float32, reflect.Float64:
		return Float, "", nil
	case reflect.Bool:
		return Bool, "", nil
	case reflect.Struct:
		return Nested, base.Name(), base
	case reflect.Slice, reflect.Array:
		el := base.Elem()
		for el.Kind() == reflect.Pointer {
			el = el.Elem()
		}
		if el.Kind() == reflect.Struct && el != timeType && el != enumType {
			return Collection, el.Name(), el
		}
		return Array, "", nil
	case reflect.Map:
		return Array, "", nil
	}
	return Any, "", nil
}

func applyTag(step *FieldStep, tag string) error {
	if tag == "" {
		return nil
	}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, _ := strings.Cut(part, "=")
		switch strings.TrimSpace(key) {
		case "name":
		case "type":
			step.d().Type = DeclaredType(val)
		case "required":
			step.Required()
		case "nullable":
			step.Nullable()
		case "default":
			step.Default(val)
		case "validate":
			step.Validate(val)
		case "cast":
			step.Cast(val)
		case "ref":
			step.Ref(val)
		case "format":
			step.Format(val)
		case "tz":
			step.Timezone(val)
		case "transform":
			for _, id := range strings.Split(val, ",") {
				if id = strings.TrimSpace(id); id != "" {
					step.Transform(id)
				}
			}
		default:
			return fmt.Errorf("unknown tag option %q", key)
		}
	}
	return nil
}

// Bind copies the record's materialized values into the struct pointed to by
// dst, matching fields by ResolveStructKey. Nested records bind into struct
// fields recursively; enum cases bind into string fields by name.
func (r *Record) Bind(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("materia: Bind requires a non-nil struct pointer, got %T", dst)
	}
	return r.bindValue(rv.Elem(), "")
}

func (r *Record) bindValue(sv reflect.Value, prefix string) error {
	if sv.Kind() != reflect.Struct {
		return fmt.Errorf("materia: Bind target %s is not a struct", sv.Type())
	}
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := ResolveStructKey(sf)
		if name == "-" || name == "" {
			continue
		}
		val, ok := r.values[name]
		if !ok {
			continue
		}
		if err := assign(sv.Field(i), val, prefix+Pointer(name)); err != nil {
			return err
		}
	}
	return nil
}

func assign(fv reflect.Value, val any, path string) error {
	if val == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	vv := reflect.ValueOf(val)
	switch {
	case vv.Type().AssignableTo(fv.Type()):
		fv.Set(vv)
		return nil
	case fv.Kind() == reflect.Pointer && vv.Type().AssignableTo(fv.Type().Elem()):
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(vv)
		fv.Set(p)
		return nil
	}
	switch x := val.(type) {
	case EnumCase:
		if fv.Kind() == reflect.String {
			fv.SetString(x.Name)
			return nil
		}
	case *Record:
		target := fv
		if fv.Kind() == reflect.Pointer {
			target = reflect.New(fv.Type().Elem())
			fv.Set(target)
			target = target.Elem()
		}
		return x.bindValue(target, path)
	case []*Record:
		if fv.Kind() == reflect.Slice {
			out := reflect.MakeSlice(fv.Type(), len(x), len(x))
			for i, child := range x {
				if err := assign(out.Index(i), child, fmt.Sprintf("%s/%d", path, i)); err != nil {
					return err
				}
			}
			fv.Set(out)
			return nil
		}
	}
	if fv.Kind() == reflect.Slice && vv.Kind() == reflect.Slice {
		out := reflect.MakeSlice(fv.Type(), vv.Len(), vv.Len())
		for i := 0; i < vv.Len(); i++ {
			if err := assign(out.Index(i), vv.Index(i).Interface(), fmt.Sprintf("%s/%d", path, i)); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil
	}
	if vv.Type().ConvertibleTo(fv.Type()) && (vv.Kind() == reflect.String) == (fv.Kind() == reflect.String) {
		fv.Set(vv.Convert(fv.Type()))
		return nil
	}
	return Issues{{Path: path, Code: CodeInvalidType, Message: fmt.Sprintf("cannot bind %s into %s", ValueKind(val), fv.Type())}}
}
