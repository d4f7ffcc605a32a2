package materia

// Descriptor is the static metadata of one property. Descriptors handed out by
// a Registry are shared and must be treated as read-only.
type Descriptor struct {
	Name     string
	Type     DeclaredType
	Required bool
	// Nullable lets a required property hold nil.
	Nullable bool
	// Default is assigned when the property is absent from the input; nil
	// means no default.
	Default any
	// Validation is a custom rule fragment appended to the derived rules
	// (for example "min:3|max:120").
	Validation string
	// Cast is the cast kind used to pick a caster; CastNone means passthrough.
	Cast string
	// Nested names the referenced record or enum type.
	Nested     string
	Collection bool
	// Format is a Go time layout used to externalize dates.
	Format   string
	Timezone string
	// Transforms run in declaration order.
	Transforms []TransformerRef

	explicitCast bool
}

// HasDefault reports whether a default value is configured.
func (d *Descriptor) HasDefault() bool { return d.Default != nil }

// AcceptsNull reports whether nil is a legal materialized value.
func (d *Descriptor) AcceptsNull() bool { return !d.Required || d.Nullable }

// ExplicitCast reports whether Cast was set explicitly rather than inferred.
func (d *Descriptor) ExplicitCast() bool { return d.explicitCast }

// Descriptors is the immutable, described property set of a record type.
type Descriptors struct {
	typ    *Type
	order  []*Descriptor
	byName map[string]*Descriptor
}

// Type returns the described record type.
func (ds *Descriptors) Type() *Type { return ds.typ }

// Get returns the descriptor of name.
func (ds *Descriptors) Get(name string) (*Descriptor, bool) {
	d, ok := ds.byName[name]
	return d, ok
}

// All returns descriptors in declaration order.
func (ds *Descriptors) All() []*Descriptor {
	out := make([]*Descriptor, len(ds.order))
	copy(out, ds.order)
	return out
}

// Names returns property names in declaration order.
func (ds *Descriptors) Names() []string {
	out := make([]string, len(ds.order))
	for i, d := range ds.order {
		out[i] = d.Name
	}
	return out
}

// Map returns the name -> descriptor view.
func (ds *Descriptors) Map() map[string]*Descriptor {
	out := make(map[string]*Descriptor, len(ds.byName))
	for k, v := range ds.byName {
		out[k] = v
	}
	return out
}

// Len returns the number of properties.
func (ds *Descriptors) Len() int { return len(ds.order) }
