package materia

import "strings"

// DeriveRules builds the validation rule string of every property:
// "required" (required without a default) or "nullable", then the primitive
// type rule, then the custom fragment, joined with "|". Dates, enums, nested
// records and untyped properties carry no type rule.
func DeriveRules(ds *Descriptors) map[string]string {
	out := make(map[string]string, ds.Len())
	for _, d := range ds.order {
		out[d.Name] = deriveRule(d)
	}
	return out
}

func deriveRule(d *Descriptor) string {
	parts := make([]string, 0, 3)
	if d.Required && !d.HasDefault() {
		parts = append(parts, "required")
	} else {
		parts = append(parts, "nullable")
	}
	if r := typeRule(d.Type); r != "" {
		parts = append(parts, r)
	}
	if frag := strings.Trim(strings.TrimSpace(d.Validation), "|"); frag != "" {
		parts = append(parts, frag)
	}
	return strings.Join(parts, "|")
}

func typeRule(t DeclaredType) string {
	switch t {
	case String:
		return "string"
	case Int:
		return "integer"
	case Float:
		return "numeric"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	}
	return ""
}
