package materia

import "strings"

// Presence is the bit set recorded for each property of a materialized record.
type Presence uint8

const (
	PresenceSeen           Presence = 1 << iota // Property appeared in the input.
	PresenceWasNull                             // Input value was null.
	PresenceDefaultApplied                      // Default value was applied.
	PresenceDerived                             // A context-dependent transform changed the value.
)

// Has reports whether every bit of flag is set.
func (p Presence) Has(flag Presence) bool { return p&flag == flag }

func (p Presence) String() string {
	if p == 0 {
		return "none"
	}
	var parts []string
	if p.Has(PresenceSeen) {
		parts = append(parts, "seen")
	}
	if p.Has(PresenceWasNull) {
		parts = append(parts, "null")
	}
	if p.Has(PresenceDefaultApplied) {
		parts = append(parts, "default")
	}
	if p.Has(PresenceDerived) {
		parts = append(parts, "derived")
	}
	return strings.Join(parts, "|")
}

// PresenceMap maps JSON Pointers ("/title") to Presence flags.
type PresenceMap map[string]Presence

// Pointer renders a property name as a JSON Pointer.
func Pointer(name string) string {
	name = strings.ReplaceAll(name, "~", "~0")
	return "/" + strings.ReplaceAll(name, "/", "~1")
}

// Mark ORs flag into the entry of property name.
func (pm PresenceMap) Mark(name string, flag Presence) { pm[Pointer(name)] |= flag }

// Of returns the flags of property name.
func (pm PresenceMap) Of(name string) Presence { return pm[Pointer(name)] }

// clone copies pm; nil stays nil.
func (pm PresenceMap) clone() PresenceMap {
	if pm == nil {
		return nil
	}
	out := make(PresenceMap, len(pm))
	for k, v := range pm {
		out[k] = v
	}
	return out
}
