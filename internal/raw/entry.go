package raw

import (
	"encoding/json"
	"maps"
	"slices"
)

// EntryFactory produces an entry from a list of modules that must be loaded
// ahead of every entry point.
type EntryFactory func(prepend []string) Entry

// Entry is one of three shapes: a named map of entry points, a factory, or a
// bare module list. At most one of Named, Factory and List is meaningful; the
// first non-empty one in that order wins.
type Entry struct {
	Named   map[string][]string
	Factory EntryFactory
	List    []string
}

// NamedEntry builds a single-key named entry.
func NamedEntry(name string, modules ...string) Entry {
	return Entry{Named: map[string][]string{name: modules}}
}

// IsZero reports whether no shape is set.
func (e Entry) IsZero() bool {
	return len(e.Named) == 0 && e.Factory == nil && len(e.List) == 0
}

// Prepend returns an entry where modules load before every entry point,
// handling each shape on its own terms.
func (e Entry) Prepend(modules []string) Entry {
	switch {
	case len(e.Named) > 0:
		named := make(map[string][]string, len(e.Named))
		for k, v := range e.Named {
			named[k] = append(slices.Clone(modules), v...)
		}
		return Entry{Named: named}
	case e.Factory != nil:
		return e.Factory(slices.Clone(modules))
	default:
		return Entry{List: append(slices.Clone(modules), e.List...)}
	}
}

// Materialize resolves a factory entry into a concrete shape.
func (e Entry) Materialize() Entry {
	if len(e.Named) == 0 && e.Factory != nil {
		return e.Factory(nil).Materialize()
	}
	return e
}

// Clone returns a deep copy. The factory is shared.
func (e Entry) Clone() Entry {
	out := Entry{Factory: e.Factory, List: slices.Clone(e.List)}
	if e.Named != nil {
		out.Named = make(map[string][]string, len(e.Named))
		for k, v := range e.Named {
			out.Named[k] = slices.Clone(v)
		}
	}
	return out
}

// Names returns the sorted entry point names of a named entry.
func (e Entry) Names() []string {
	return slices.Sorted(maps.Keys(e.Named))
}

// MarshalJSON encodes a named entry as an object and a list as an array.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := e.Materialize()
	if len(m.Named) > 0 {
		return json.Marshal(m.Named)
	}
	if m.List == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.List)
}
