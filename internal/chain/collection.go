package chain

import "slices"

// collection is an ordered, name-addressable set of nodes. Lookups create the
// node on first access so later callbacks can modify what earlier ones added.
type collection[T any] struct {
	keys  []string
	items map[string]*T
}

func (c *collection[T]) getOrCreate(name string, create func() *T) *T {
	if item, ok := c.items[name]; ok {
		return item
	}
	if c.items == nil {
		c.items = make(map[string]*T)
	}
	item := create()
	c.items[name] = item
	c.keys = append(c.keys, name)
	return item
}

func (c *collection[T]) has(name string) bool {
	_, ok := c.items[name]
	return ok
}

func (c *collection[T]) get(name string) (*T, bool) {
	item, ok := c.items[name]
	return item, ok
}

func (c *collection[T]) remove(name string) {
	if _, ok := c.items[name]; !ok {
		return
	}
	delete(c.items, name)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == name })
}

func (c *collection[T]) names() []string {
	return slices.Clone(c.keys)
}

func (c *collection[T]) values() []*T {
	out := make([]*T, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

func (c *collection[T]) clone(copyItem func(*T) *T) collection[T] {
	out := collection[T]{keys: slices.Clone(c.keys)}
	if c.items != nil {
		out.items = make(map[string]*T, len(c.items))
		for k, v := range c.items {
			out.items[k] = copyItem(v)
		}
	}
	return out
}

// StringSet is an ordered set of strings.
type StringSet struct {
	values []string
}

// Add appends v unless it is already present.
func (s *StringSet) Add(v string) *StringSet {
	if !slices.Contains(s.values, v) {
		s.values = append(s.values, v)
	}
	return s
}

// Merge adds every value in order.
func (s *StringSet) Merge(values []string) *StringSet {
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Prepend moves v to the front.
func (s *StringSet) Prepend(v string) *StringSet {
	s.Delete(v)
	s.values = append([]string{v}, s.values...)
	return s
}

// Delete removes v.
func (s *StringSet) Delete(v string) *StringSet {
	s.values = slices.DeleteFunc(s.values, func(x string) bool { return x == v })
	return s
}

// Clear removes every value.
func (s *StringSet) Clear() *StringSet {
	s.values = nil
	return s
}

// Has reports whether v is present.
func (s *StringSet) Has(v string) bool { return slices.Contains(s.values, v) }

// Values returns a copy of the values in order.
func (s *StringSet) Values() []string { return slices.Clone(s.values) }

func (s *StringSet) clone() *StringSet {
	return &StringSet{values: slices.Clone(s.values)}
}
