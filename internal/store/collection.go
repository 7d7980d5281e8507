package store

import "slices"

// collection is an insertion-ordered map of records keyed by ID.
type collection[T any] struct {
	items []*T
	ids   []string
	index map[string]*T
}

func (c *collection[T]) init() {
	c.items = nil
	c.ids = nil
	c.index = make(map[string]*T)
}

func (c *collection[T]) len() int {
	return len(c.items)
}

func (c *collection[T]) has(id string) bool {
	_, ok := c.index[id]
	return ok
}

func (c *collection[T]) get(id string) (*T, bool) {
	v, ok := c.index[id]
	return v, ok
}

func (c *collection[T]) add(id string, v *T) {
	c.items = append(c.items, v)
	c.ids = append(c.ids, id)
	c.index[id] = v
}

func (c *collection[T]) remove(id string) bool {
	if _, ok := c.index[id]; !ok {
		return false
	}
	delete(c.index, id)
	idx := slices.Index(c.ids, id)
	c.ids = slices.Delete(c.ids, idx, idx+1)
	c.items = slices.Delete(c.items, idx, idx+1)
	return true
}

func (c *collection[T]) snapshot(clone func(*T) *T) []*T {
	out := make([]*T, 0, len(c.items))
	for _, v := range c.items {
		out = append(out, clone(v))
	}
	return out
}

func (c *collection[T]) clone(clone func(*T) *T) collection[T] {
	out := collection[T]{}
	out.init()
	for i, v := range c.items {
		out.add(c.ids[i], clone(v))
	}
	return out
}
