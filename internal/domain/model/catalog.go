package model

// Catalog is an insertion-ordered tag catalog keyed by full tag name.
// It is not safe for concurrent mutation; callers build it once at load time.
type Catalog struct {
	keys []string
	defs map[string]TagDefinition
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]TagDefinition)}
}

// Set stores def under name. A new name is appended to the iteration order;
// an existing name keeps its position. The zero Catalog is ready to use.
func (c *Catalog) Set(name string, def TagDefinition) {
	if c.defs == nil {
		c.defs = make(map[string]TagDefinition)
	}
	if _, ok := c.defs[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.defs[name] = def
}

// Get looks up a definition by full name.
func (c *Catalog) Get(name string) (TagDefinition, bool) {
	if c == nil {
		return TagDefinition{}, false
	}
	def, ok := c.defs[name]
	return def, ok
}

// Keys returns the full names in insertion order.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Each calls fn for every entry in insertion order until fn returns false.
func (c *Catalog) Each(fn func(name string, def TagDefinition) bool) {
	if c == nil {
		return
	}
	for _, k := range c.keys {
		if !fn(k, c.defs[k]) {
			return
		}
	}
}
