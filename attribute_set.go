package factory

// AttributeSet is an ordered collection of attribute declarations.
// Re-declaring a name replaces the earlier declaration in place.
type AttributeSet struct {
	order   []string
	attrs   map[string]*Attribute
	origins map[string]int
}

// NewAttributeSet returns an empty set.
func NewAttributeSet() *AttributeSet {
	return &AttributeSet{attrs: map[string]*Attribute{}}
}

// Declare adds or replaces a computed attribute.
func (s *AttributeSet) Declare(name string, fn Compute) *AttributeSet {
	if fn == nil {
		return s.DeclareValue(name, nil)
	}
	s.set(computeAttribute(name, fn))
	return s
}

// DeclareValue adds or replaces a literal attribute. The value is deep
// copied for every evaluation.
func (s *AttributeSet) DeclareValue(name string, value any) *AttributeSet {
	s.set(valueAttribute(name, value))
	return s
}

func (s *AttributeSet) set(attr *Attribute) {
	if s.attrs == nil {
		s.attrs = map[string]*Attribute{}
	}
	if _, exists := s.attrs[attr.name]; !exists {
		s.order = append(s.order, attr.name)
	}
	s.attrs[attr.name] = attr
}

// Lookup returns the declaration for name.
func (s *AttributeSet) Lookup(name string) (*Attribute, bool) {
	if s == nil {
		return nil, false
	}
	attr, ok := s.attrs[name]
	return attr, ok
}

// Names returns attribute names in declaration order.
func (s *AttributeSet) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Len returns the number of declared attributes.
func (s *AttributeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// MergeOver returns a new set holding other's declarations followed by this
// set's. A name present in both keeps this set's declaration, positioned
// with this set's declarations. Neither input is modified.
func (s *AttributeSet) MergeOver(other *AttributeSet) *AttributeSet {
	merged := &AttributeSet{
		order:   make([]string, 0, s.Len()+other.Len()),
		attrs:   make(map[string]*Attribute, s.Len()+other.Len()),
		origins: map[string]int{},
	}
	if other != nil {
		for _, name := range other.order {
			if _, shadowed := s.Lookup(name); shadowed {
				continue
			}
			merged.order = append(merged.order, name)
			merged.attrs[name] = other.attrs[name]
			if origin, ok := other.origins[name]; ok {
				merged.origins[name] = origin
			}
		}
	}
	if s != nil {
		for _, name := range s.order {
			merged.order = append(merged.order, name)
			merged.attrs[name] = s.attrs[name]
			if origin, ok := s.origins[name]; ok {
				merged.origins[name] = origin
			}
		}
	}
	return merged
}

// Clone returns a copy that can be modified independently.
func (s *AttributeSet) Clone() *AttributeSet {
	return s.MergeOver(nil)
}

// origin returns the index of the layer that contributed name, or -1.
func (s *AttributeSet) origin(name string) int {
	if s == nil {
		return -1
	}
	if idx, ok := s.origins[name]; ok {
		return idx
	}
	return -1
}

func (s *AttributeSet) withOrigin(layer int) *AttributeSet {
	clone := s.Clone()
	for _, name := range clone.order {
		clone.origins[name] = layer
	}
	return clone
}
