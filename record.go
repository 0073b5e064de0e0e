package factory

import (
	"encoding/json"
	"fmt"
)

// Record is the instance built when a factory declares neither a model nor
// a constructor. It keeps attributes in plan order.
type Record struct {
	factory   string
	id        string
	names     []string
	values    map[string]any
	persisted bool
	stubbed   bool
}

// NewRecord returns an empty record for factory.
func NewRecord(factory string) *Record {
	return &Record{factory: factory, values: map[string]any{}}
}

// Factory returns the factory that built the record.
func (r *Record) Factory() string { return r.factory }

// Get returns the value of name, nil when unset.
func (r *Record) Get(name string) any { return r.values[name] }

// Lookup returns the value of name and whether it is set.
func (r *Record) Lookup(name string) (any, bool) {
	value, ok := r.values[name]
	return value, ok
}

// String returns name formatted as a string, "" when unset.
func (r *Record) String(name string) string {
	value, ok := r.values[name]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprint(value)
}

// Set assigns name, appending it when new.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = map[string]any{}
	}
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// SetAttribute implements AttributeSetter.
func (r *Record) SetAttribute(name string, value any) error {
	r.Set(name, value)
	return nil
}

// Names returns attribute names in assignment order.
func (r *Record) Names() []string { return append([]string(nil), r.names...) }

// Map returns a copy of the attributes.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for name, value := range r.values {
		out[name] = value
	}
	return out
}

// MarshalJSON encodes the attributes as an object. Nested records encode
// the same way.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// ID returns the identifier assigned by persistence or stubbing.
func (r *Record) ID() string { return r.id }

// SetID records id and mirrors it into the "id" attribute.
func (r *Record) SetID(id string) {
	r.id = id
	r.Set("id", id)
}

// Persisted reports whether the create strategy saved the record.
func (r *Record) Persisted() bool { return r.persisted }

// Stubbed reports whether the record came from BuildStubbed.
func (r *Record) Stubbed() bool { return r.stubbed }

// MarkPersisted flags the record as saved.
func (r *Record) MarkPersisted() { r.persisted = true }

func (r *Record) markStubbed() { r.stubbed = true }
