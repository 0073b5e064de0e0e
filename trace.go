package factory

import (
	"encoding/json"
)

// Trace captures provenance for one attribute across the plan layers that
// declared it, lowest precedence first.
type Trace struct {
	Attribute string       `json:"attribute"`
	Layers    []Provenance `json:"layers"`
}

// Provenance details how a specific layer contributed to a traced attribute.
type Provenance struct {
	Index     int    `json:"index"`
	Kind      string `json:"kind"`
	Layer     string `json:"layer"`
	Source    string `json:"source"`
	Value     any    `json:"value,omitempty"`
	Effective bool   `json:"effective"`
}

// Found reports whether any layer declared the attribute.
func (t Trace) Found() bool {
	return len(t.Layers) > 0
}

// Effective returns the winning layer.
func (t Trace) Effective() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Effective {
			return layer, true
		}
	}
	return Provenance{}, false
}

// Trace reports every layer declaring name. Literal values are included;
// computed values are not evaluated.
func (p *Plan) Trace(name string) Trace {
	trace := Trace{Attribute: name, Layers: []Provenance{}}
	winner := p.attributes.origin(name)
	for _, layer := range p.layers {
		attr, ok := layer.attributes.Lookup(name)
		if !ok {
			continue
		}
		entry := Provenance{
			Index:     layer.Index,
			Kind:      layer.Kind.String(),
			Layer:     layer.Name,
			Source:    attr.kind.String(),
			Effective: layer.Index == winner,
		}
		switch attr.kind {
		case KindValue:
			entry.Value = attr.value
		case KindExpression:
			entry.Value = attr.expr
		}
		trace.Layers = append(trace.Layers, entry)
	}
	return trace
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
