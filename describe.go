package factory

import "fmt"

// AttributeDescriptor describes one effective attribute of a plan.
type AttributeDescriptor struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Type       string `json:"type,omitempty"`
	Origin     string `json:"origin"`
	OriginKind string `json:"origin_kind"`
	Transient  bool   `json:"transient,omitempty"`
}

// Descriptors lists the effective attributes in evaluation order. Type is
// inferred for literal values only.
func (p *Plan) Descriptors() []AttributeDescriptor {
	names := p.attributes.Names()
	descriptors := make([]AttributeDescriptor, 0, len(names))
	for _, name := range names {
		attr, _ := p.attributes.Lookup(name)
		descriptor := AttributeDescriptor{
			Name:      name,
			Kind:      attr.kind.String(),
			Transient: attr.transient,
		}
		if attr.kind == KindValue {
			descriptor.Type = typeName(attr.value)
		}
		if layer, ok := p.layerAt(p.attributes.origin(name)); ok {
			descriptor.Origin = layer.Name
			descriptor.OriginKind = layer.Kind.String()
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}
