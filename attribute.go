package factory

import (
	"sync/atomic"

	"github.com/goliatone/go-factory/layering"
)

// Compute lazily produces an attribute value. It can read sibling attributes
// through the evaluation.
type Compute func(e *Evaluation) (any, error)

// AttributeKind identifies how an attribute produces its value.
type AttributeKind int

const (
	KindValue AttributeKind = iota
	KindDynamic
	KindExpression
	KindSequence
	KindAssociation
)

func (k AttributeKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindDynamic:
		return "dynamic"
	case KindExpression:
		return "expression"
	case KindSequence:
		return "sequence"
	case KindAssociation:
		return "association"
	default:
		return "unknown"
	}
}

// Attribute is one named declaration. It is immutable once declared and can
// be shared by any number of plans.
type Attribute struct {
	name      string
	kind      AttributeKind
	value     any
	clone     bool
	compute   Compute
	expr      string
	sequence  *sequence
	assoc     *association
	transient bool
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Kind returns the attribute source kind.
func (a *Attribute) Kind() AttributeKind { return a.kind }

// Transient reports whether the attribute is hidden from construction.
func (a *Attribute) Transient() bool { return a.transient }

// Expression returns the source of an expression attribute.
func (a *Attribute) Expression() string { return a.expr }

func (a *Attribute) withTransient(transient bool) *Attribute {
	if a.transient == transient {
		return a
	}
	clone := *a
	clone.transient = transient
	return &clone
}

func (a *Attribute) resolve(e *Evaluation) (any, error) {
	switch a.kind {
	case KindValue:
		if a.clone {
			return layering.CloneAny(a.value), nil
		}
		return a.value, nil
	case KindDynamic:
		return a.compute(e)
	case KindExpression:
		return e.evaluateExpression(a)
	case KindSequence:
		return a.sequence.next(e)
	case KindAssociation:
		return e.Associate(a.assoc.factory, a.assoc.args...)
	default:
		return nil, nil
	}
}

func valueAttribute(name string, value any) *Attribute {
	return &Attribute{name: name, kind: KindValue, value: value, clone: true}
}

func computeAttribute(name string, fn Compute) *Attribute {
	return &Attribute{name: name, kind: KindDynamic, compute: fn}
}

// overrideAttribute builds the attribute for an inline override. Caller
// values are used as given so instances passed in keep their identity.
func overrideAttribute(name string, value any) *Attribute {
	switch fn := value.(type) {
	case Compute:
		if fn != nil {
			return computeAttribute(name, fn)
		}
	case func(*Evaluation) (any, error):
		if fn != nil {
			return computeAttribute(name, fn)
		}
	}
	return &Attribute{name: name, kind: KindValue, value: value}
}

type sequence struct {
	counter atomic.Int64
	format  func(n int) any
}

func (s *sequence) next(_ *Evaluation) (any, error) {
	n := s.counter.Add(1)
	if s.format == nil {
		return int(n), nil
	}
	return s.format(int(n)), nil
}

type association struct {
	factory any
	args    []any
}
