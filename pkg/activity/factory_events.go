package activity

import (
	"strings"
	"time"
)

const (
	VerbBuilt   = "factory.built"
	VerbCreated = "factory.created"
	VerbStubbed = "factory.stubbed"
)

// InstanceEventInput describes the fields shared by instance lifecycle events.
type InstanceEventInput struct {
	ActorID    string
	TenantID   string
	Factory    string
	InstanceID string
	Strategy   string
	Traits     []string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildInstanceBuiltEvent describes an instance produced by the build strategy.
func BuildInstanceBuiltEvent(input InstanceEventInput) Event {
	return buildInstanceEvent(VerbBuilt, input)
}

// BuildInstanceCreatedEvent describes an instance persisted by the create strategy.
func BuildInstanceCreatedEvent(input InstanceEventInput) Event {
	return buildInstanceEvent(VerbCreated, input)
}

// BuildInstanceStubbedEvent describes a stubbed, never persisted instance.
func BuildInstanceStubbedEvent(input InstanceEventInput) Event {
	return buildInstanceEvent(VerbStubbed, input)
}

// BuildStrategyEvent picks the verb matching strategy. ok is false for
// strategies that do not produce instances.
func BuildStrategyEvent(strategy string, input InstanceEventInput) (Event, bool) {
	input.Strategy = strategy
	switch strategy {
	case "build":
		return BuildInstanceBuiltEvent(input), true
	case "create":
		return BuildInstanceCreatedEvent(input), true
	case "build_stubbed":
		return BuildInstanceStubbedEvent(input), true
	default:
		return Event{}, false
	}
}

func buildInstanceEvent(verb string, input InstanceEventInput) Event {
	metadata := cloneMap(input.Metadata)
	factory := strings.TrimSpace(input.Factory)
	if factory != "" {
		metadata = ensureMetadata(metadata)
		metadata["factory"] = factory
	}
	if len(input.Traits) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["traits"] = append([]string{}, input.Traits...)
	}

	objectType := factory
	if objectType == "" {
		objectType = "factory"
	}
	objectID := strings.TrimSpace(input.InstanceID)
	if objectID == "" {
		objectID = objectType
	}

	var traits []string
	if len(input.Traits) > 0 {
		traits = append([]string{}, input.Traits...)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Strategy:   strings.TrimSpace(input.Strategy),
		Traits:     traits,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
