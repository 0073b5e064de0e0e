// Package usersink forwards factory activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts factory activity events to a go-users ActivitySink. Only
// verbs listed in Verbs are forwarded; an empty list forwards everything.
type Hook struct {
	Sink  usertypes.ActivitySink
	Verbs []string
	// Tenant is used when the event carries no tenant.
	Tenant uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !h.accepts(event.Verb) {
		return nil
	}
	record, ok := ToRecord(event)
	if !ok {
		return nil
	}
	if record.TenantID == uuid.Nil {
		record.TenantID = h.Tenant
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, record)
}

func (h Hook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	verb = strings.TrimSpace(verb)
	for _, allowed := range h.Verbs {
		if allowed == verb {
			return true
		}
	}
	return false
}

// ToRecord converts an event into an ActivityRecord. The factory name is
// the object type and the instance id the object id; strategy and traits
// are folded into Data. ok is false when the event lacks a verb or object.
func ToRecord(event activity.Event) (usertypes.ActivityRecord, bool) {
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return usertypes.ActivityRecord{}, false
	}

	data := map[string]any{}
	for key, value := range normalized.Metadata {
		data[key] = value
	}
	if normalized.Strategy != "" {
		data["strategy"] = normalized.Strategy
	}
	if len(normalized.Traits) > 0 {
		data["traits"] = normalized.Traits
	}
	if len(data) == 0 {
		data = nil
	}

	occurredAt := normalized.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: occurredAt,
	}, true
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
