package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()
	objectID := uuid.New().String()

	event := activity.BuildInstanceCreatedEvent(activity.InstanceEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		Factory:    "user",
		InstanceID: objectID,
		Strategy:   "create",
		Traits:     []string{"admin", "female"},
		Channel:    "factory",
		Metadata:   map[string]any{"seed": "fixtures"},
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbCreated || record.ObjectType != "user" || record.ObjectID != objectID {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "factory" {
		t.Fatalf("expected channel factory got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["strategy"] != "create" {
		t.Fatalf("expected strategy metadata got %v", record.Data["strategy"])
	}
	if record.Data["seed"] != "fixtures" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["seed"])
	}
	traits, ok := record.Data["traits"].([]string)
	if !ok || len(traits) != 2 || traits[0] != "admin" {
		t.Fatalf("expected traits metadata got %v", record.Data["traits"])
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestamp(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbBuilt,
		ObjectType: "user",
		ObjectID:   "1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookFiltersVerbsAndDefaultsTenant(t *testing.T) {
	sink := &recordingSink{}
	tenant := uuid.New()
	hook := usersink.Hook{Sink: sink, Verbs: []string{activity.VerbCreated}, Tenant: tenant}
	ctx := context.Background()

	built := activity.BuildInstanceBuiltEvent(activity.InstanceEventInput{Factory: "user", InstanceID: "1"})
	if err := hook.Notify(ctx, built); err != nil {
		t.Fatalf("notify built: %v", err)
	}
	created := activity.BuildInstanceCreatedEvent(activity.InstanceEventInput{Factory: "user", InstanceID: "2", TenantID: "not-a-uuid"})
	if err := hook.Notify(ctx, created); err != nil {
		t.Fatalf("notify created: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected only created events forwarded, got %d", len(sink.records))
	}
	if sink.records[0].ObjectID != "2" || sink.records[0].TenantID != tenant {
		t.Fatalf("unexpected record %+v", sink.records[0])
	}
}

func TestToRecordRejectsIncompleteEvents(t *testing.T) {
	if _, ok := usersink.ToRecord(activity.Event{Verb: activity.VerbBuilt, ObjectType: "user"}); ok {
		t.Fatalf("expected event without object id to be rejected")
	}
	record, ok := usersink.ToRecord(activity.Event{Verb: activity.VerbBuilt, ObjectType: "user", ObjectID: "1"})
	if !ok || record.Data != nil {
		t.Fatalf("expected bare record, got %+v", record)
	}
}

func TestHookPropagatesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errSinkDown}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{Verb: activity.VerbBuilt, ObjectType: "user", ObjectID: "1"})
	if !errors.Is(err, errSinkDown) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

var errSinkDown = errors.New("sink down")
