package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-annotations/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook records engine events in a go-users ActivitySink. Hierarchy and cache
// details are stored in the record data; actor and tenant ids that are not
// UUIDs are recorded as uuid.Nil and kept verbatim in the data.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify implements activity.Hook.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.Normalize(event)
	if !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record maps event onto an ActivityRecord.
func Record(event activity.Event) usertypes.ActivityRecord {
	data := event.Fields()
	actor, ok := parseUUID(event.ActorID)
	if !ok {
		data["actor"] = event.ActorID
	}
	tenant, ok := parseUUID(event.TenantID)
	if !ok {
		data["tenant"] = event.TenantID
	}
	return usertypes.ActivityRecord{
		ActorID:    actor,
		TenantID:   tenant,
		Verb:       event.Verb,
		ObjectType: event.ObjectType(),
		ObjectID:   event.ObjectID(),
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

// parseUUID reports ok for empty input so absent ids leave no trace in data.
func parseUUID(input string) (uuid.UUID, bool) {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
