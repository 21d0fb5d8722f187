// Package usersink forwards synchronization activity to a go-users
// ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-resync/pkg/activity"
)

// Hook adapts activity events to a go-users ActivitySink.
//
// go-users identifies actors, users and tenants by UUID. IDs that are not
// UUIDs map to uuid.Nil, or, when Namespace is set, to a name based UUID
// derived from Namespace so that "alice" always maps to the same UUID.
type Hook struct {
	Sink      usertypes.ActivitySink
	Namespace uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    h.parseUUID(normalized.ActorID),
		UserID:     h.parseUUID(normalized.UserID),
		TenantID:   h.parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return h.Sink.Log(ctx, record)
}

func (h Hook) parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(value); err == nil {
		return id
	}
	if h.Namespace == uuid.Nil {
		return uuid.Nil
	}
	return uuid.NewSHA1(h.Namespace, []byte(value))
}
