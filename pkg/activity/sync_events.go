package activity

import (
	"fmt"
	"strings"
	"time"
)

// Verbs emitted by the synchronization controller.
const (
	VerbCollectionLoaded     = "collection.loaded"
	VerbCollectionLoadFailed = "collection.load_failed"
	VerbRecordCreated        = "record.created"
	VerbRecordCreateFailed   = "record.create_failed"
	VerbHealthChecked        = "health.checked"
)

// Object types for the emitted events.
const (
	ObjectCollection = "resync.collection"
	ObjectRecord     = "resync.record"
	ObjectHealth     = "resync.health"
)

// SyncEventInput holds the fields shared by synchronization events.
type SyncEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Resource   string
	ObjectID   string
	Channel    string
	RequestID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildCollectionLoadedEvent reports a successful list with count records.
func BuildCollectionLoadedEvent(input SyncEventInput, count int) Event {
	event := buildSyncEvent(VerbCollectionLoaded, ObjectCollection, input)
	event.Metadata["count"] = count
	return event
}

// BuildCollectionFailedEvent reports a failed list and the message shown to
// the user.
func BuildCollectionFailedEvent(input SyncEventInput, message string) Event {
	event := buildSyncEvent(VerbCollectionLoadFailed, ObjectCollection, input)
	event.Metadata["error"] = message
	return event
}

// BuildRecordCreatedEvent reports a server-confirmed record. The record's
// identifier is used as object ID unless input provides one.
func BuildRecordCreatedEvent(input SyncEventInput, record map[string]any) Event {
	if strings.TrimSpace(input.ObjectID) == "" {
		input.ObjectID = recordID(record)
	}
	event := buildSyncEvent(VerbRecordCreated, ObjectRecord, input)
	if len(record) > 0 {
		event.Metadata["record"] = cloneMap(record)
	}
	return event
}

// BuildRecordCreateFailedEvent reports a create that did not reach, or was
// rejected by, the server.
func BuildRecordCreateFailedEvent(input SyncEventInput, message string) Event {
	event := buildSyncEvent(VerbRecordCreateFailed, ObjectCollection, input)
	event.Metadata["error"] = message
	return event
}

// BuildHealthCheckedEvent reports a health probe result.
func BuildHealthCheckedEvent(input SyncEventInput, ok bool, detail string) Event {
	event := buildSyncEvent(VerbHealthChecked, ObjectHealth, input)
	event.Metadata["ok"] = ok
	if detail != "" {
		event.Metadata["detail"] = detail
	}
	return event
}

func buildSyncEvent(verb, objectType string, input SyncEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	resource := strings.TrimSpace(input.Resource)
	if resource != "" {
		metadata["resource"] = resource
	}
	if id := strings.TrimSpace(input.RequestID); id != "" {
		metadata["request_id"] = id
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = resource
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func recordID(record map[string]any) string {
	v, ok := record["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
