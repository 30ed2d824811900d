package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeRecordArchived  Type = "recycle_bin.archived"
	TypeRecordRestored  Type = "recycle_bin.restored"
	TypeEntryPurged     Type = "recycle_bin.purged"
	TypeBinCleared      Type = "recycle_bin.cleared"
	TypeBinSwept        Type = "recycle_bin.swept"
	TypeAvatarsUpdated  Type = "avatars.updated"
	TypeCommentCreated  Type = "comment.created"
	TypeCommentModified Type = "comment.status_changed"
	TypeCommentDeleted  Type = "comment.deleted"
	TypeContentSaved    Type = "content.saved"
	TypeFileUploaded    Type = "file.uploaded"
	TypeFileDeleted     Type = "file.deleted"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(eventType Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe(types ...Type) (<-chan Event, func())
}

// Publish is a nil-safe helper for components whose bus is optional.
func Publish(bus Bus, e Event) {
	if bus == nil {
		return
	}
	bus.Publish(e)
}
