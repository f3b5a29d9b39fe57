package change

import (
	"time"

	"github.com/google/uuid"
)

const TopicStatusChanged = "change.status_changed"

// StatusChangedEvent is published after a transition commits.
type StatusChangedEvent struct {
	Change         ChangeRequest
	PreviousStatus Status
	ActorID        uuid.UUID
	Comment        string
	OccurredAt     time.Time
}

type CreatedEvent struct {
	Change     ChangeRequest
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// StatusChangedPayload is the durable form of StatusChangedEvent written to the outbox.
type StatusChangedPayload struct {
	EventID        uuid.UUID  `json:"eventId"`
	ChangeID       uuid.UUID  `json:"changeId"`
	Title          string     `json:"title"`
	PreviousStatus Status     `json:"previousStatus"`
	Status         Status     `json:"status"`
	ActorID        uuid.UUID  `json:"actorId"`
	ApprovedBy     *uuid.UUID `json:"approvedBy,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	OccurredAt     time.Time  `json:"occurredAt"`
}

func (e StatusChangedEvent) Payload(eventID uuid.UUID) StatusChangedPayload {
	return StatusChangedPayload{
		EventID:        eventID,
		ChangeID:       e.Change.ID(),
		Title:          e.Change.Title(),
		PreviousStatus: e.PreviousStatus,
		Status:         e.Change.Status(),
		ActorID:        e.ActorID,
		ApprovedBy:     e.Change.ApproverID(),
		Comment:        e.Comment,
		OccurredAt:     e.OccurredAt,
	}
}
