package domain

import "time"

// EventRecord is the journal row for one fired event. Old and New hold the
// JSON-encoded payload halves; Kind and Element discriminate how they are
// decoded on replay.
type EventRecord struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	GroupID     string    `json:"groupId"`
	Kind        string    `json:"kind"`
	Element     string    `json:"element,omitempty"`
	TargetID    string    `json:"targetId"`
	OldJSON     string    `json:"old,omitempty"`
	NewJSON     string    `json:"new,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// JournalStore persists the event stream for a workspace.
type JournalStore interface {
	AppendEvent(rec *EventRecord) error
	ListEvents(workspaceID string) ([]EventRecord, error)
	ListGroup(workspaceID, groupID string) ([]EventRecord, error)
	PruneIfNeeded(workspaceID string, maxEvents int) error
	Close() error
}
