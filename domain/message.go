// This file defines the two message records of the system: the permanent
// log entry and the transient queue item. Both are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes plain text from attachment references.
type Kind string

const (
	Text Kind = "text"
	File Kind = "file"
)

// LogEntry is one row of the permanent message log, the system of record.
// Entries are never mutated or pruned; IDs are strictly increasing in
// insertion order.
type LogEntry struct {
	ID        uint64
	Sender    string
	Recipient Target // Broadcast for fan-out sends
	Content   string
	Kind      Kind
	At        time.Time
}

// QueueItem is one pending delivery to one concrete recipient. It exists
// from the moment a send addresses that recipient until the recipient's
// poll consumes it, after which it is permanently removed.
//
// For Kind == File, Content carries the stored attachment path; its base
// name is the human-readable filename.
type QueueItem struct {
	ID         uuid.UUID
	Seq        uint64 // insertion order, assigned by the queue on enqueue
	Sender     string
	Recipient  string // always a concrete username, never Broadcast
	Content    string
	Kind       Kind
	EnqueuedAt time.Time
}
