package models

import "time"

// HistoryKind enumerates the audit record kinds a ticket accumulates.
type HistoryKind string

const (
	HistoryCreated         HistoryKind = "CREATED"
	HistoryStatusChanged   HistoryKind = "STATUS_CHANGED"
	HistoryAssigned        HistoryKind = "ASSIGNED"
	HistoryPublicNote      HistoryKind = "PUBLIC_NOTE"
	HistoryInternalNote    HistoryKind = "INTERNAL_NOTE"
	HistoryAttachmentAdded HistoryKind = "ATTACHMENT_ADDED"
)

// HistoryEntry is one append-only audit record. Entries are never mutated or
// deleted except by the ticket-deletion cascade. ActorName is a snapshot so
// the trail stays accurate if the user is later renamed or removed.
type HistoryEntry struct {
	ID        string      `json:"id"`
	TicketID  string      `json:"ticketId"`
	ActorID   string      `json:"actorUserId"`
	ActorName string      `json:"actorName"`
	Kind      HistoryKind `json:"kind"`
	OldValue  string      `json:"oldValue,omitempty"`
	NewValue  string      `json:"newValue,omitempty"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
}
