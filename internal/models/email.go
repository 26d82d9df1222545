package models

import "time"

type EmailStatus string

const (
	EmailQueued EmailStatus = "queued"
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// EmailLog is the durable record of one delivery attempt. The row is written
// in queued state before the send and moved to a terminal state after, so the
// log survives fire-and-forget dispatch.
type EmailLog struct {
	ID        string      `json:"id"`
	To        []string    `json:"toAddresses"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body"`
	Status    EmailStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	SentAt    *time.Time  `json:"sentAt,omitempty"`
}
