package models

import (
	"fmt"
	"time"
)

type TicketType string

const (
	TypeBug     TicketType = "bug"
	TypeFeature TicketType = "feature_request"
)

func ParseTicketType(s string) (TicketType, error) {
	switch TicketType(s) {
	case TypeBug, TypeFeature:
		return TicketType(s), nil
	}
	return "", fmt.Errorf("unknown ticket type %q", s)
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Status is a flat set: any status may follow any other. There is
// deliberately no transition graph.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Terminal reports whether the status counts as done for reporting purposes.
func (s Status) Terminal() bool { return s == StatusResolved || s == StatusClosed }

type Ticket struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        TicketType `json:"type"`
	App         string     `json:"app"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	SubmitterID string     `json:"submitterUserId"`
	// AssignedToName is a snapshot taken at assignment time, not re-resolved
	// at read time. It may drift from a later rename; the audit trail keeps
	// what was true when the assignment happened.
	AssignedToID   *string   `json:"assignedToUserId,omitempty"`
	AssignedToName *string   `json:"assignedToName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Comment struct {
	ID       string `json:"id"`
	TicketID string `json:"ticketId"`
	AuthorID string `json:"authorUserId"`
	Content  string `json:"content"`
	// IsStatusChange marks comments auto-attached by a status transition.
	IsStatusChange bool      `json:"isStatusChange"`
	IsInternal     bool      `json:"isInternal"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Attachment struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticketId"`
	OriginalName string    `json:"originalName"`
	StorageKey   string    `json:"-"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedByID string    `json:"uploadedByUserId"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
