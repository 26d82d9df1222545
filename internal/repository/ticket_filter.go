package repository

import "github.com/onesoftuk/bugflow/internal/models"

// TicketFilter narrows List. Role scoping is expressed up front by the
// workflow engine: SubmitterID restricts to own tickets, InvolvedUserID to
// tickets the user submitted or is assigned to.
type TicketFilter struct {
	Q              string
	Status         models.Status
	Priority       models.Priority
	Type           models.TicketType
	App            string
	AssigneeID     string
	SubmitterID    string
	InvolvedUserID string
	Limit          int
	Offset         int
	Sort           string // created_at, updated_at, priority
	Order          string // asc|desc
}
