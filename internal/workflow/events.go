package workflow

import "github.com/onesoftuk/bugflow/internal/models"

type EventKind string

const (
	EventCreated       EventKind = "created"
	EventStatusChanged EventKind = "status_changed"
	EventAssigned      EventKind = "assigned"
	EventNoteAdded     EventKind = "note_added"
)

// Event describes one completed workflow mutation for the notification
// dispatcher. The engine resolves the submitter's address up front so the
// dispatcher never goes back to the user store.
type Event struct {
	Kind   EventKind
	Ticket models.Ticket
	Actor  models.Actor

	// OldValue/NewValue carry the status or assignee-name transition.
	OldValue string
	NewValue string

	// Comment holds the note content for note_added events.
	Comment string

	SubmitterName  string
	SubmitterEmail string

	// SuppressSubmitter drops the submitter copy (author commenting on
	// their own ticket); admin recipients still get theirs.
	SuppressSubmitter bool
}

// Notifier receives events after the mutation has committed. Implementations
// must not block the caller and must never fail the workflow: delivery
// problems are recorded in the email log, not propagated.
type Notifier interface {
	Notify(ev Event)
}

// NopNotifier is used where notifications are irrelevant (tests, tooling).
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
