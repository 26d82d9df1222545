package repository

import (
	"context"
	"io"
	"time"

	"github.com/onesoftuk/bugflow/internal/models"
)

// TicketStore is the persistence contract the workflow engine depends on.
// Every mutating method that touches more than one table is atomic: the
// update, its optional comment, and its history entry land together or not
// at all.
type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket, h *models.HistoryEntry) error
	Get(ctx context.Context, id string) (*models.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]models.Ticket, int, error)

	// UpdateStatus sets status and updated_at, appends the optional
	// status-change comment and the history entry in one transaction.
	UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time, c *models.Comment, h *models.HistoryEntry) error

	// UpdateAssignment stores the assignee id plus name snapshot (both nil to
	// unassign) and appends the history entry in one transaction.
	UpdateAssignment(ctx context.Context, id string, assigneeID, assigneeName *string, updatedAt time.Time, h *models.HistoryEntry) error

	AddComment(ctx context.Context, c *models.Comment, h *models.HistoryEntry, updatedAt time.Time) error
	ListComments(ctx context.Context, ticketID string) ([]models.Comment, error)

	// AddAttachments persists the metadata batch and one summarizing history
	// entry in a single transaction.
	AddAttachments(ctx context.Context, ticketID string, atts []models.Attachment, h *models.HistoryEntry, updatedAt time.Time) error
	CountAttachments(ctx context.Context, ticketID string) (int, error)
	ListAttachments(ctx context.Context, ticketID string) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)

	ListHistory(ctx context.Context, ticketID string) ([]models.HistoryEntry, error)

	// Delete removes attachments, comments, history, then the ticket, in one
	// transaction. Children never outlive the parent and vice versa.
	Delete(ctx context.Context, id string) error

	// Reporting counters for the admin summary.
	CountByStatuses(ctx context.Context, statuses []models.Status, inclusive bool) (int, error)
	CountResolvedSince(ctx context.Context, since time.Time) (int, error)
	CountOpenByPriorities(ctx context.Context, prios []models.Priority) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, email, name string, role models.Role, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, string /*passwordHash*/, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, q string, role models.Role, active *bool, limit, offset int) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
}

// SettingsStore holds the singleton configuration row.
type SettingsStore interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, s *models.AppSettings) error
}

type EmailLogStore interface {
	Create(ctx context.Context, l *models.EmailLog) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	List(ctx context.Context, limit, offset int) ([]models.EmailLog, int, error)
}

// BlobStore holds attachment payloads keyed by storage key; metadata lives in
// the TicketStore.
type BlobStore interface {
	Put(key string, r io.Reader) (int64, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}
