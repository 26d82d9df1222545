// Package memory holds in-memory store implementations used by unit tests.
// They honor the same atomicity rules as the Postgres repos: a failed
// multi-row mutation leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
)

type TicketStore struct {
	mu          sync.Mutex
	tickets     map[string]models.Ticket
	comments    []models.Comment
	attachments []models.Attachment
	history     []models.HistoryEntry
}

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: map[string]models.Ticket{}}
}

func (s *TicketStore) Create(ctx context.Context, t *models.Ticket, h *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = *t
	s.history = append(s.history, *h)
	return nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

func (s *TicketStore) List(ctx context.Context, f repository.TicketFilter) ([]models.Ticket, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.App != "" && t.App != f.App {
			continue
		}
		if f.SubmitterID != "" && t.SubmitterID != f.SubmitterID {
			continue
		}
		if f.AssigneeID != "" && (t.AssignedToID == nil || *t.AssignedToID != f.AssigneeID) {
			continue
		}
		if f.InvolvedUserID != "" {
			assigned := t.AssignedToID != nil && *t.AssignedToID == f.InvolvedUserID
			if t.SubmitterID != f.InvolvedUserID && !assigned {
				continue
			}
		}
		if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
			if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (s *TicketStore) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time, c *models.Comment, h *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	t.UpdatedAt = updatedAt
	s.tickets[id] = t
	if c != nil {
		s.comments = append(s.comments, *c)
	}
	s.history = append(s.history, *h)
	return nil
}

func (s *TicketStore) UpdateAssignment(ctx context.Context, id string, assigneeID, assigneeName *string, updatedAt time.Time, h *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.AssignedToID = assigneeID
	t.AssignedToName = assigneeName
	t.UpdatedAt = updatedAt
	s.tickets[id] = t
	s.history = append(s.history, *h)
	return nil
}

func (s *TicketStore) AddComment(ctx context.Context, c *models.Comment, h *models.HistoryEntry, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[c.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = updatedAt
	s.tickets[c.TicketID] = t
	s.comments = append(s.comments, *c)
	s.history = append(s.history, *h)
	return nil
}

func (s *TicketStore) ListComments(ctx context.Context, ticketID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Comment
	for _, c := range s.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *TicketStore) AddAttachments(ctx context.Context, ticketID string, atts []models.Attachment, h *models.HistoryEntry, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = updatedAt
	s.tickets[ticketID] = t
	s.attachments = append(s.attachments, atts...)
	s.history = append(s.history, *h)
	return nil
}

func (s *TicketStore) CountAttachments(ctx context.Context, ticketID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attachments {
		if a.TicketID == ticketID {
			n++
		}
	}
	return n, nil
}

func (s *TicketStore) ListAttachments(ctx context.Context, ticketID string) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Attachment
	for _, a := range s.attachments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *TicketStore) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attachments {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *TicketStore) ListHistory(ctx context.Context, ticketID string) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HistoryEntry
	for _, h := range s.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *TicketStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tickets, id)
	s.attachments = dropByTicket(s.attachments, id, func(a models.Attachment) string { return a.TicketID })
	s.comments = dropByTicket(s.comments, id, func(c models.Comment) string { return c.TicketID })
	s.history = dropByTicket(s.history, id, func(h models.HistoryEntry) string { return h.TicketID })
	return nil
}

func (s *TicketStore) CountByStatuses(ctx context.Context, statuses []models.Status, inclusive bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := map[models.Status]bool{}
	for _, st := range statuses {
		in[st] = true
	}
	n := 0
	for _, t := range s.tickets {
		if in[t.Status] == inclusive {
			n++
		}
	}
	return n, nil
}

func (s *TicketStore) CountResolvedSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.Status.Terminal() && !t.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *TicketStore) CountOpenByPriorities(ctx context.Context, prios []models.Priority) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[models.Priority]bool{}
	for _, p := range prios {
		want[p] = true
	}
	n := 0
	for _, t := range s.tickets {
		if !t.Status.Terminal() && want[t.Priority] {
			n++
		}
	}
	return n, nil
}

// RowCount reports tickets + comments + attachments + history, for cascade
// assertions in tests.
func (s *TicketStore) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets) + len(s.comments) + len(s.attachments) + len(s.history)
}

func dropByTicket[T any](in []T, ticketID string, key func(T) string) []T {
	out := in[:0]
	for _, v := range in {
		if key(v) != ticketID {
			out = append(out, v)
		}
	}
	return out
}
