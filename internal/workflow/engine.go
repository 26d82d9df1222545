// Package workflow implements the ticket lifecycle: who may trigger each
// transition, what history it leaves behind, and which notifications fire.
// Handlers stay thin; every rule lives here.
package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onesoftuk/bugflow/internal/apperr"
	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
)

const (
	titleMinLen = 5
	titleMaxLen = 200
	descMinLen  = 20
)

// Limits bounds attachment uploads. Zero values fall back to the defaults.
type Limits struct {
	AllowedMimeTypes []string
	MaxFileSize      int64
	MaxPerTicket     int
}

func (l Limits) withDefaults() Limits {
	if len(l.AllowedMimeTypes) == 0 {
		l.AllowedMimeTypes = []string{"image/png", "image/jpeg", "image/webp"}
	}
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = 10 << 20
	}
	if l.MaxPerTicket <= 0 {
		l.MaxPerTicket = 10
	}
	return l
}

type Engine struct {
	tickets  repository.TicketStore
	users    repository.UserStore
	blobs    repository.BlobStore
	notifier Notifier
	limits   Limits
	log      zerolog.Logger
	now      func() time.Time
}

func NewEngine(tickets repository.TicketStore, users repository.UserStore, blobs repository.BlobStore, n Notifier, limits Limits, log zerolog.Logger) *Engine {
	if n == nil {
		n = NopNotifier{}
	}
	return &Engine{
		tickets:  tickets,
		users:    users,
		blobs:    blobs,
		notifier: n,
		limits:   limits.withDefaults(),
		log:      log,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------
// CreateTicket
// -----------------------------------------------------------------------------

type CreateInput struct {
	Title       string
	Description string
	Type        string
	App         string
	Priority    string
}

func (e *Engine) CreateTicket(ctx context.Context, actor models.Actor, in CreateInput) (*models.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < titleMinLen {
		return nil, apperr.Validation("title", fmt.Sprintf("must be at least %d characters", titleMinLen))
	}
	if len(title) > titleMaxLen {
		return nil, apperr.Validation("title", fmt.Sprintf("must be at most %d characters", titleMaxLen))
	}
	desc := strings.TrimSpace(in.Description)
	if len(desc) < descMinLen {
		return nil, apperr.Validation("description", fmt.Sprintf("must be at least %d characters", descMinLen))
	}
	tt, err := models.ParseTicketType(in.Type)
	if err != nil {
		return nil, apperr.Validation("type", err.Error())
	}
	prio, err := models.ParsePriority(in.Priority)
	if err != nil {
		return nil, apperr.Validation("priority", err.Error())
	}
	app := strings.TrimSpace(in.App)
	if app == "" {
		return nil, apperr.Validation("app", "is required")
	}

	now := e.now()
	t := &models.Ticket{
		ID:          uuid.NewString(),
		Title:       title,
		Description: desc,
		Type:        tt,
		App:         app,
		Status:      models.StatusOpen,
		Priority:    prio,
		SubmitterID: actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	h := e.history(t.ID, actor, models.HistoryCreated, "", string(models.StatusOpen), "Ticket created", now)

	if err := e.tickets.Create(ctx, t, h); err != nil {
		return nil, err
	}

	e.notifier.Notify(Event{
		Kind:           EventCreated,
		Ticket:         *t,
		Actor:          actor,
		SubmitterName:  actor.Name,
		SubmitterEmail: actor.Email,
	})
	return t, nil
}

// -----------------------------------------------------------------------------
// ChangeStatus
// -----------------------------------------------------------------------------

// ChangeStatus applies a status transition. The status set is flat: any
// status may follow any other. Re-setting the current status is a no-op
// with no history entry and no email.
func (e *Engine) ChangeStatus(ctx context.Context, actor models.Actor, ticketID, newStatus, comment string) (*models.Ticket, error) {
	if !actor.Role.CanTriage() {
		return nil, apperr.ErrForbidden
	}
	status, err := models.ParseStatus(newStatus)
	if err != nil {
		return nil, apperr.Validation("status", err.Error())
	}

	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("ticket")
	}
	// A dev may only triage tickets currently assigned to them.
	if actor.Role == models.RoleDev && (t.AssignedToID == nil || *t.AssignedToID != actor.ID) {
		return nil, apperr.ErrForbidden
	}

	if t.Status == status {
		return t, nil
	}

	now := e.now()
	old := t.Status

	var c *models.Comment
	if s := strings.TrimSpace(comment); s != "" {
		c = &models.Comment{
			ID:             uuid.NewString(),
			TicketID:       t.ID,
			AuthorID:       actor.ID,
			Content:        s,
			IsStatusChange: true,
			CreatedAt:      now,
		}
	}
	msg := fmt.Sprintf("Status changed from %s to %s", old, status)
	h := e.history(t.ID, actor, models.HistoryStatusChanged, string(old), string(status), msg, now)

	if err := e.tickets.UpdateStatus(ctx, t.ID, status, now, c, h); err != nil {
		return nil, err
	}
	t.Status = status
	t.UpdatedAt = now

	ev := Event{
		Kind:     EventStatusChanged,
		Ticket:   *t,
		Actor:    actor,
		OldValue: string(old),
		NewValue: string(status),
	}
	e.resolveSubmitter(ctx, &ev)
	e.notifier.Notify(ev)
	return t, nil
}

// -----------------------------------------------------------------------------
// AssignTicket
// -----------------------------------------------------------------------------

const unassignedLabel = "Unassigned"

// AssignTicket sets or clears the assignee. The display name is resolved once
// here and stored as a snapshot next to the id.
func (e *Engine) AssignTicket(ctx context.Context, actor models.Actor, ticketID string, assigneeID *string) (*models.Ticket, error) {
	if !actor.Role.CanAssign() {
		return nil, apperr.ErrForbidden
	}

	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("ticket")
	}

	var newID, newName *string
	if assigneeID != nil && strings.TrimSpace(*assigneeID) != "" {
		u, err := e.users.GetByID(ctx, *assigneeID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apperr.NotFound("user")
		}
		id, name := u.ID, u.Name
		newID, newName = &id, &name
	}

	oldLabel := unassignedLabel
	if t.AssignedToName != nil {
		oldLabel = *t.AssignedToName
	}
	newLabel := unassignedLabel
	if newName != nil {
		newLabel = *newName
	}

	now := e.now()
	msg := "Unassigned"
	if newName != nil {
		msg = "Assigned to " + *newName
	}
	h := e.history(t.ID, actor, models.HistoryAssigned, oldLabel, newLabel, msg, now)

	if err := e.tickets.UpdateAssignment(ctx, t.ID, newID, newName, now, h); err != nil {
		return nil, err
	}
	t.AssignedToID = newID
	t.AssignedToName = newName
	t.UpdatedAt = now

	ev := Event{
		Kind:     EventAssigned,
		Ticket:   *t,
		Actor:    actor,
		OldValue: oldLabel,
		NewValue: newLabel,
	}
	e.resolveSubmitter(ctx, &ev)
	e.notifier.Notify(ev)
	return t, nil
}

// -----------------------------------------------------------------------------
// AddComment
// -----------------------------------------------------------------------------

func (e *Engine) AddComment(ctx context.Context, actor models.Actor, ticketID, content string, isInternal bool) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content", "is required")
	}
	if isInternal && !actor.Role.CanSeeInternal() {
		return nil, apperr.ErrForbidden
	}

	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("ticket")
	}
	if !CanReadTicket(actor, t) {
		return nil, apperr.ErrForbidden
	}

	now := e.now()
	c := &models.Comment{
		ID:         uuid.NewString(),
		TicketID:   t.ID,
		AuthorID:   actor.ID,
		Content:    content,
		IsInternal: isInternal,
		CreatedAt:  now,
	}
	kind := models.HistoryPublicNote
	msg := "Note added"
	if isInternal {
		kind = models.HistoryInternalNote
		msg = "Internal note added"
	}
	h := e.history(t.ID, actor, kind, "", "", msg, now)

	if err := e.tickets.AddComment(ctx, c, h, now); err != nil {
		return nil, err
	}

	if !isInternal {
		ev := Event{
			Kind:    EventNoteAdded,
			Ticket:  *t,
			Actor:   actor,
			Comment: content,
			// The author does not need to hear about their own note.
			SuppressSubmitter: actor.ID == t.SubmitterID,
		}
		e.resolveSubmitter(ctx, &ev)
		e.notifier.Notify(ev)
	}
	return c, nil
}

// -----------------------------------------------------------------------------
// AddAttachments
// -----------------------------------------------------------------------------

// FileUpload is one incoming file in a batch.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// AddAttachments persists an upload batch all-or-nothing: any constraint
// violation rejects the whole batch before a single byte is stored.
func (e *Engine) AddAttachments(ctx context.Context, actor models.Actor, ticketID string, files []FileUpload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("files", "at least one file is required")
	}

	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("ticket")
	}
	if !CanReadTicket(actor, t) {
		return nil, apperr.ErrForbidden
	}

	for _, f := range files {
		if !e.mimeAllowed(f.MimeType) {
			return nil, apperr.Validation("files", fmt.Sprintf("type %s is not allowed", f.MimeType))
		}
		if f.Size > e.limits.MaxFileSize {
			return nil, apperr.LimitExceeded(fmt.Sprintf("file %s exceeds the %d byte limit", f.Name, e.limits.MaxFileSize))
		}
	}

	existing, err := e.tickets.CountAttachments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if existing+len(files) > e.limits.MaxPerTicket {
		return nil, apperr.LimitExceeded(fmt.Sprintf("ticket may hold at most %d attachments", e.limits.MaxPerTicket))
	}

	now := e.now()
	atts := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		id := uuid.NewString()
		size, err := e.blobs.Put(id, f.Content)
		if err != nil {
			e.discardBlobs(atts)
			return nil, err
		}
		atts = append(atts, models.Attachment{
			ID:           id,
			TicketID:     t.ID,
			OriginalName: f.Name,
			StorageKey:   id,
			MimeType:     f.MimeType,
			Size:         size,
			UploadedByID: actor.ID,
			UploadedAt:   now,
		})
	}

	// One history entry for the batch, not one per file.
	msg := fmt.Sprintf("Added %d attachment(s)", len(atts))
	h := e.history(t.ID, actor, models.HistoryAttachmentAdded, "", fmt.Sprintf("%d", len(atts)), msg, now)

	if err := e.tickets.AddAttachments(ctx, t.ID, atts, h, now); err != nil {
		e.discardBlobs(atts)
		return nil, err
	}
	return atts, nil
}

func (e *Engine) mimeAllowed(mime string) bool {
	for _, m := range e.limits.AllowedMimeTypes {
		if strings.EqualFold(strings.TrimSpace(m), mime) {
			return true
		}
	}
	return false
}

func (e *Engine) discardBlobs(atts []models.Attachment) {
	for _, a := range atts {
		if err := e.blobs.Delete(a.StorageKey); err != nil {
			e.log.Warn().Err(err).Str("key", a.StorageKey).Msg("orphaned blob not removed")
		}
	}
}

// -----------------------------------------------------------------------------
// DeleteTicket
// -----------------------------------------------------------------------------

// DeleteTicket removes the ticket and everything hanging off it. There is no
// soft delete and no undo.
func (e *Engine) DeleteTicket(ctx context.Context, actor models.Actor, ticketID string) error {
	if !actor.Role.CanDelete() {
		return apperr.ErrForbidden
	}
	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("ticket")
	}

	atts, err := e.tickets.ListAttachments(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := e.tickets.Delete(ctx, ticketID); err != nil {
		return err
	}
	// Blob cleanup happens after the commit; a leftover file is preferable to
	// a ticket whose payloads vanished on a rolled-back delete.
	e.discardBlobs(atts)
	return nil
}

// -----------------------------------------------------------------------------
// Reads (scoped by the visibility rules)
// -----------------------------------------------------------------------------

func (e *Engine) GetTicket(ctx context.Context, actor models.Actor, ticketID string) (*models.Ticket, error) {
	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("ticket")
	}
	if !CanReadTicket(actor, t) {
		return nil, apperr.ErrForbidden
	}
	return t, nil
}

// ListTickets narrows the filter to what the actor may see before it reaches
// the store.
func (e *Engine) ListTickets(ctx context.Context, actor models.Actor, f repository.TicketFilter) ([]models.Ticket, int, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDev:
		f.InvolvedUserID = actor.ID
	default:
		f.SubmitterID = actor.ID
	}
	return e.tickets.List(ctx, f)
}

func (e *Engine) ListComments(ctx context.Context, actor models.Actor, ticketID string) ([]models.Comment, error) {
	if _, err := e.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	comments, err := e.tickets.ListComments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return FilterComments(actor.Role, comments), nil
}

func (e *Engine) ListHistory(ctx context.Context, actor models.Actor, ticketID string) ([]models.HistoryEntry, error) {
	if _, err := e.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	history, err := e.tickets.ListHistory(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return FilterHistory(actor.Role, history), nil
}

func (e *Engine) ListAttachments(ctx context.Context, actor models.Actor, ticketID string) ([]models.Attachment, error) {
	if _, err := e.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return e.tickets.ListAttachments(ctx, ticketID)
}

// OpenAttachment authorizes via the owning ticket, then streams the payload.
func (e *Engine) OpenAttachment(ctx context.Context, actor models.Actor, attachmentID string) (*models.Attachment, io.ReadCloser, error) {
	a, err := e.tickets.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, apperr.NotFound("attachment")
	}
	if _, err := e.GetTicket(ctx, actor, a.TicketID); err != nil {
		return nil, nil, err
	}
	rc, err := e.blobs.Open(a.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (e *Engine) history(ticketID string, actor models.Actor, kind models.HistoryKind, oldV, newV, msg string, at time.Time) *models.HistoryEntry {
	return &models.HistoryEntry{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Kind:      kind,
		OldValue:  oldV,
		NewValue:  newV,
		Message:   msg,
		CreatedAt: at,
	}
}

// resolveSubmitter fills in the submitter's name and address. A lookup
// failure only degrades the notification, never the mutation.
func (e *Engine) resolveSubmitter(ctx context.Context, ev *Event) {
	if ev.SubmitterEmail != "" {
		return
	}
	u, err := e.users.GetByID(ctx, ev.Ticket.SubmitterID)
	if err != nil || u == nil {
		e.log.Warn().Err(err).Str("user", ev.Ticket.SubmitterID).Msg("submitter lookup failed for notification")
		return
	}
	ev.SubmitterName = u.Name
	ev.SubmitterEmail = u.Email
}
