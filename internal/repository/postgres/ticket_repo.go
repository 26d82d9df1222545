package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
)

type TicketRepo struct{ db *pgxpool.Pool }

func NewTicketRepo(db *pgxpool.Pool) repository.TicketStore { return &TicketRepo{db: db} }

const ticketCols = `
	t.id, t.title, t.description, t.type, t.app, t.status, t.priority,
	t.submitter_id, t.assigned_to_id, t.assigned_to_name, t.created_at, t.updated_at`

func scanTicket(row pgx.Row, t *models.Ticket) error {
	return row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Type, &t.App, &t.Status, &t.Priority,
		&t.SubmitterID, &t.AssignedToID, &t.AssignedToName, &t.CreatedAt, &t.UpdatedAt,
	)
}

// -----------------------------------------------------------------------------
// Create / read
// -----------------------------------------------------------------------------

func (r *TicketRepo) Create(ctx context.Context, t *models.Ticket, h *models.HistoryEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tickets (id, title, description, type, app, status, priority, submitter_id, assigned_to_id, assigned_to_name, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`,
			t.ID, t.Title, t.Description, t.Type, t.App, t.Status, t.Priority,
			t.SubmitterID, t.AssignedToID, t.AssignedToName, t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return err
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *TicketRepo) Get(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketCols+` FROM tickets t WHERE t.id = $1`, id), &t)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepo) List(ctx context.Context, f repository.TicketFilter) ([]models.Ticket, int, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	whereSQL, args := buildTicketWhere(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol := sanitizeSort(f.Sort, "updated_at")
	sortOrd := sanitizeOrder(f.Order, "desc")

	args = append(args, f.Limit, f.Offset)
	sql := fmt.Sprintf(`SELECT %s FROM tickets t %s ORDER BY t.%s %s LIMIT $%d OFFSET $%d`,
		ticketCols, whereSQL, sortCol, sortOrd, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// -----------------------------------------------------------------------------
// Transactional mutations: status, assignment, comments, attachments
// -----------------------------------------------------------------------------

func (r *TicketRepo) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time, c *models.Comment, h *models.HistoryEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE tickets SET status=$1, updated_at=$2 WHERE id=$3`, status, updatedAt, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if c != nil {
			if err := insertComment(ctx, tx, c); err != nil {
				return err
			}
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *TicketRepo) UpdateAssignment(ctx context.Context, id string, assigneeID, assigneeName *string, updatedAt time.Time, h *models.HistoryEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE tickets SET assigned_to_id=$1, assigned_to_name=$2, updated_at=$3 WHERE id=$4
		`, assigneeID, assigneeName, updatedAt, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *TicketRepo) AddComment(ctx context.Context, c *models.Comment, h *models.HistoryEntry, updatedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertComment(ctx, tx, c); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE tickets SET updated_at=$1 WHERE id=$2`, updatedAt, c.TicketID); err != nil {
			return err
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *TicketRepo) ListComments(ctx context.Context, ticketID string) ([]models.Comment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ticket_id, author_id, content, is_status_change, is_internal, created_at
		FROM comments WHERE ticket_id = $1 ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Content, &c.IsStatusChange, &c.IsInternal, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *TicketRepo) AddAttachments(ctx context.Context, ticketID string, atts []models.Attachment, h *models.HistoryEntry, updatedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for i := range atts {
			a := &atts[i]
			if _, err := tx.Exec(ctx, `
				INSERT INTO attachments (id, ticket_id, original_name, storage_key, mime_type, size, uploaded_by_id, uploaded_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, a.ID, a.TicketID, a.OriginalName, a.StorageKey, a.MimeType, a.Size, a.UploadedByID, a.UploadedAt); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE tickets SET updated_at=$1 WHERE id=$2`, updatedAt, ticketID); err != nil {
			return err
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *TicketRepo) CountAttachments(ctx context.Context, ticketID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM attachments WHERE ticket_id = $1`, ticketID).Scan(&n)
	return n, err
}

func (r *TicketRepo) ListAttachments(ctx context.Context, ticketID string) ([]models.Attachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ticket_id, original_name, storage_key, mime_type, size, uploaded_by_id, uploaded_at
		FROM attachments WHERE ticket_id = $1 ORDER BY uploaded_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.OriginalName, &a.StorageKey, &a.MimeType, &a.Size, &a.UploadedByID, &a.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *TicketRepo) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	var a models.Attachment
	err := r.db.QueryRow(ctx, `
		SELECT id, ticket_id, original_name, storage_key, mime_type, size, uploaded_by_id, uploaded_at
		FROM attachments WHERE id = $1
	`, id).Scan(&a.ID, &a.TicketID, &a.OriginalName, &a.StorageKey, &a.MimeType, &a.Size, &a.UploadedByID, &a.UploadedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *TicketRepo) ListHistory(ctx context.Context, ticketID string) ([]models.HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ticket_id, actor_id, actor_name, kind, old_value, new_value, message, created_at
		FROM ticket_history WHERE ticket_id = $1 ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var h models.HistoryEntry
		if err := rows.Scan(&h.ID, &h.TicketID, &h.ActorID, &h.ActorName, &h.Kind, &h.OldValue, &h.NewValue, &h.Message, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Delete removes children before the parent so FK constraints hold at every
// point inside the transaction.
func (r *TicketRepo) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, sql := range []string{
			`DELETE FROM attachments WHERE ticket_id = $1`,
			`DELETE FROM comments WHERE ticket_id = $1`,
			`DELETE FROM ticket_history WHERE ticket_id = $1`,
		} {
			if _, err := tx.Exec(ctx, sql, id); err != nil {
				return err
			}
		}
		ct, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Reporting counters (admin summary)
// -----------------------------------------------------------------------------

func (r *TicketRepo) CountByStatuses(ctx context.Context, statuses []models.Status, inclusive bool) (int, error) {
	op := "NOT IN"
	if inclusive {
		op = "IN"
	}
	sql := `SELECT COUNT(*) FROM tickets WHERE status ` + op + ` (SELECT UNNEST($1::text[]))`
	var n int
	if err := r.db.QueryRow(ctx, sql, statusStrings(statuses)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *TicketRepo) CountResolvedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets WHERE status IN ('resolved','closed') AND updated_at >= $1
	`, since).Scan(&n)
	return n, err
}

func (r *TicketRepo) CountOpenByPriorities(ctx context.Context, prios []models.Priority) (int, error) {
	ps := make([]string, len(prios))
	for i, p := range prios {
		ps[i] = string(p)
	}
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets WHERE status NOT IN ('resolved','closed') AND priority = ANY($1)
	`, ps).Scan(&n)
	return n, err
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func insertComment(ctx context.Context, tx pgx.Tx, c *models.Comment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO comments (id, ticket_id, author_id, content, is_status_change, is_internal, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.TicketID, c.AuthorID, c.Content, c.IsStatusChange, c.IsInternal, c.CreatedAt)
	return err
}

func insertHistory(ctx context.Context, tx pgx.Tx, h *models.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ticket_history (id, ticket_id, actor_id, actor_name, kind, old_value, new_value, message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, h.ID, h.TicketID, h.ActorID, h.ActorName, h.Kind, h.OldValue, h.NewValue, h.Message, h.CreatedAt)
	return err
}

// buildTicketWhere composes the WHERE clause and args for List filters.
func buildTicketWhere(f repository.TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if s := strings.TrimSpace(f.Q); s != "" {
		p := "%" + s + "%"
		args = append(args, p, p)
		clauses = append(clauses, "(t.title ILIKE $"+itoa(len(args)-1)+" OR t.description ILIKE $"+itoa(len(args))+")")
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, "t.status = $"+itoa(len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		clauses = append(clauses, "t.priority = $"+itoa(len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		clauses = append(clauses, "t.type = $"+itoa(len(args)))
	}
	if s := strings.TrimSpace(f.App); s != "" {
		args = append(args, s)
		clauses = append(clauses, "t.app = $"+itoa(len(args)))
	}
	if s := strings.TrimSpace(f.AssigneeID); s != "" {
		args = append(args, s)
		clauses = append(clauses, "t.assigned_to_id = $"+itoa(len(args)))
	}
	if s := strings.TrimSpace(f.SubmitterID); s != "" {
		args = append(args, s)
		clauses = append(clauses, "t.submitter_id = $"+itoa(len(args)))
	}
	if s := strings.TrimSpace(f.InvolvedUserID); s != "" {
		args = append(args, s)
		n := itoa(len(args))
		clauses = append(clauses, "(t.submitter_id = $"+n+" OR t.assigned_to_id = $"+n+")")
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func sanitizeSort(s, def string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created_at", "updated_at", "priority":
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return def
	}
}

func sanitizeOrder(o, def string) string {
	switch strings.ToLower(strings.TrimSpace(o)) {
	case "asc", "desc":
		return strings.ToLower(strings.TrimSpace(o))
	default:
		return def
	}
}

// small helper to avoid fmt on the hot path.
func itoa(i int) string { return strconv.Itoa(i) }
