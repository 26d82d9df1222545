package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
)

type EmailLogRepo struct{ db *pgxpool.Pool }

func NewEmailLogRepo(db *pgxpool.Pool) repository.EmailLogStore { return &EmailLogRepo{db: db} }

func (r *EmailLogRepo) Create(ctx context.Context, l *models.EmailLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_logs (id, to_addrs, subject, body, status, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, l.ID, l.To, l.Subject, l.Body, l.Status, l.Error, l.CreatedAt)
	return err
}

func (r *EmailLogRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE email_logs SET status='sent', sent_at=$1 WHERE id=$2`, at, id)
	return err
}

func (r *EmailLogRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	_, err := r.db.Exec(ctx, `UPDATE email_logs SET status='failed', error=$1 WHERE id=$2`, errMsg, id)
	return err
}

func (r *EmailLogRepo) List(ctx context.Context, limit, offset int) ([]models.EmailLog, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM email_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, to_addrs, subject, body, status, error, created_at, sent_at
		FROM email_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.EmailLog
	for rows.Next() {
		var l models.EmailLog
		if err := rows.Scan(&l.ID, &l.To, &l.Subject, &l.Body, &l.Status, &l.Error, &l.CreatedAt, &l.SentAt); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}
