package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
)

type SettingsRepo struct{ db *pgxpool.Pool }

func NewSettingsRepo(db *pgxpool.Pool) repository.SettingsStore { return &SettingsRepo{db: db} }

// Get reads the single configuration row (seeded by the schema bootstrap).
func (r *SettingsRepo) Get(ctx context.Context) (*models.AppSettings, error) {
	var s models.AppSettings
	err := r.db.QueryRow(ctx, `
		SELECT smtp_enabled, smtp_host, smtp_port, smtp_username, smtp_password, smtp_from, admin_recipients, updated_at
		FROM app_settings WHERE id = TRUE
	`).Scan(&s.SMTPEnabled, &s.SMTPHost, &s.SMTPPort, &s.SMTPUsername, &s.SMTPPassword, &s.SMTPFrom, &s.AdminRecipients, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepo) Update(ctx context.Context, s *models.AppSettings) error {
	s.UpdatedAt = time.Now()
	_, err := r.db.Exec(ctx, `
		UPDATE app_settings SET
			smtp_enabled=$1, smtp_host=$2, smtp_port=$3, smtp_username=$4,
			smtp_password=$5, smtp_from=$6, admin_recipients=$7, updated_at=$8
		WHERE id = TRUE
	`, s.SMTPEnabled, s.SMTPHost, s.SMTPPort, s.SMTPUsername, s.SMTPPassword, s.SMTPFrom, s.AdminRecipients, s.UpdatedAt)
	return err
}
