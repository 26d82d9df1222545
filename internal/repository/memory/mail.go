package memory

import (
	"context"
	"sync"
	"time"

	"github.com/onesoftuk/bugflow/internal/models"
)

type SettingsStore struct {
	mu sync.Mutex
	s  models.AppSettings
}

func NewSettingsStore(s models.AppSettings) *SettingsStore { return &SettingsStore{s: s} }

func (st *SettingsStore) Get(ctx context.Context) (*models.AppSettings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	cp := st.s
	return &cp, nil
}

func (st *SettingsStore) Update(ctx context.Context, s *models.AppSettings) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.UpdatedAt = time.Now()
	st.s = *s
	return nil
}

type EmailLogStore struct {
	mu   sync.Mutex
	logs []models.EmailLog
}

func NewEmailLogStore() *EmailLogStore { return &EmailLogStore{} }

func (st *EmailLogStore) Create(ctx context.Context, l *models.EmailLog) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.logs = append(st.logs, *l)
	return nil
}

func (st *EmailLogStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.logs {
		if st.logs[i].ID == id {
			st.logs[i].Status = models.EmailSent
			st.logs[i].SentAt = &at
		}
	}
	return nil
}

func (st *EmailLogStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.logs {
		if st.logs[i].ID == id {
			st.logs[i].Status = models.EmailFailed
			st.logs[i].Error = errMsg
		}
	}
	return nil
}

func (st *EmailLogStore) List(ctx context.Context, limit, offset int) ([]models.EmailLog, int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]models.EmailLog, len(st.logs))
	copy(out, st.logs)
	return out, len(out), nil
}
