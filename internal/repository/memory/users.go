package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onesoftuk/bugflow/internal/models"
)

type UserStore struct {
	mu     sync.Mutex
	users  map[string]models.User
	hashes map[string]string
	order  []string
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[string]models.User{}, hashes: map[string]string{}}
}

// Seed registers a user directly, for tests.
func (s *UserStore) Seed(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = u
	s.order = append(s.order, u.ID)
	return u
}

func (s *UserStore) Create(ctx context.Context, email, name string, role models.Role, passwordHash string) (*models.User, error) {
	now := time.Now()
	u := s.Seed(models.User{Email: email, Name: name, Role: role, Active: true, CreatedAt: now, UpdatedAt: now})
	s.mu.Lock()
	s.hashes[u.ID] = passwordHash
	s.mu.Unlock()
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := u
			return &cp, s.hashes[u.ID], nil
		}
	}
	return nil, "", nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (s *UserStore) List(ctx context.Context, q string, role models.Role, active *bool, limit, offset int) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, id := range s.order {
		u := s.users[id]
		if role != "" && u.Role != role {
			continue
		}
		if active != nil && u.Active != *active {
			continue
		}
		if qq := strings.ToLower(strings.TrimSpace(q)); qq != "" {
			if !strings.Contains(strings.ToLower(u.Email), qq) && !strings.Contains(strings.ToLower(u.Name), qq) {
				continue
			}
		}
		out = append(out, u)
	}
	total := len(out)
	if offset > 0 && offset < len(out) {
		out = out[offset:]
	} else if offset >= len(out) {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	s.users[id] = u
	cp := u
	return &cp, nil
}

func (s *UserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.Active = active
	u.UpdatedAt = time.Now()
	s.users[id] = u
	cp := u
	return &cp, nil
}
