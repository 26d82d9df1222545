package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository/memory"
	"github.com/onesoftuk/bugflow/internal/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	users := memory.NewUserStore()
	svc := NewAuthService(users, "test-secret")
	ctx := context.Background()

	u, err := svc.Register(ctx, "sam@example.com", "Sam Submitter", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.Active)

	tok, got, err := svc.Login(ctx, "sam@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	claims, err := utils.ParseJWT("test-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	t.Parallel()
	svc := NewAuthService(memory.NewUserStore(), "test-secret")
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "Sam", "hunter22")
	assert.Error(t, err)
	_, err = svc.Register(ctx, "sam@example.com", " ", "hunter22")
	assert.Error(t, err)
	_, err = svc.Register(ctx, "sam@example.com", "Sam", "short")
	assert.Error(t, err)
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()
	users := memory.NewUserStore()
	svc := NewAuthService(users, "test-secret")
	ctx := context.Background()

	u, err := svc.Register(ctx, "sam@example.com", "Sam Submitter", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "sam@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, "sam@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
