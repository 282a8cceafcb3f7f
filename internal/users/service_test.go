// internal/users/service_test.go

package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giit-community/futurenet-backend/internal/common/logger"
	"github.com/giit-community/futurenet-backend/internal/messenger"
	"github.com/giit-community/futurenet-backend/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st := store.New(store.NewMemoryKV(), logger.Nop())
	repo := NewRepository(context.Background(), st, logger.Nop())
	// Low bcrypt cost keeps the test fast.
	return NewService(repo, st, "test-secret", time.Hour, 4, logger.Nop())
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &RegisterRequest{
		Email:       "tunde@giit.community",
		Password:    "correct-horse",
		DisplayName: "Tunde Adeyemi",
		Username:    "tunde",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Empty(t, reg.User.PasswordHash, "hash never leaves the service")

	login, err := svc.Login(ctx, &LoginRequest{Email: "tunde@giit.community", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	claims, err := svc.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Email:       "tunde@giit.community",
		Password:    "correct-horse",
		DisplayName: "Tunde Adeyemi",
		Username:    "tunde",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Email: "tunde@giit.community", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@giit.community", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := &RegisterRequest{
		Email:       "tunde@giit.community",
		Password:    "correct-horse",
		DisplayName: "Tunde Adeyemi",
		Username:    "tunde",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	// Email comparison is case-insensitive.
	req2 := *req
	req2.Email = "TUNDE@giit.community"
	_, err = svc.Register(ctx, &req2)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFreshRepositorySeedsCommunityMembers(t *testing.T) {
	svc := newTestService(t)

	members := svc.List(context.Background())
	require.Len(t, members, 3)
	for _, m := range members {
		assert.Empty(t, m.PasswordHash)
	}
}

func TestInfoResolvesAssistantIdentity(t *testing.T) {
	svc := newTestService(t)

	info, err := svc.Info(context.Background(), messenger.AssistantUserID)
	require.NoError(t, err)
	assert.Equal(t, "GiiT Assistant", info.Name)
	assert.True(t, info.IsOnline)
}

func TestInfoResolvesRegisteredUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	info, err := svc.Info(ctx, "user-aisha")
	require.NoError(t, err)
	assert.Equal(t, "Aisha Bello", info.Name)

	_, err = svc.Info(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
