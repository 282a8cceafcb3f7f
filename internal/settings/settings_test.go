// internal/settings/settings_test.go

package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giit-community/futurenet-backend/internal/common/logger"
	"github.com/giit-community/futurenet-backend/internal/store"
)

func TestDefaultsOnEmptyStore(t *testing.T) {
	st := store.New(store.NewMemoryKV(), logger.Nop())
	svc := NewService(context.Background(), st, logger.Nop())

	got := svc.Get(context.Background())
	assert.Equal(t, "dark", got.Theme)
	assert.True(t, got.NotificationSounds)
}

func TestUpdatePersistsAcrossRestart(t *testing.T) {
	st := store.New(store.NewMemoryKV(), logger.Nop())
	ctx := context.Background()

	svc := NewService(ctx, st, logger.Nop())
	updated, err := svc.Update(ctx, AppSettings{Theme: "light", NotificationSounds: false})
	require.NoError(t, err)
	assert.Equal(t, "light", updated.Theme)

	reloaded := NewService(ctx, st, logger.Nop())
	got := reloaded.Get(ctx)
	assert.Equal(t, "light", got.Theme)
	assert.False(t, got.NotificationSounds)
}

func TestUpdateRejectsUnknownTheme(t *testing.T) {
	st := store.New(store.NewMemoryKV(), logger.Nop())
	ctx := context.Background()

	svc := NewService(ctx, st, logger.Nop())
	_, err := svc.Update(ctx, AppSettings{Theme: "sepia", NotificationSounds: true})
	assert.ErrorIs(t, err, ErrInvalidTheme)

	// The stored settings are untouched.
	assert.Equal(t, "dark", svc.Get(ctx).Theme)
}

func TestCorruptBlobFallsBackToDefaults(t *testing.T) {
	kv := store.NewMemoryKV()
	st := store.New(kv, logger.Nop())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, store.KeySettings, []byte("not json at all")))

	svc := NewService(ctx, st, logger.Nop())
	got := svc.Get(ctx)
	assert.Equal(t, "dark", got.Theme)
	assert.True(t, got.NotificationSounds)
}
