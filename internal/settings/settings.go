// internal/settings/settings.go
// User preferences persisted as a single blob, matching the original
// client's storage layout.

package settings

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/giit-community/futurenet-backend/internal/store"
)

var ErrInvalidTheme = errors.New("theme must be \"light\" or \"dark\"")

// AppSettings mirrors the persisted preferences blob.
type AppSettings struct {
	Theme              string `json:"theme"`
	NotificationSounds bool   `json:"notificationSounds"`
}

// Defaults returns the settings applied when nothing usable is persisted.
func Defaults() AppSettings {
	return AppSettings{Theme: "dark", NotificationSounds: true}
}

type Service struct {
	mu      sync.Mutex
	current AppSettings
	st      *store.Store
	log     *zap.SugaredLogger
}

// NewService hydrates settings from the blob store, falling back to
// defaults when the blob is missing or corrupt.
func NewService(ctx context.Context, st *store.Store, log *zap.SugaredLogger) *Service {
	current, result := store.Load(ctx, st, store.KeySettings, Defaults())
	if result == store.LoadCorrupt {
		log.Warnw("settings blob corrupt, using defaults")
	}
	if current.Theme != "light" && current.Theme != "dark" {
		current.Theme = Defaults().Theme
	}
	return &Service{current: current, st: st, log: log}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update replaces the settings and persists them.
func (s *Service) Update(ctx context.Context, next AppSettings) (AppSettings, error) {
	if next.Theme != "light" && next.Theme != "dark" {
		return AppSettings{}, ErrInvalidTheme
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	s.st.Save(ctx, store.KeySettings, s.current)
	return s.current, nil
}
