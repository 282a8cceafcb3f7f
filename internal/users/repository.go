// internal/users/repository.go
// Registered-users collection over the blob store. The whole collection
// is rewritten on every mutation, same as the rest of the persisted
// state.

package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/giit-community/futurenet-backend/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
)

type Repository struct {
	mu      sync.RWMutex
	users   []*User
	byID    map[string]*User
	byEmail map[string]*User

	st  *store.Store
	log *zap.SugaredLogger
}

// NewRepository loads the registered-users blob, falling back to an
// empty collection, and seeds a handful of community members on first
// run so new installs have someone to message.
func NewRepository(ctx context.Context, st *store.Store, log *zap.SugaredLogger) *Repository {
	loaded, res := store.Load(ctx, st, store.KeyRegisteredUsers, []*User{})
	if res == store.LoadCorrupt {
		log.Warnw("registered-users blob unreadable, starting empty")
	}

	r := &Repository{
		users:   loaded,
		byID:    make(map[string]*User, len(loaded)),
		byEmail: make(map[string]*User, len(loaded)),
		st:      st,
		log:     log,
	}
	for _, u := range loaded {
		r.index(u)
	}
	if len(r.users) == 0 {
		r.seed(ctx)
	}
	return r
}

// Create registers a user. Email addresses are unique.
func (r *Repository) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[normalizeEmail(u.Email)]; exists {
		return ErrEmailTaken
	}
	r.users = append(r.users, u)
	r.index(u)
	r.persist(ctx)
	return nil
}

func (r *Repository) GetByID(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *Repository) GetByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// List returns every registered user.
func (r *Repository) List() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*User, len(r.users))
	copy(out, r.users)
	return out
}

// SetOnline updates presence and persists.
func (r *Repository) SetOnline(ctx context.Context, id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsOnline = online
	if !online {
		now := time.Now().UTC()
		u.LastSeen = &now
	}
	r.persist(ctx)
	return nil
}

// index and persist are called with the lock held.
func (r *Repository) index(u *User) {
	r.byID[u.ID] = u
	r.byEmail[normalizeEmail(u.Email)] = u
}

func (r *Repository) persist(ctx context.Context) {
	r.st.Save(ctx, store.KeyRegisteredUsers, r.users)
}

// seed installs the default community members shipped with the platform.
func (r *Repository) seed(ctx context.Context) {
	defaults := []*User{
		{ID: "user-aisha", Email: "aisha@giit.community", DisplayName: "Aisha Bello", Username: "aisha", IsOnline: true},
		{ID: "user-emeka", Email: "emeka@giit.community", DisplayName: "Emeka Obi", Username: "emeka"},
		{ID: "user-binta", Email: "binta@giit.community", DisplayName: "Binta Musa", Username: "binta", IsOnline: true},
	}
	now := time.Now().UTC()
	for _, u := range defaults {
		u.CreatedAt = now
		r.users = append(r.users, u)
		r.index(u)
	}
	r.persist(ctx)
	r.log.Infow("seeded default community members", "count", len(defaults))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
