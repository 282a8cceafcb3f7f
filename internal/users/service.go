// internal/users/service.go
// Registration, login, and token validation over the mock auth store,
// plus participant resolution for the messenger.

package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/giit-community/futurenet-backend/internal/messenger"
	"github.com/giit-community/futurenet-backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Service struct {
	repo        *Repository
	st          *store.Store
	jwtSecret   []byte
	tokenExpiry time.Duration
	bcryptCost  int
	log         *zap.SugaredLogger
}

func NewService(repo *Repository, st *store.Store, jwtSecret string, tokenExpiry time.Duration, bcryptCost int, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:        repo,
		st:          st,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
		bcryptCost:  bcryptCost,
		log:         log,
	}
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		Username:     req.Username,
		PasswordHash: string(hash),
		IsOnline:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// Login verifies credentials and issues an access token. The signed-in
// user is also snapshotted under the current-user key, mirroring the
// original client's storage layout.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetByEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	s.repo.SetOnline(ctx, user.ID, true)

	return s.issue(ctx, user)
}

func (s *Service) issue(ctx context.Context, user *User) (*AuthResponse, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			Subject:   user.ID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.st.Save(ctx, store.KeyCurrentUser, user.Public())
	return &AuthResponse{Token: token, User: user.Public()}, nil
}

// ValidateToken parses and verifies an access token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Get returns a registered user without the password hash.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// List returns every registered user, sanitized.
func (s *Service) List(ctx context.Context) []*User {
	all := s.repo.List()
	out := make([]*User, 0, len(all))
	for _, u := range all {
		out = append(out, u.Public())
	}
	return out
}

// SetOnline updates presence.
func (s *Service) SetOnline(ctx context.Context, id string, online bool) error {
	return s.repo.SetOnline(ctx, id, online)
}

// Info implements messenger.ParticipantDirectory: live lookup by id, so
// chat rosters never carry stale snapshots. The assistant identity is
// virtual and resolves without a registered record.
func (s *Service) Info(ctx context.Context, userID string) (*messenger.UserInfo, error) {
	if userID == messenger.AssistantUserID {
		return &messenger.UserInfo{
			ID:       messenger.AssistantUserID,
			Name:     "GiiT Assistant",
			IsOnline: true,
		}, nil
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return &messenger.UserInfo{
		ID:        u.ID,
		Name:      u.DisplayName,
		AvatarURL: u.AvatarURL,
		IsOnline:  u.IsOnline,
		LastSeen:  u.LastSeen,
	}, nil
}
