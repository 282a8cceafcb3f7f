// internal/users/models.go

package users

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a registered community member. The password hash travels with
// the persisted record (this is the platform's mock auth store) but never
// leaves through the API.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName"`
	Username     string     `json:"username,omitempty"`
	AvatarURL    string     `json:"avatarUrl,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	IsOnline     bool       `json:"isOnline,omitempty"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Public returns a copy safe to put on the wire.
func (u *User) Public() *User {
	out := *u
	out.PasswordHash = ""
	return &out
}

// Claims is the JWT payload for access tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Request/response DTOs

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=100"`
	Username    string `json:"username" validate:"omitempty,min=3,max=30"`
	Password    string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
