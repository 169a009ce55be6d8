package models

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAffiliator Role = "affiliator"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAffiliator
}

// Label is the display name used by the console.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleAffiliator:
		return "Affiliate"
	default:
		return string(r)
	}
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// Session is a server-side refresh session. Only the hash of the refresh
// token is kept.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	RefreshTokenHash []byte    `json:"refreshTokenHash"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

type Credentials struct {
	Username string `json:"username" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required" validate:"required"`
}

type LoginResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type RefreshResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
