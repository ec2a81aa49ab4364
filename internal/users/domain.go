package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-rbac/internal/auth"
)

// User represents a user account for management.
type User struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     *string     `json:"email,omitempty"`
	RoleID    int64       `json:"role_id"`
	RoleName  string      `json:"role_name"`
	Status    auth.Status `json:"status"`
	IsRoot    bool        `json:"is_root"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserInput is the admin request to add a user. An empty Password sends an invitation instead.
type NewUserInput struct {
	Username string
	Email    string
	Password string
	RoleID   int64
}

// Created is the outcome of CreateUser. Exactly one of User or Invitation is set.
type Created struct {
	User       *auth.User       `json:"user,omitempty"`
	Invitation *auth.Invitation `json:"invitation,omitempty"`
}
