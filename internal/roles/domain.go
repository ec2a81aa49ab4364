package roles

import "time"

// Role represents a role for management.
type Role struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	UserCount    int       `json:"user_count"`
	CreatedAt    time.Time `json:"created_at"`
}
