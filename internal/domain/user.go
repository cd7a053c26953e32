package domain

import "time"

// AuthProvider represents an OAuth provider.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	// AuthProviderGitHub is reserved; only Google is wired up.
	AuthProviderGitHub AuthProvider = "github"
)

// Role represents a user's authorization role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Status represents a user's approval state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// User represents a registered account backed by an external identity.
// The (Provider, ProviderID) pair and the email are unique.
type User struct {
	ID         int64        `json:"id" db:"id"`
	Provider   AuthProvider `json:"provider" db:"provider"`
	ProviderID string       `json:"provider_id" db:"provider_id"`
	Email      string       `json:"email" db:"email"`
	Name       *string      `json:"name" db:"name"`
	PictureURL *string      `json:"picture_url,omitempty" db:"picture_url"`
	Role       Role         `json:"role" db:"role"`
	Status     Status       `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
	ApprovedAt *time.Time   `json:"approved_at" db:"approved_at"`
	ApprovedBy *int64       `json:"approved_by" db:"approved_by"`
}

// IsApproved reports whether the user may access gated services.
func (u *User) IsApproved() bool {
	return u.Status == StatusApproved
}

// IsAdmin reports whether the user holds the admin role. Approval is checked
// separately; an unapproved admin must not pass admin gates.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
