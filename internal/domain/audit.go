package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded for admin operations.
const (
	AuditActionApproveUser = "approve_user"
	AuditActionRejectUser  = "reject_user"
)

// AuditEntry is a single append-only record of an admin action.
type AuditEntry struct {
	ID           int64          `json:"id" db:"id"`
	AdminID      int64          `json:"admin_id" db:"admin_id"`
	Action       string         `json:"action" db:"action"`
	TargetUserID *int64         `json:"target_user_id" db:"target_user_id"`
	Details      types.JSONText `json:"details,omitempty" db:"details"`
	IPAddress    *string        `json:"ip_address" db:"ip_address"`
	UserAgent    *string        `json:"user_agent" db:"user_agent"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// AuditRecord is an audit entry enriched with admin and target emails for
// the admin console listing.
type AuditRecord struct {
	AuditEntry
	AdminEmail  *string `json:"admin_email" db:"admin_email"`
	TargetEmail *string `json:"target_email" db:"target_email"`
}
