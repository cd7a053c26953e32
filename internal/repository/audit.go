package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/haneul/authgate/internal/domain"
)

// AuditRepository appends and lists admin action records.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (admin_id, action, target_user_id, details, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.AdminID, entry.Action, entry.TargetUserID, entry.Details,
		entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns audit records newest first, joined with admin and target
// emails for display.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]domain.AuditRecord, error) {
	records := []domain.AuditRecord{}
	err := r.db.SelectContext(ctx, &records,
		`SELECT al.id, al.admin_id, al.action, al.target_user_id, al.details,
		        al.ip_address, al.user_agent, al.created_at,
		        u1.email AS admin_email,
		        u2.email AS target_email
		 FROM audit_log al
		 LEFT JOIN users u1 ON al.admin_id = u1.id
		 LEFT JOIN users u2 ON al.target_user_id = u2.id
		 ORDER BY al.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return records, nil
}
