package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/haneul/authgate/internal/domain"
)

// CalculatorRepository stores per-user admission-calculator form data.
type CalculatorRepository struct {
	db *sqlx.DB
}

// NewCalculatorRepository creates a new CalculatorRepository.
func NewCalculatorRepository(db *sqlx.DB) *CalculatorRepository {
	return &CalculatorRepository{db: db}
}

// GetFormData retrieves a user's saved form data.
func (r *CalculatorRepository) GetFormData(ctx context.Context, userID int64) (*domain.CalculatorData, error) {
	var data domain.CalculatorData
	err := r.db.GetContext(ctx, &data,
		`SELECT id, user_id, form_data, created_at, updated_at
		 FROM calculator_data WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get calculator data for user %d: %w", userID, err)
	}
	return &data, nil
}

// UpsertFormData creates or replaces a user's form data in one statement.
func (r *CalculatorRepository) UpsertFormData(ctx context.Context, userID int64, formData types.JSONText) (*domain.CalculatorData, error) {
	var data domain.CalculatorData
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO calculator_data (user_id, form_data)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id)
		 DO UPDATE SET form_data = EXCLUDED.form_data, updated_at = NOW()
		 RETURNING id, user_id, form_data, created_at, updated_at`,
		userID, formData,
	).StructScan(&data)
	if err != nil {
		return nil, fmt.Errorf("upsert calculator data for user %d: %w", userID, err)
	}
	return &data, nil
}
