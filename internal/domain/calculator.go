package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CalculatorData holds a user's saved admission-calculator form values.
// The payload is an opaque JSON object of numeric form fields; scoring
// happens client-side.
type CalculatorData struct {
	ID        int64          `json:"id" db:"id"`
	UserID    int64          `json:"user_id" db:"user_id"`
	FormData  types.JSONText `json:"form_data" db:"form_data"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
