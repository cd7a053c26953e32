package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/haneul/authgate/internal/domain"
)

const userColumns = `id, provider, provider_id, email, name, picture_url, role, status,
	 created_at, updated_at, approved_at, approved_by`

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id %d: %w", id, err)
	}
	return &user, nil
}

// FindByProviderID retrieves a user by their OAuth provider and provider ID.
func (r *UserRepository) FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by provider %s/%s: %w", provider, providerID, err)
	}
	return &user, nil
}

// Create inserts a new user row. Uniqueness violations on the identity pair
// or email surface as domain.ErrConflict so the caller can re-read the
// winning row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (provider, provider_id, email, name, picture_url, role, status, approved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+userColumns,
		user.Provider, user.ProviderID, user.Email, user.Name, user.PictureURL,
		user.Role, user.Status, user.ApprovedAt,
	).StructScan(&result)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &result, nil
}

// UpdateProfile refreshes the mutable profile fields of an existing user.
// Identity, role and status are never touched here.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, pictureURL *string) (*domain.User, error) {
	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`UPDATE users SET name = $1, picture_url = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING `+userColumns,
		name, pictureURL, id,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update user profile %d: %w", id, err)
	}
	return &result, nil
}

// SetStatus transitions a pending user to approved or rejected. The
// transition is one-directional: a user that is no longer pending is not
// updated and domain.ErrConflict is returned.
func (r *UserRepository) SetStatus(ctx context.Context, id int64, status domain.Status, adminID int64) (*domain.User, error) {
	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`UPDATE users
		 SET status = $1,
		     approved_at = CASE WHEN $1 = 'approved' THEN NOW() ELSE approved_at END,
		     approved_by = $2,
		     updated_at = NOW()
		 WHERE id = $3 AND status = 'pending'
		 RETURNING `+userColumns,
		status, adminID, id,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish "not found" from "already reviewed".
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("set user %d status %s: %w", id, status, err)
	}
	return &result, nil
}

// List returns users, optionally filtered by status, newest first.
func (r *UserRepository) List(ctx context.Context, status *domain.Status) ([]domain.User, error) {
	users := []domain.User{}
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &users,
			`SELECT `+userColumns+` FROM users WHERE status = $1 ORDER BY created_at DESC`, *status)
	} else {
		err = r.db.SelectContext(ctx, &users,
			`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListPending returns users awaiting review, oldest first.
func (r *UserRepository) ListPending(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE status = 'pending' ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// CountByStatus returns user counts grouped by approval status.
func (r *UserRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows := []struct {
		Status domain.Status `db:"status"`
		Count  int           `db:"count"`
	}{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM users GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count users by status: %w", err)
	}

	counts := make(map[domain.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
