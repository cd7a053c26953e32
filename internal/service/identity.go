package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haneul/authgate/internal/domain"
)

// UserStore defines the user data access interface consumed by the services.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, pictureURL *string) (*domain.User, error)
}

// ProviderIdentity is a verified identity assertion from an OAuth provider.
type ProviderIdentity struct {
	Provider   domain.AuthProvider
	ProviderID string
	Email      string
	Name       string
	PictureURL string
}

// IdentityResolver maps provider identity assertions to local user records.
type IdentityResolver struct {
	users             UserStore
	initialAdminEmail string
	now               func() time.Time
}

// NewIdentityResolver creates an IdentityResolver. initialAdminEmail, when
// non-empty, marks the bootstrap admin: the first login with that exact
// email is auto-approved with the admin role.
func NewIdentityResolver(users UserStore, initialAdminEmail string) *IdentityResolver {
	return &IdentityResolver{
		users:             users,
		initialAdminEmail: initialAdminEmail,
		now:               time.Now,
	}
}

// Resolve returns the local user for a provider identity, creating one on
// first sight. An existing user only has name and picture refreshed; role,
// status and email are never changed here.
func (r *IdentityResolver) Resolve(ctx context.Context, ident ProviderIdentity) (*domain.User, error) {
	if ident.Email == "" {
		return nil, fmt.Errorf("%w: provider identity has no email", domain.ErrInvalidInput)
	}

	existing, err := r.users.FindByProviderID(ctx, ident.Provider, ident.ProviderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		return r.users.UpdateProfile(ctx, existing.ID, strPtr(ident.Name), strPtr(ident.PictureURL))
	}

	user := domain.User{
		Provider:   ident.Provider,
		ProviderID: ident.ProviderID,
		Email:      ident.Email,
		Name:       strPtr(ident.Name),
		PictureURL: strPtr(ident.PictureURL),
		Role:       domain.RoleUser,
		Status:     domain.StatusPending,
	}
	if r.initialAdminEmail != "" && ident.Email == r.initialAdminEmail {
		now := r.now()
		user.Role = domain.RoleAdmin
		user.Status = domain.StatusApproved
		user.ApprovedAt = &now
	}

	created, err := r.users.Create(ctx, user)
	if err != nil {
		// A concurrent first login won the insert; read back the winner.
		if errors.Is(err, domain.ErrConflict) {
			return r.users.FindByProviderID(ctx, ident.Provider, ident.ProviderID)
		}
		return nil, err
	}

	slog.Info("new user registered",
		"user_id", created.ID,
		"provider", created.Provider,
		"status", created.Status,
	)
	return created, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
