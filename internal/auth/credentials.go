// Package auth implements credential storage and stateless session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence the credential store needs.
type UserStore interface {
	// GetByHandle returns (nil, nil) when no user has the handle.
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	// Create returns a CONFLICT AppError when the handle is taken.
	Create(ctx context.Context, user *models.User) error
}

// CredentialStore registers users and verifies their passwords. Passwords
// are stored as bcrypt hashes, which embed a per-hash random salt.
type CredentialStore struct {
	users     UserStore
	cost      int
	dummyHash []byte
}

// NewCredentialStore hashes with the given bcrypt cost.
func NewCredentialStore(users UserStore, cost int) (*CredentialStore, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("postboard-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &CredentialStore{users: users, cost: cost, dummyHash: dummy}, nil
}

// Register creates a user with a freshly salted hash of password.
func (s *CredentialStore) Register(ctx context.Context, handle, password string) (*models.User, error) {
	if err := validation.ValidateHandle(handle); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Handle already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{Handle: handle, PasswordHash: string(hash)}
	// A concurrent registration of the same handle surfaces here as a
	// unique-index CONFLICT from the store.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify checks a handle/password pair and returns the matching user.
// Unknown handles are compared against a dummy hash so both failure paths
// cost one bcrypt comparison.
func (s *CredentialStore) Verify(ctx context.Context, handle, password string) (*models.User, error) {
	user, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		middleware.AuthFailures.WithLabelValues("unknown_handle").Inc()
		return nil, errInvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			middleware.Logger.WarnContext(ctx, "stored password hash unusable", "user_id", user.ID)
		}
		middleware.AuthFailures.WithLabelValues("bad_password").Inc()
		return nil, errInvalidCredentials()
	}
	return user, nil
}

func errInvalidCredentials() *models.AppError {
	return models.NewUnauthorizedError("Invalid credentials")
}
