package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/shoeshelf/internal/models"
)

// UserStorage defines the interface for identity persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type UserStorage interface {
	CreateAnonymousUser(ctx context.Context, user *models.AnonymousUser) error
	GetAnonymousUser(ctx context.Context, id string) (*models.AnonymousUser, error)
	RenewAnonymousUser(ctx context.Context, id string, expiresAt int64) error
}

// AnonymousAuthenticator issues a fresh identity to every caller, with no credentials.
type AnonymousAuthenticator struct {
	storage    UserStorage
	jwtManager *JWTManager
}

// NewAnonymousAuthenticator creates a new anonymous authenticator.
func NewAnonymousAuthenticator(storage UserStorage, jwtManager *JWTManager) *AnonymousAuthenticator {
	return &AnonymousAuthenticator{
		storage:    storage,
		jwtManager: jwtManager,
	}
}

// SignIn creates a new anonymous user and returns a session for it.
func (a *AnonymousAuthenticator) SignIn(ctx context.Context) (models.Session, error) {
	userID := uuid.New().String()

	token, expiresAt, err := a.jwtManager.Generate(userID)
	if err != nil {
		return models.Session{}, err
	}

	user := &models.AnonymousUser{
		ID:        userID,
		CreatedAt: a.jwtManager.now().Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	if err := a.storage.CreateAnonymousUser(ctx, user); err != nil {
		return models.Session{}, fmt.Errorf("failed to record anonymous user: %w", err)
	}

	return models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Refresh issues a new token for the identity behind token, which may have
// expired. The signature must be ours and the user must have been issued.
func (a *AnonymousAuthenticator) Refresh(ctx context.Context, token string) (models.Session, error) {
	claims, err := a.jwtManager.ValidateSignature(token)
	if err != nil {
		return models.Session{}, err
	}

	user, err := a.storage.GetAnonymousUser(ctx, claims.UserID)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to look up anonymous user: %w", err)
	}
	if user == nil {
		return models.Session{}, ErrUnknownUser
	}

	renewed, expiresAt, err := a.jwtManager.Generate(user.ID)
	if err != nil {
		return models.Session{}, err
	}
	if err := a.storage.RenewAnonymousUser(ctx, user.ID, expiresAt.Unix()); err != nil {
		return models.Session{}, fmt.Errorf("failed to renew anonymous user: %w", err)
	}

	return models.Session{
		UserID:    user.ID,
		Token:     renewed,
		ExpiresAt: expiresAt,
	}, nil
}
