package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/shoeshelf/internal/auth"
	"github.com/mmynk/shoeshelf/internal/models"
	"github.com/mmynk/shoeshelf/internal/rpc"
)

// SignInProvider issues and renews anonymous sessions.
type SignInProvider interface {
	SignIn(ctx context.Context) (models.Session, error)
	Refresh(ctx context.Context, token string) (models.Session, error)
}

// IdentityService implements the anonymous sign-in and renewal RPCs.
type IdentityService struct {
	authenticator SignInProvider
	logger        *slog.Logger
}

// NewIdentityService creates a new identity service.
func NewIdentityService(authenticator SignInProvider, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		authenticator: authenticator,
		logger:        logger,
	}
}

// SignInAnonymously issues a new user ID and bearer token.
func (s *IdentityService) SignInAnonymously(ctx context.Context, _ *connect.Request[rpc.SignInAnonymouslyRequest]) (*connect.Response[rpc.SignInAnonymouslyResponse], error) {
	s.logger.Info("SignInAnonymously request")

	session, err := s.authenticator.SignIn(ctx)
	if err != nil {
		s.logger.Error("Anonymous sign-in failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Anonymous user signed in", "user_id", session.UserID)
	return connect.NewResponse(&rpc.SignInAnonymouslyResponse{
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}), nil
}

// RefreshSession renews a session for the same user. The presented token may
// have expired but must carry a valid signature for an issued user.
func (s *IdentityService) RefreshSession(ctx context.Context, req *connect.Request[rpc.RefreshSessionRequest]) (*connect.Response[rpc.RefreshSessionResponse], error) {
	s.logger.Debug("RefreshSession request received")

	if req.Msg.Token == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	session, err := s.authenticator.Refresh(ctx, req.Msg.Token)
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrUnknownUser) {
		s.logger.Warn("RefreshSession rejected", "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	if err != nil {
		s.logger.Error("RefreshSession failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Session renewed", "user_id", session.UserID)
	return connect.NewResponse(&rpc.RefreshSessionResponse{
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}), nil
}
