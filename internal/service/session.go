package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gearvn/storefront/internal/repository"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// SessionService stores the backend bearer token of each session.
type SessionService struct {
	repo   repository.TokenRepository
	logger *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(repo repository.TokenRepository, logger *slog.Logger) *SessionService {
	return &SessionService{repo: repo, logger: logger}
}

// SetToken stores token for the session.
func (s *SessionService) SetToken(ctx context.Context, sessionID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.FieldError("token", "token is required")
	}
	if err := s.repo.SaveToken(ctx, sessionID, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.logger.InfoContext(ctx, "session token stored", slog.String("session_id", sessionID))
	return nil
}

// ClearToken forgets the session's token.
func (s *SessionService) ClearToken(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteToken(ctx, sessionID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Token resolves the bearer token for a request. A token from the request's
// Authorization header wins over the stored one. No token is not an error.
func (s *SessionService) Token(ctx context.Context, sessionID, headerToken string) (string, error) {
	if headerToken != "" {
		return headerToken, nil
	}
	token, err := s.repo.GetToken(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}
