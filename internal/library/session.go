package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/libraryhub/internal/domain"
)

// SessionService manages the admin login
type SessionService struct {
	auth   domain.AuthClient
	tokens domain.TokenStore
	caches *Service
	logger *slog.Logger
}

// NewSessionService creates a SessionService. caches may be nil when
// running outside the console.
func NewSessionService(auth domain.AuthClient, tokens domain.TokenStore, caches *Service, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{auth: auth, tokens: tokens, caches: caches, logger: logger}
}

// Login exchanges credentials for a token and persists it.
func (s *SessionService) Login(ctx context.Context, email, password string) error {
	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Error("login failed", "email", email, "error", err)
		return err
	}
	if err := s.tokens.Save(token, email); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	s.logger.Info("logged in", "email", email)
	return nil
}

// Logout forgets the token and every cached entity
func (s *SessionService) Logout() error {
	if err := s.tokens.Clear(); err != nil {
		return err
	}
	if s.caches != nil {
		s.caches.Reset()
	}
	s.logger.Info("logged out")
	return nil
}

// LoggedIn reports whether a token is stored
func (s *SessionService) LoggedIn() bool {
	return s.tokens.Token() != ""
}

// Email returns the address of the logged-in admin
func (s *SessionService) Email() string {
	return s.tokens.Email()
}
