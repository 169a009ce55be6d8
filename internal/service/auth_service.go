package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"affconsole/internal/config"
	"affconsole/internal/ids"
	"affconsole/internal/models"
	"affconsole/internal/repository"
	"affconsole/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
	ErrSessionRevoked     = errors.New("session revoked")
)

type AuthService struct {
	users    repository.UserStore
	sessions repository.SessionStore
	issuer   *security.TokenIssuer
	hasher   *security.PasswordHasher
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users repository.UserStore,
	sessions repository.SessionStore,
	issuer *security.TokenIssuer,
	hasher *security.PasswordHasher,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		hasher:   hasher,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (models.LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.LoginResult{}, ErrInvalidCredentials
		}
		return models.LoginResult{}, err
	}

	ok, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil || !ok {
		return models.LoginResult{}, ErrInvalidCredentials
	}

	refreshToken, refreshHash, err := security.GenerateRefreshToken(0)
	if err != nil {
		return models.LoginResult{}, err
	}
	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		CreatedAt:        s.now().UTC(),
		ExpiresAt:        s.now().Add(s.cfg.Security.JWTRefreshTTL).UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return models.LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.issuer.Issue(user, session.ID)
	if err != nil {
		return models.LoginResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("login")
	return models.LoginResult{
		Success:      true,
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh issues a new access token for the session behind refreshToken.
// The refresh token itself stays valid until the session expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.RefreshResult, error) {
	session, err := s.sessions.FindByRefreshHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.RefreshResult{}, ErrInvalidRefresh
		}
		return models.RefreshResult{}, err
	}
	if !session.ExpiresAt.After(s.now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return models.RefreshResult{}, ErrInvalidRefresh
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.RefreshResult{}, ErrInvalidRefresh
		}
		return models.RefreshResult{}, err
	}

	token, err := s.issuer.Issue(user, session.ID)
	if err != nil {
		return models.RefreshResult{}, err
	}
	return models.RefreshResult{Success: true, Token: token, User: user}, nil
}

// Logout ends the session. An already gone session is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.DeleteByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

// Authenticate resolves a bearer token to its user. The session must still
// exist so logout revokes outstanding access tokens.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, *security.AccessClaims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return models.User{}, nil, err
	}
	if _, err := s.sessions.GetByID(ctx, claims.SessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, nil, ErrSessionRevoked
		}
		return models.User{}, nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, nil, ErrSessionRevoked
		}
		return models.User{}, nil, err
	}
	return user, claims, nil
}

// PurgeExpired drops sessions past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
