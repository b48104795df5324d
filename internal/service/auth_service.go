package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/ids"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/security"
	"storefront/internal/tasks"
	"storefront/internal/validation"
)

var (
	ErrEmailTaken         = apperr.Conflict("User already exists")
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	ErrInvalidToken       = apperr.Forbidden("Invalid refresh token")
	ErrInvalidSession     = apperr.Forbidden("Invalid session")
	ErrSessionNotFound    = apperr.NotFound("Session not found")
	ErrUserNotFound       = apperr.NotFound("User not found")
	ErrUnauthenticated    = apperr.Unauthorized("invalid_token")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Update(ctx context.Context, user models.User) (models.User, error)
	Delete(ctx context.Context, id string) error
	SetResetCode(ctx context.Context, id string, codeHash []byte, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindByRefreshHash(ctx context.Context, refreshHash []byte) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	DeleteByRefreshHash(ctx context.Context, refreshHash []byte) error
	DeleteByID(ctx context.Context, userID, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type AuthConfig struct {
	ResetCodeTTL    time.Duration
	ResetCodeLength int
	ExposeResetCode bool
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	tokens   *security.TokenIssuer
	hasher   *security.PasswordHasher
	tasks    TaskEnqueuer
	cfg      AuthConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	tokens *security.TokenIssuer,
	hasher *security.PasswordHasher,
	tasks TaskEnqueuer,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		tasks:    tasks,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber *string
	IPAddress   string
	UserAgent   string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LostCodeInput struct {
	Email     string
	ResetCode string
	Password  string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LostEmailResult struct {
	// Code is empty unless reset codes are exposed by configuration.
	Code string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateProfile(input.FirstName, input.LastName, input.Email, input.PhoneNumber); err != nil {
		return TokenPair{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return TokenPair{}, err
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleCustomer,
		PhoneNumber:  input.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return TokenPair{}, ErrEmailTaken
		}
		return TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.startSession(ctx, user, input.IPAddress, input.UserAgent)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if !validation.IsEmail(input.Email) {
		return TokenPair{}, errInvalidEmail
	}
	if err := validatePassword(input.Password); err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return TokenPair{}, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !ok {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, input.IPAddress, input.UserAgent)
}

// startSession issues a token pair and records the refresh token's session.
func (s *AuthService) startSession(ctx context.Context, user models.User, ip, userAgent string) (TokenPair, error) {
	accessToken, err := s.tokens.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, expiresAt, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.sessions.Create(ctx, models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: security.HashToken(refreshToken),
		IPAddress:        ip,
		UserAgent:        userAgent,
		ExpiresAt:        expiresAt,
	}); err != nil {
		return TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token and its session are left as they are.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", errRefreshTokenRequired
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}

	hash := security.HashToken(refreshToken)
	session, err := s.sessions.FindByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrInvalidSession
		}
		return "", fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != claims.UserID {
		return "", ErrInvalidSession
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteByRefreshHash(ctx, hash); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("delete expired session failed")
		}
		return "", ErrInvalidSession
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidSession
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	return s.tokens.IssueAccess(user.ID, string(user.Role))
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return errRefreshTokenRequired
	}
	if err := s.sessions.DeleteByRefreshHash(ctx, security.HashToken(refreshToken)); err != nil {
		return notFound(err, repository.ErrSessionNotFound, ErrSessionNotFound, "delete session")
	}
	return nil
}

// LostEmail starts a password reset: a one-time numeric code is stored
// hashed on the user and handed to the worker for delivery.
func (s *AuthService) LostEmail(ctx context.Context, email string) (LostEmailResult, error) {
	email = normalizeEmail(email)
	if !validation.IsEmail(email) {
		return LostEmailResult{}, errInvalidEmail
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return LostEmailResult{}, notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "lookup user")
	}

	code, err := security.GenerateNumericCode(s.cfg.ResetCodeLength)
	if err != nil {
		return LostEmailResult{}, err
	}
	if err := s.users.SetResetCode(ctx, user.ID, security.HashToken(code), s.now().Add(s.cfg.ResetCodeTTL)); err != nil {
		return LostEmailResult{}, fmt.Errorf("store reset code: %w", err)
	}

	if s.tasks != nil {
		if err := s.tasks.Enqueue(ctx, tasks.Task{
			Type:   tasks.TypeResetCode,
			UserID: user.ID,
			Email:  user.Email,
			Code:   code,
		}); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("enqueue reset code failed")
		}
	}

	result := LostEmailResult{}
	if s.cfg.ExposeResetCode {
		result.Code = code
	}
	return result, nil
}

// LostCode completes a password reset. A wrong or expired code is reported
// the same way as an unknown email. Every session of the user is revoked.
func (s *AuthService) LostCode(ctx context.Context, input LostCodeInput) error {
	input.Email = normalizeEmail(input.Email)
	if !validation.IsEmail(input.Email) {
		return errInvalidEmail
	}
	if strings.TrimSpace(input.ResetCode) == "" {
		return apperr.Validation("Reset code required")
	}
	if err := validatePassword(input.Password); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "lookup user")
	}
	if !s.resetCodeMatches(user, input.ResetCode) {
		return ErrUserNotFound
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "update password")
	}

	revoked, err := s.sessions.DeleteByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Int64("revoked_sessions", revoked).Msg("password reset")
	return nil
}

func (s *AuthService) resetCodeMatches(user models.User, code string) bool {
	if len(user.ResetCodeHash) == 0 || user.ResetCodeExpiresAt == nil {
		return false
	}
	if !s.now().Before(*user.ResetCodeExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare(user.ResetCodeHash, security.HashToken(strings.TrimSpace(code))) == 1
}

// Authenticate resolves a bearer access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.User, *security.AccessClaims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return models.User{}, nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, nil, ErrUnauthenticated
		}
		return models.User{}, nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, claims, nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, userID, sessionID); err != nil {
		return notFound(err, repository.ErrSessionNotFound, ErrSessionNotFound, "revoke session")
	}
	return nil
}
