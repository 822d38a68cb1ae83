package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtinfra "github.com/xbrain-api/internal/infrastructure/jwt"

	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/infrastructure/cache"
	"golang.org/x/crypto/bcrypt"
)

// ErrAccountLocked is returned while the lockout window for an identifier
// is active. The probe itself never extends the window.
var ErrAccountLocked = errors.New("account locked due to too many failed login attempts, please try again later")

// InvalidCredentialsError deliberately does not reveal whether the
// identifier or the password was wrong.
type InvalidCredentialsError struct {
	Remaining int
	Locked    bool
}

func (e *InvalidCredentialsError) Error() string {
	if e.Locked {
		return "invalid credentials, account is now locked"
	}
	return fmt.Sprintf("invalid credentials, %d attempts remaining before account lockout", e.Remaining)
}

const attemptsKeyPrefix = "login_attempts:"

type Config struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// TokenPair is an access/refresh token pair for a verified identity.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service interface {
	// Login authenticates an email-or-username identifier under the
	// brute-force lockout policy.
	Login(ctx context.Context, identifier, password string) (*domain.User, error)
	// IssueTokens mints a token pair for an already-verified identity
	// (login or a just-committed registration).
	IssueTokens(userID string) (*TokenPair, error)
	// Refresh exchanges a valid refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type tokenProvider interface {
	SignAccess(userID string) (string, error)
	SignRefresh(userID string) (string, error)
	VerifyRefresh(tokenStr string) (*jwtinfra.Claims, error)
}

type service struct {
	users  userStore
	cache  cache.Store
	tokens tokenProvider
	cfg    Config
}

type ServiceDeps struct {
	UserRepo    userStore
	Cache       cache.Store
	JWTProvider tokenProvider
	Config      Config
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:  deps.UserRepo,
		cache:  deps.Cache,
		tokens: deps.JWTProvider,
		cfg:    deps.Config,
	}
}

// Login keys the attempt counter by the raw lower-cased identifier, not by
// a resolved user id: guessing against a nonexistent identifier burns
// attempts all the same, so lockout behavior cannot be used to enumerate
// accounts.
func (s *service) Login(ctx context.Context, identifier, password string) (*domain.User, error) {
	identifier = strings.ToLower(identifier)
	key := attemptsKeyPrefix + identifier

	attempts, err := s.cache.GetInt(ctx, key)
	if err != nil {
		return nil, err
	}
	if attempts >= int64(s.cfg.MaxAttempts) {
		return nil, ErrAccountLocked
	}

	var u *domain.User
	if strings.Contains(identifier, "@") {
		u, _ = s.users.GetByEmail(ctx, identifier)
	} else {
		u, _ = s.users.GetByUsername(ctx, identifier)
	}

	if u != nil && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
		if err := s.cache.Delete(ctx, key); err != nil {
			return nil, err
		}
		return u, nil
	}

	// Fixed window: the TTL is set on the first failure and not refreshed
	// by later ones.
	count, err := s.cache.Incr(ctx, key, s.cfg.LockoutDuration)
	if err != nil {
		return nil, err
	}
	remaining := s.cfg.MaxAttempts - int(count)
	if remaining <= 0 {
		return nil, &InvalidCredentialsError{Locked: true}
	}
	return nil, &InvalidCredentialsError{Remaining: remaining}
}

func (s *service) IssueTokens(userID string) (*TokenPair, error) {
	access, err := s.tokens.SignAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.SignRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) Refresh(_ context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	return s.tokens.SignAccess(claims.UserID)
}
