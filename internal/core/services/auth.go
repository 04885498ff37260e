package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is the lifetime of issued API tokens.
const DefaultTokenTTL = 24 * time.Hour

// authService issues API tokens against a single admin password hash.
type authService struct {
	authAdapter  driven.AuthAdapter
	passwordHash string
	tokenTTL     time.Duration
	now          func() time.Time
}

// NewAuthService creates a new AuthService. An empty passwordHash disables
// IssueToken; tokens can then only be minted from the CLI.
func NewAuthService(authAdapter driven.AuthAdapter, passwordHash string, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		authAdapter:  authAdapter,
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}
}

// IssueToken validates the admin password and signs a token
func (s *authService) IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if req.Password == "" {
		return nil, fmt.Errorf("password is required: %w", domain.ErrInvalidInput)
	}
	if s.passwordHash == "" || !s.authAdapter.VerifyPassword(req.Password, s.passwordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	role := req.Role
	if role == "" {
		role = domain.RoleReader
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "api"
	}
	return s.Mint(subject, role, s.tokenTTL)
}

// Mint signs a token for subject with the given role
func (s *authService) Mint(subject string, role domain.Role, ttl time.Duration) (*domain.TokenResponse, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = s.tokenTTL
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &domain.TokenClaims{
		Subject:   subject,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	token, err := s.authAdapter.GenerateToken(claims)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.TokenResponse{
		Token:     token,
		Role:      role,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// ValidateToken parses a bearer token and checks its role
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("unknown role %q: %w", claims.Role, domain.ErrUnauthorized)
	}
	return claims, nil
}
