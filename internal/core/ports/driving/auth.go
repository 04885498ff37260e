package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AuthService issues and validates API tokens
type AuthService interface {
	// IssueToken exchanges the admin password for a token.
	IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)

	// Mint signs a token without a password check. Used by the CLI,
	// which already holds the signing secret.
	Mint(subject string, role domain.Role, ttl time.Duration) (*domain.TokenResponse, error)

	// ValidateToken verifies a bearer token.
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}
