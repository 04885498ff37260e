package domain

import "time"

// Role grants access to API operations
type Role string

const (
	// RoleReader may search and read stats
	RoleReader Role = "reader"
	// RoleIngester may also trigger ingestion
	RoleIngester Role = "ingester"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleReader || r == RoleIngester
}

// TokenClaims is the payload of an API token.
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// CanIngest reports whether the bearer may enqueue ingestion jobs.
func (c *TokenClaims) CanIngest() bool {
	return c.Role == RoleIngester
}

// TokenRequest exchanges the admin password for an API token.
type TokenRequest struct {
	Password string `json:"password"`
	Subject  string `json:"subject,omitempty"`
	Role     Role   `json:"role,omitempty"` // default: reader
}

// TokenResponse carries a signed API token.
type TokenResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
