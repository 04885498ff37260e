package mocks

import (
	"errors"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MockAuthAdapter is a reversible fake of AuthAdapter for testing
type MockAuthAdapter struct {
	Tokens map[string]*domain.TokenClaims

	GenerateErr error
}

func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{Tokens: make(map[string]*domain.TokenClaims)}
}

func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return hash == "hashed:"+password
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	token := "token-" + claims.Subject + "-" + string(claims.Role)
	copied := *claims
	m.Tokens[token] = &copied
	return token, nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	if strings.HasPrefix(token, "expired") {
		return nil, domain.ErrTokenExpired
	}
	claims, ok := m.Tokens[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	copied := *claims
	return &copied, nil
}
