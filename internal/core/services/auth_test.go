package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven/mocks"
)

func newTestAuthService() (*mocks.MockAuthAdapter, *authService) {
	adapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(adapter, "hashed:s3cret", time.Hour).(*authService)
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return adapter, svc
}

func TestNewAuthService_DefaultTTL(t *testing.T) {
	svc := NewAuthService(mocks.NewMockAuthAdapter(), "", 0).(*authService)
	if svc.tokenTTL != DefaultTokenTTL {
		t.Errorf("expected ttl %v, got %v", DefaultTokenTTL, svc.tokenTTL)
	}
}

func TestAuthService_IssueToken(t *testing.T) {
	adapter, svc := newTestAuthService()

	resp, err := svc.IssueToken(context.Background(), domain.TokenRequest{
		Password: "s3cret",
		Subject:  "ops",
		Role:     domain.RoleIngester,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Role != domain.RoleIngester {
		t.Errorf("expected role ingester, got %s", resp.Role)
	}
	if want := time.Unix(1_700_000_000, 0).Add(time.Hour); !resp.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, resp.ExpiresAt)
	}

	claims := adapter.Tokens[resp.Token]
	if claims == nil {
		t.Fatal("token was not generated by the adapter")
	}
	if claims.Subject != "ops" {
		t.Errorf("expected subject ops, got %s", claims.Subject)
	}
}

func TestAuthService_IssueToken_Defaults(t *testing.T) {
	adapter, svc := newTestAuthService()

	resp, err := svc.IssueToken(context.Background(), domain.TokenRequest{Password: "s3cret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims := adapter.Tokens[resp.Token]
	if claims.Role != domain.RoleReader {
		t.Errorf("expected default role reader, got %s", claims.Role)
	}
	if claims.Subject != "api" {
		t.Errorf("expected default subject api, got %s", claims.Subject)
	}
}

func TestAuthService_IssueToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		req     domain.TokenRequest
		wantErr error
	}{
		{"missing password", "hashed:s3cret", domain.TokenRequest{}, domain.ErrInvalidInput},
		{"wrong password", "hashed:s3cret", domain.TokenRequest{Password: "guess"}, domain.ErrInvalidCredentials},
		{"issuing disabled", "", domain.TokenRequest{Password: "s3cret"}, domain.ErrInvalidCredentials},
		{"unknown role", "hashed:s3cret", domain.TokenRequest{Password: "s3cret", Role: "root"}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(mocks.NewMockAuthAdapter(), tt.hash, time.Hour)
			_, err := svc.IssueToken(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthService_Mint_GenerateError(t *testing.T) {
	adapter, svc := newTestAuthService()
	adapter.GenerateErr = errors.New("signing failed")

	if _, err := svc.Mint("cli", domain.RoleReader, time.Minute); err == nil {
		t.Error("expected error")
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	_, svc := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Mint("cli", domain.RoleIngester, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := svc.ValidateToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claims.CanIngest() {
		t.Error("expected ingester claims")
	}

	if _, err := svc.ValidateToken(ctx, "expired-token"); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := svc.ValidateToken(ctx, "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
