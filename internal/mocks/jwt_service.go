package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/service/auth"
)

// MockJWTService implements auth.JWTService for testing
type MockJWTService struct {
	GenerateTokenFn func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)

	// Default values used when functions aren't explicitly defined
	Token       string
	Err         error
	ValidateErr error
	Claims      *auth.Claims
	Lifetime    time.Duration
}

// GenerateToken implements the auth.JWTService interface
func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, userID)
	}
	return m.Token, m.Err
}

// ValidateToken implements the auth.JWTService interface
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	return m.Claims, m.ValidateErr
}

// TokenLifetime implements the auth.JWTService interface
func (m *MockJWTService) TokenLifetime() time.Duration {
	if m.Lifetime == 0 {
		return 24 * time.Hour
	}
	return m.Lifetime
}

// NewMockJWTServiceForUser returns a mock that issues token and accepts it
// as belonging to userID.
func NewMockJWTServiceForUser(userID uuid.UUID, token string) *MockJWTService {
	return &MockJWTService{
		Token: token,
		ValidateTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
			if tokenString != token {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: userID, TokenType: auth.TokenTypeAccess}, nil
		},
	}
}
