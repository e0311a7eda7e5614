package auth

import (
	"context"
	"time"
)

// JWTService defines operations for managing JWT authentication tokens used
// by operators of the admin API.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for subject.
	// Returns the token string or an error if token generation fails.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims if the token is valid, or an error if validation fails
	// (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// Subject identifies the operator or service the token was issued to.
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
