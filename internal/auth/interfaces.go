package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/database/models"
)

// Authenticator covers the account flows served under /a.
type Authenticator interface {
	SendOTP(ctx context.Context, email, otpType string) error
	VerifyOTP(ctx context.Context, email, otpType, code string) (string, error)
	SignupWithEmailPassword(ctx context.Context, input SignupInput) (*AuthResponse, error)
	SigninWithEmailPassword(ctx context.Context, email, password string) (*AuthResponse, error)
	SigninWithGoogle(ctx context.Context, code string) (*AuthResponse, error)
	SigninWithCli(ctx context.Context, input CliSigninInput) (*AuthResponse, error)
	SigninWithInternetIdentity(ctx context.Context, principalID string) (*IdentityResponse, error)
	ForgotPassword(ctx context.Context, userID uuid.UUID, otpID, password string) error
	Signout(ctx context.Context, token string, exp time.Time) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	CreateToken(claims Claims, expiry time.Duration) (string, error)
	VerifyToken(tokenString string) (*Claims, bool)
}

// Revoker is the revocation list consulted on every authenticated request.
type Revoker interface {
	Add(ctx context.Context, token string, exp time.Time) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator  = (*Service)(nil)
	_ TokenService   = (*JWTService)(nil)
	_ Revoker        = (*Blacklist)(nil)
	_ GoogleVerifier = (*GoogleOAuth)(nil)
)
