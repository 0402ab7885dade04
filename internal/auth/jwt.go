package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// DefaultExpiry applies when CreateToken is given a zero expiry.
const DefaultExpiry = 5 * time.Minute

// TokenUseProject marks a delegated project token. Such tokens are only
// accepted as a CLI projectTokenRef, never as a session.
const TokenUseProject = "project"

// Claims is shared by session tokens, OTP-bound reset tokens and delegated
// project tokens. Unused fields are omitted from the payload.
type Claims struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	PrincipalID string    `json:"principal_id,omitempty"`
	OTPID       string    `json:"otp_id,omitempty"`

	ProjectID       string `json:"project_id,omitempty"`
	ProjectName     string `json:"project_name,omitempty"`
	DatabaseVersion string `json:"database_version,omitempty"`
	Duration        int    `json:"duration,omitempty"`

	// Use is empty for session tokens.
	Use string `json:"use,omitempty"`

	jwt.RegisteredClaims
}

func (c *Claims) Delegated() bool {
	return c.Use == TokenUseProject
}

// ExpiryTime returns the expiry, or the zero time when the claim is absent.
func (c *Claims) ExpiryTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type JWTService struct {
	secret []byte
	issuer string
}

func NewJWTService(secret, issuer string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// CreateToken signs claims with HS256. Registered claims are overwritten.
func (s *JWTService) CreateToken(claims Claims, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	}
	if claims.UserID != uuid.Nil {
		claims.Subject = claims.UserID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyToken reports ok=false for any invalid, tampered or expired token.
func (s *JWTService) VerifyToken(tokenString string) (*Claims, bool) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// ParseExpiry accepts Go durations ("5m", "36h") and whole days ("7d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultExpiry, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}
