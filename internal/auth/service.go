package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/pkg/crypto"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrWrongPassword        = errors.New("wrong password")
	ErrInvalidOTPType       = errors.New("invalid otp type")
	ErrInvalidOTP           = errors.New("invalid otp")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrOTPThrottled         = errors.New("too many otp requests")
	ErrAmbiguousCredentials = errors.New("provide either email and password or identity")
	ErrInvalidIdentity      = errors.New("invalid identity")
	ErrInvalidProjectToken  = errors.New("invalid project token")
	ErrOAuthFailed          = errors.New("google sign-in failed")
	ErrOAuthNotConfigured   = errors.New("google sign-in is not configured")
)

// OTPExpiry bounds tokens returned by password and link verification.
const OTPExpiry = 5 * time.Minute

const generatedPasswordLength = 32

// OTPNotifier delivers a freshly issued code to its owner.
type OTPNotifier interface {
	SendOTP(ctx context.Context, email, code, otpType string) error
}

type ServiceConfig struct {
	Store        *store.Store
	JWT          *JWTService
	Envelope     *crypto.Envelope
	Blacklist    *Blacklist
	OTPs         *OTPGenerator
	Throttle     *OTPThrottle
	Google       GoogleVerifier
	Notifier     OTPNotifier
	SigninExpiry time.Duration
	Logger       *slog.Logger
}

type Service struct {
	store        *store.Store
	jwt          *JWTService
	envelope     *crypto.Envelope
	blacklist    *Blacklist
	otps         *OTPGenerator
	throttle     *OTPThrottle
	google       GoogleVerifier
	notifier     OTPNotifier
	signinExpiry time.Duration
	logger       *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.OTPs == nil {
		cfg.OTPs = NewOTPGenerator(false)
	}
	if cfg.Throttle == nil {
		cfg.Throttle = NewOTPThrottle(0)
	}
	if cfg.SigninExpiry <= 0 {
		cfg.SigninExpiry = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:        cfg.Store,
		jwt:          cfg.JWT,
		envelope:     cfg.Envelope,
		blacklist:    cfg.Blacklist,
		otps:         cfg.OTPs,
		throttle:     cfg.Throttle,
		google:       cfg.Google,
		notifier:     cfg.Notifier,
		signinExpiry: cfg.SigninExpiry,
		logger:       cfg.Logger,
	}
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func validOTPType(t string) bool {
	switch t {
	case models.OTPTypeSignup, models.OTPTypePassword, models.OTPTypeLink:
		return true
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) issue(user *models.User, extra Claims) (string, error) {
	extra.UserID = user.ID
	extra.Email = user.EmailValue()
	extra.PrincipalID = user.PrincipalValue()
	return s.jwt.CreateToken(extra, s.signinExpiry)
}

// SendOTP issues a code for email. Signup requires the address to be free;
// password and link require an existing account.
func (s *Service) SendOTP(ctx context.Context, email, otpType string) error {
	email = normalizeEmail(email)
	if !validOTPType(otpType) {
		return ErrInvalidOTPType
	}
	if !s.throttle.Allow(email) {
		return ErrOTPThrottled
	}

	exists, err := s.store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if otpType == models.OTPTypeSignup && exists {
		return ErrUserExists
	}
	if otpType != models.OTPTypeSignup && !exists {
		return ErrUserNotFound
	}

	code, err := s.otps.Generate()
	if err != nil {
		return err
	}
	if _, err := s.store.OTPs().Upsert(ctx, email, OTPValue(email, code)); err != nil {
		return fmt.Errorf("storing otp: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.SendOTP(ctx, email, code, otpType); err != nil {
			return fmt.Errorf("sending otp: %w", err)
		}
	}

	s.logger.Debug("otp issued", "email", email, "type", otpType)
	return nil
}

// VerifyOTP marks the code as verified. For password and link codes it also
// returns a short-lived token bound to the OTP record.
func (s *Service) VerifyOTP(ctx context.Context, email, otpType, code string) (string, error) {
	email = normalizeEmail(email)
	if !validOTPType(otpType) {
		return "", ErrInvalidOTPType
	}

	otp, err := s.store.OTPs().FindUnconsumed(ctx, OTPValue(email, code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidOTP
		}
		return "", err
	}

	var user *models.User
	if otpType != models.OTPTypeSignup {
		user, err = s.store.Users().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", ErrUserNotFound
			}
			return "", err
		}
	}

	if err := s.store.OTPs().SetValid(ctx, otp.ID, true); err != nil {
		return "", err
	}

	if user == nil {
		return "", nil
	}
	return s.jwt.CreateToken(Claims{
		UserID: user.ID,
		Email:  email,
		OTPID:  otp.ID.String(),
	}, OTPExpiry)
}

type SignupInput struct {
	Email    string
	Password string
	Username string
}

func (s *Service) SignupWithEmailPassword(ctx context.Context, input SignupInput) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)

	exists, err := s.store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	otp, err := s.store.OTPs().FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if otp == nil || !otp.IsValid {
		return nil, ErrEmailNotVerified
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	username := input.Username
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	user := models.User{
		Email:        &email,
		Username:     username,
		PasswordHash: hash,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users().Create(ctx, &user); err != nil {
			return err
		}
		return tx.OTPs().SetValid(ctx, otp.ID, false)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	token, err := s.issue(&user, Claims{})
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: &user}, nil
}

// SigninWithEmailPassword distinguishes an unknown email (ErrInvalidCredentials)
// from a wrong password (ErrWrongPassword).
func (s *Service) SigninWithEmailPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrWrongPassword
	}

	token, err := s.issue(user, Claims{})
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *Service) GoogleAuthURL() (string, error) {
	if s.google == nil {
		return "", ErrOAuthNotConfigured
	}
	state, err := crypto.GenerateRandomString(24)
	if err != nil {
		return "", err
	}
	return s.google.AuthCodeURL(state), nil
}

// SigninWithGoogle links the Google account to an existing user with the
// same email, or creates one.
func (s *Service) SigninWithGoogle(ctx context.Context, code string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrOAuthNotConfigured
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("google exchange failed", "error", err)
		return nil, ErrOAuthFailed
	}
	email := normalizeEmail(identity.Email)

	users := s.store.Users()
	user, err := users.FindByGoogleID(ctx, identity.Subject)
	if errors.Is(err, store.ErrNotFound) {
		user, err = users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if err := users.Update(ctx, user.ID, map[string]interface{}{"google_id": identity.Subject}); err != nil {
				return nil, err
			}
			user.GoogleID = &identity.Subject
		case errors.Is(err, store.ErrNotFound):
			username := identity.Name
			if username == "" {
				username, _, _ = strings.Cut(email, "@")
			}
			user = &models.User{Email: &email, GoogleID: &identity.Subject, Username: username}
			if err := users.Create(ctx, user); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	token, err := s.issue(user, Claims{})
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// CliSigninInput carries either Email and Password or Identity, the
// envelope of {principalId, encryptedPassword}.
type CliSigninInput struct {
	Email           string
	Password        string
	Identity        string
	PrincipalID     string
	Username        string
	ProjectTokenRef string
}

// CliIdentity is the decrypted form of the identity a CLI presents instead of
// email and password.
type CliIdentity struct {
	PrincipalID       string `json:"principalId"`
	EncryptedPassword string `json:"encryptedPassword"`
}

func (s *Service) SigninWithCli(ctx context.Context, input CliSigninInput) (*AuthResponse, error) {
	hasPassword := input.Email != "" || input.Password != ""
	hasIdentity := input.Identity != ""
	if hasPassword == hasIdentity {
		return nil, ErrAmbiguousCredentials
	}

	var (
		user     *models.User
		password string
		err      error
	)
	if hasIdentity {
		var id CliIdentity
		if err := s.envelope.DecryptJSON(input.Identity, &id); err != nil || id.PrincipalID == "" {
			return nil, ErrInvalidIdentity
		}
		password, err = s.envelope.Decrypt(id.EncryptedPassword)
		if err != nil {
			return nil, ErrInvalidIdentity
		}
		user, err = s.store.Users().FindByPrincipal(ctx, id.PrincipalID)
	} else {
		password = input.Password
		user, err = s.store.Users().FindByEmail(ctx, normalizeEmail(input.Email))
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrWrongPassword
	}

	now := time.Now()
	fields := map[string]interface{}{"last_cli_signin_at": now}
	if input.Username != "" {
		fields["username"] = input.Username
		user.Username = input.Username
	}
	if user.PrincipalID == nil && input.PrincipalID != "" {
		fields["principal_id"] = input.PrincipalID
		user.PrincipalID = &input.PrincipalID
	}
	if err := s.store.Users().Update(ctx, user.ID, fields); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrInvalidIdentity
		}
		return nil, err
	}
	user.LastCliSigninAt = &now

	var extra Claims
	if input.ProjectTokenRef != "" {
		extra, err = s.resolveProjectToken(ctx, user, input.ProjectTokenRef)
		if err != nil {
			return nil, err
		}
	}

	token, err := s.issue(user, extra)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// resolveProjectToken checks a delegated token handed back by the CLI and
// returns its project claims.
func (s *Service) resolveProjectToken(ctx context.Context, user *models.User, ref string) (Claims, error) {
	signed, err := s.envelope.Decrypt(ref)
	if err != nil {
		return Claims{}, ErrInvalidProjectToken
	}
	claims, ok := s.jwt.VerifyToken(signed)
	if !ok || !claims.Delegated() || claims.UserID != user.ID || claims.ProjectID == "" {
		return Claims{}, ErrInvalidProjectToken
	}
	if _, err := s.store.Tokens().FindValidByValue(ctx, ref, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Claims{}, ErrInvalidProjectToken
		}
		return Claims{}, err
	}
	return Claims{
		ProjectID:       claims.ProjectID,
		ProjectName:     claims.ProjectName,
		DatabaseVersion: claims.DatabaseVersion,
		Duration:        claims.Duration,
	}, nil
}

type IdentityResponse struct {
	Token             string       `json:"token"`
	EncryptedPassword string       `json:"encryptedPassword"`
	User              *models.User `json:"user"`
}

// SigninWithInternetIdentity finds or creates the user for principalID and
// rotates its generated password. The new password is returned encrypted so
// the client can build a CLI identity from it.
func (s *Service) SigninWithInternetIdentity(ctx context.Context, principalID string) (*IdentityResponse, error) {
	password, err := crypto.GenerateRandomString(generatedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		existing, err := tx.Users().FindByPrincipal(ctx, principalID)
		switch {
		case err == nil:
			user = existing
			user.PasswordHash = hash
			return tx.Users().Update(ctx, user.ID, map[string]interface{}{"password_hash": hash})
		case errors.Is(err, store.ErrNotFound):
			user = &models.User{PrincipalID: &principalID, Username: principalID, PasswordHash: hash}
			return tx.Users().Create(ctx, user)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := s.envelope.Encrypt(password)
	if err != nil {
		return nil, err
	}
	token, err := s.issue(user, Claims{})
	if err != nil {
		return nil, err
	}
	return &IdentityResponse{Token: token, EncryptedPassword: encrypted, User: user}, nil
}

// ForgotPassword sets a new password for a user holding a verified OTP.
// When otpID is set it must match the verified record.
func (s *Service) ForgotPassword(ctx context.Context, userID uuid.UUID, otpID, password string) error {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	otp, err := s.store.OTPs().FindByEmail(ctx, user.EmailValue())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if !otp.IsValid || (otpID != "" && otp.ID.String() != otpID) {
		return ErrInvalidOTP
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users().Update(ctx, user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
			return err
		}
		return tx.OTPs().SetValid(ctx, otp.ID, false)
	})
}

// Signout revokes token until exp.
func (s *Service) Signout(ctx context.Context, token string, exp time.Time) error {
	return s.blacklist.Add(ctx, token, exp)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().FindByIDWithCanisters(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Encrypt and Decrypt expose the payload envelope to authenticated clients.
func (s *Service) Encrypt(plaintext string) (string, error) {
	return s.envelope.Encrypt(plaintext)
}

func (s *Service) Decrypt(ciphertext string) (string, error) {
	return s.envelope.Decrypt(ciphertext)
}
