package dto

import (
	"strings"
	"time"

	"github.com/hugh/canicloud/internal/api/validation"
	"github.com/hugh/canicloud/internal/database/models"
)

var otpTypes = map[string]bool{
	models.OTPTypeSignup:   true,
	models.OTPTypePassword: true,
	models.OTPTypeLink:     true,
}

func validateEmail(errors map[string]string, email string) {
	if email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(email)) {
		errors["email"] = "Email is invalid"
	}
}

func validatePassword(errors map[string]string, password string) {
	if password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(password); !ok {
		errors["password"] = msg
	}
}

type SendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (r SendOTPRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateEmail(errors, r.Email)
	if !otpTypes[r.Type] {
		errors["type"] = "Type must be one of signup, password, link"
	}
	return errors
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	OTP   string `json:"otp"`
}

func (r VerifyOTPRequest) Validate() map[string]string {
	errors := SendOTPRequest{Email: r.Email, Type: r.Type}.Validate()
	if !validation.IsValidOTP(r.OTP) {
		errors["otp"] = "OTP must be 6 digits"
	}
	return errors
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateEmail(errors, r.Email)
	validatePassword(errors, r.Password)
	if len(r.Username) > validation.MaxNameLength {
		errors["username"] = "Username is too long"
	}
	return errors
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SigninRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateEmail(errors, r.Email)
	if r.Password == "" {
		errors["password"] = "Password is required"
	}
	return errors
}

type GoogleSigninRequest struct {
	Code string `json:"code"`
}

func (r GoogleSigninRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Code == "" {
		errors["code"] = "Authorization code is required"
	}
	return errors
}

// CliSigninRequest accepts either email and password or identity. Choosing
// between the two is checked by the service.
type CliSigninRequest struct {
	Email           string `json:"email,omitempty"`
	Password        string `json:"password,omitempty"`
	Identity        string `json:"identity,omitempty"`
	PrincipalID     string `json:"principalId,omitempty"`
	Username        string `json:"username,omitempty"`
	ProjectTokenRef string `json:"projectTokenRef,omitempty"`
}

func (r CliSigninRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Identity == "" {
		validateEmail(errors, r.Email)
		if r.Password == "" {
			errors["password"] = "Password is required"
		}
	}
	if r.PrincipalID != "" && !validation.IsValidPrincipal(r.PrincipalID) {
		errors["principalId"] = "Principal is invalid"
	}
	if len(r.Username) > validation.MaxNameLength {
		errors["username"] = "Username is too long"
	}
	return errors
}

type IISigninRequest struct {
	PrincipalID string `json:"principalId"`
}

func (r IISigninRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidPrincipal(r.PrincipalID) {
		errors["principalId"] = "Principal is invalid"
	}
	return errors
}

type ForgotPasswordRequest struct {
	Password string `json:"password"`
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validatePassword(errors, r.Password)
	return errors
}

type AuthResponse struct {
	AccessToken string  `json:"accessToken"`
	User        UserDTO `json:"user"`
}

type IdentityResponse struct {
	AccessToken       string  `json:"accessToken"`
	EncryptedPassword string  `json:"encryptedPassword"`
	User              UserDTO `json:"user"`
}

type UserDTO struct {
	ID              string        `json:"id"`
	Email           string        `json:"email,omitempty"`
	Username        string        `json:"username"`
	PrincipalID     string        `json:"principalId,omitempty"`
	Credits         int64         `json:"credits"`
	LastCliSigninAt *time.Time    `json:"lastCliSigninAt,omitempty"`
	Canisters       []CanisterDTO `json:"canisters,omitempty"`
}

type CanisterDTO struct {
	ProjectID   string   `json:"projectId"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	CanisterID  string   `json:"canisterId"`
	Status      string   `json:"status"`
	Controllers []string `json:"controllers"`
}

func NewUserDTO(u *models.User) UserDTO {
	out := UserDTO{
		ID:              u.ID.String(),
		Email:           u.EmailValue(),
		Username:        u.Username,
		PrincipalID:     u.PrincipalValue(),
		Credits:         u.Credits,
		LastCliSigninAt: u.LastCliSigninAt,
	}
	for _, c := range u.Canisters {
		out.Canisters = append(out.Canisters, CanisterDTO{
			ProjectID:   c.ProjectID.String(),
			Name:        c.Name,
			Type:        c.Type,
			URL:         c.URL,
			CanisterID:  c.CanisterID,
			Status:      c.Status,
			Controllers: []string(c.Controllers),
		})
	}
	return out
}
