package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/hugh/canicloud/internal/api/dto"
	"github.com/hugh/canicloud/internal/api/middleware"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/auth"
)

type AuthHandler struct {
	authService  *auth.Service
	rs           *respond.Responder
	secureCookie bool
	cookieMaxAge int
}

func NewAuthHandler(authService *auth.Service, rs *respond.Responder, secureCookie bool, signinExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		rs:           rs,
		secureCookie: secureCookie,
		cookieMaxAge: int(signinExpiry.Seconds()),
	}
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// fail maps service errors onto responses. Unknown errors become 500.
func (h *AuthHandler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrInvalidOTPType),
		errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, auth.ErrAmbiguousCredentials),
		errors.Is(err, auth.ErrInvalidIdentity),
		errors.Is(err, auth.ErrOAuthFailed):
		h.rs.Fail(w, http.StatusBadRequest, action, err.Error())
	case errors.Is(err, auth.ErrWrongPassword):
		h.rs.Fail(w, http.StatusUnauthorized, action, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrInvalidProjectToken):
		h.rs.Fail(w, http.StatusUnauthorized, action, err.Error())
	case errors.Is(err, auth.ErrOTPThrottled):
		h.rs.Fail(w, http.StatusTooManyRequests, action, err.Error())
	default:
		h.rs.Error(w, http.StatusInternalServerError, action, "internal server error", err)
	}
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	const action = "sendOtp"
	var req dto.SendOTPRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	if err := h.authService.SendOTP(r.Context(), req.Email, req.Type); err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "otp sent.", nil)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	const action = "verifyOtp"
	var req dto.VerifyOTPRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	token, err := h.authService.VerifyOTP(r.Context(), req.Email, req.Type, req.OTP)
	if err != nil {
		h.fail(w, action, err)
		return
	}

	var data interface{}
	if token != "" {
		data = map[string]string{"accessToken": token}
	}
	h.rs.Success(w, http.StatusOK, action, "otp verified.", data)
}

func (h *AuthHandler) SignupWithEmailPassword(w http.ResponseWriter, r *http.Request) {
	const action = "signupWithEP"
	var req dto.SignupRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	resp, err := h.authService.SignupWithEmailPassword(r.Context(), auth.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		h.fail(w, action, err)
		return
	}

	h.setTokenCookie(w, resp.Token, h.cookieMaxAge)
	h.rs.Success(w, http.StatusCreated, action, "signup success.", dto.AuthResponse{
		AccessToken: resp.Token,
		User:        dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) SigninWithEmailPassword(w http.ResponseWriter, r *http.Request) {
	const action = "signin"
	var req dto.SigninRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	resp, err := h.authService.SigninWithEmailPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, action, err)
		return
	}

	h.setTokenCookie(w, resp.Token, h.cookieMaxAge)
	h.rs.Success(w, http.StatusOK, action, "signin success.", dto.AuthResponse{
		AccessToken: resp.Token,
		User:        dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) GetOAuthURL(w http.ResponseWriter, r *http.Request) {
	const action = "getOAuthUrl"
	url, err := h.authService.GoogleAuthURL()
	if errors.Is(err, auth.ErrOAuthNotConfigured) {
		h.rs.Fail(w, http.StatusInternalServerError, action, err.Error())
		return
	}
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "oauth url created.", map[string]string{"url": url})
}

func (h *AuthHandler) signinWithGoogle(w http.ResponseWriter, r *http.Request, code string) {
	const action = "signinWithGoogle"
	resp, err := h.authService.SigninWithGoogle(r.Context(), code)
	if errors.Is(err, auth.ErrOAuthNotConfigured) {
		h.rs.Fail(w, http.StatusInternalServerError, action, err.Error())
		return
	}
	if err != nil {
		h.fail(w, action, err)
		return
	}

	h.setTokenCookie(w, resp.Token, h.cookieMaxAge)
	h.rs.Success(w, http.StatusOK, action, "signin success.", dto.AuthResponse{
		AccessToken: resp.Token,
		User:        dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) SigninWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req dto.GoogleSigninRequest
	if !bind(w, r, h.rs, "signinWithGoogle", &req) {
		return
	}
	h.signinWithGoogle(w, r, req.Code)
}

// GoogleCallback is the OAuth redirect target.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	req := dto.GoogleSigninRequest{Code: r.URL.Query().Get("code")}
	if errs := req.Validate(); len(errs) > 0 {
		h.rs.Invalid(w, "signinWithGoogle", errs)
		return
	}
	h.signinWithGoogle(w, r, req.Code)
}

func (h *AuthHandler) SigninWithCli(w http.ResponseWriter, r *http.Request) {
	const action = "signinWithCli"
	var req dto.CliSigninRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	resp, err := h.authService.SigninWithCli(r.Context(), auth.CliSigninInput{
		Email:           req.Email,
		Password:        req.Password,
		Identity:        req.Identity,
		PrincipalID:     req.PrincipalID,
		Username:        req.Username,
		ProjectTokenRef: req.ProjectTokenRef,
	})
	if err != nil {
		h.fail(w, action, err)
		return
	}

	h.rs.Success(w, http.StatusOK, action, "signin success.", dto.AuthResponse{
		AccessToken: resp.Token,
		User:        dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) SigninWithInternetIdentity(w http.ResponseWriter, r *http.Request) {
	const action = "signinWithII"
	var req dto.IISigninRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	resp, err := h.authService.SigninWithInternetIdentity(r.Context(), req.PrincipalID)
	if err != nil {
		h.fail(w, action, err)
		return
	}

	h.setTokenCookie(w, resp.Token, h.cookieMaxAge)
	h.rs.Success(w, http.StatusOK, action, "signin success.", dto.IdentityResponse{
		AccessToken:       resp.Token,
		EncryptedPassword: resp.EncryptedPassword,
		User:              dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const action = "forgotPassword"
	var req dto.ForgotPasswordRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	var otpID string
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		otpID = claims.OTPID
	}

	if err := h.authService.ForgotPassword(r.Context(), middleware.GetUserID(r.Context()), otpID, req.Password); err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "password updated.", nil)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	const action = "signout"

	var exp time.Time
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		exp = claims.ExpiryTime()
	}

	if err := h.authService.Signout(r.Context(), middleware.GetToken(r.Context()), exp); err != nil {
		h.rs.Error(w, http.StatusInternalServerError, action, "internal server error", err)
		return
	}

	h.setTokenCookie(w, "", -1)
	h.rs.Success(w, http.StatusOK, action, "user signed out", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	const action = "me"
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "user fetched.", dto.NewUserDTO(user))
}

func (h *AuthHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	const action = "encrypt"
	var req dto.CryptoRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	ct, err := h.authService.Encrypt(req.Text())
	if err != nil {
		h.rs.Error(w, http.StatusInternalServerError, action, "internal server error", err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "data encrypted.", dto.CryptoResponse{Data: ct})
}

func (h *AuthHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	const action = "decrypt"
	var req dto.CryptoRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	plain, err := h.authService.Decrypt(req.Text())
	if err != nil {
		h.rs.Fail(w, http.StatusBadRequest, action, "invalid data")
		return
	}
	h.rs.Success(w, http.StatusOK, action, "data decrypted.", dto.CryptoResponse{Data: plain})
}
