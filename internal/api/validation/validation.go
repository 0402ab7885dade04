package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
	MaxNameLength     = 64
	MaxTokenDays      = 365
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	otpRegex = regexp.MustCompile(`^[0-9]{6}$`)

	// Textual principal and canister ids: dash separated groups of
	// lowercase base32.
	principalRegex = regexp.MustCompile(`^[a-z2-7]{1,5}(-[a-z2-7]{1,5})+$`)

	projectNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _.\-]*$`)
)

func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// IsValidOTP accepts six digits.
func IsValidOTP(code string) bool {
	return otpRegex.MatchString(code)
}

func IsValidPrincipal(principal string) bool {
	if len(principal) > 63 {
		return false
	}
	return principalRegex.MatchString(principal)
}

func IsValidProjectName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return false
	}
	return projectNameRegex.MatchString(name)
}

// IsValidURL accepts absolute http and https URLs.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidPassword checks the length bounds. It returns the message to show
// when the password is rejected.
func IsValidPassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 8 characters long"
	}
	if len(password) > MaxPasswordLength {
		return false, "Password cannot exceed 20 characters"
	}
	for _, r := range password {
		if unicode.IsControl(r) {
			return false, "Password contains invalid characters"
		}
	}
	return true, ""
}

// SanitizeString removes null bytes and control characters other than
// newlines and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
