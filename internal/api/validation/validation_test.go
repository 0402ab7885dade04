package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"valid_simple", "user@example.com", true},
		{"valid_subdomain", "user@mail.example.com", true},
		{"valid_plus", "user+tag@example.com", true},
		{"valid_dot", "user.name@example.com", true},
		{"invalid_no_at", "userexample.com", false},
		{"invalid_no_domain", "user@", false},
		{"invalid_no_user", "@example.com", false},
		{"invalid_double_at", "user@@example.com", false},
		{"invalid_spaces", "user @example.com", false},
		{"invalid_no_tld", "user@example", false},
		{"too_long", strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.email), "Email: %s", tt.email)
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("550e8400-e29b-41d4-a716-446655440000"))
	assert.True(t, IsValidUUID("550E8400-E29B-41D4-A716-446655440000"))
	assert.False(t, IsValidUUID("550e8400e29b41d4a716446655440000"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidOTP(t *testing.T) {
	assert.True(t, IsValidOTP("123456"))
	assert.True(t, IsValidOTP("000000"))
	assert.False(t, IsValidOTP("12345"))
	assert.False(t, IsValidOTP("1234567"))
	assert.False(t, IsValidOTP("12a456"))
}

func TestIsValidPrincipal(t *testing.T) {
	tests := []struct {
		principal string
		valid     bool
	}{
		{"rrkah-fqaaa-aaaaa-aaaaq-cai", true},
		{"2vxsx-fae", true},
		{"aaaaa", false},
		{"RRKAH-FQAAA", false},
		{"abc-def-18", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.principal, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidPrincipal(tt.principal))
		})
	}
}

func TestIsValidProjectName(t *testing.T) {
	assert.True(t, IsValidProjectName("acme"))
	assert.True(t, IsValidProjectName("My Project_2.0"))
	assert.False(t, IsValidProjectName(""))
	assert.False(t, IsValidProjectName("   "))
	assert.False(t, IsValidProjectName("-leading"))
	assert.False(t, IsValidProjectName("bad/name"))
	assert.False(t, IsValidProjectName(strings.Repeat("a", MaxNameLength+1)))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://acme.icp0.io"))
	assert.True(t, IsValidURL("http://localhost:4943"))
	assert.False(t, IsValidURL("ftp://example.com"))
	assert.False(t, IsValidURL("acme.icp0.io"))
	assert.False(t, IsValidURL(""))
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "hunter22!", true},
		{"min_length", "12345678", true},
		{"max_length", strings.Repeat("x", MaxPasswordLength), true},
		{"too_short", "short", false},
		{"too_long", strings.Repeat("x", MaxPasswordLength+1), false},
		{"control_chars", "pass\x00word", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := IsValidPassword(tt.password)
			assert.Equal(t, tt.valid, valid)
			if !tt.valid {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hel\x00lo"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "ab", SanitizeString("a\x07b"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel", TruncateString("hello", 3))
}
