package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/testutil"
	"github.com/hugh/canicloud/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthMiddleware(tc *testutil.TestSetup) func(http.Handler) http.Handler {
	svc := auth.NewService(auth.ServiceConfig{
		Store:     tc.Store,
		JWT:       tc.JWTService,
		Envelope:  tc.Envelope,
		Blacklist: tc.Blacklist,
	})
	return Auth(tc.JWTService, tc.Blacklist, svc, respond.New(true, util.NewNopLogger()))
}

func okHandler(t *testing.T, tc *testutil.TestSetup) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tc.User.ID, GetUserID(r.Context()))
		require.NotNil(t, GetClaims(r.Context()))
		assert.Equal(t, tc.User.EmailValue(), GetClaims(r.Context()).Email)
		assert.NotEmpty(t, GetToken(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_TokenSources(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	handler := newAuthMiddleware(tc)(okHandler(t, tc))

	tests := []struct {
		name  string
		apply func(r *http.Request)
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tc.Token) }},
		{"bare_authorization", func(r *http.Request) { r.Header.Set("Authorization", tc.Token) }},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: tc.Token}) }},
		{"x_access_token", func(r *http.Request) { r.Header.Set("X-Access-Token", tc.Token) }},
		{"token_header", func(r *http.Request) { r.Header.Set("Token", tc.Token) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/a/me", nil)
			tt.apply(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("body", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/a/me", map[string]string{"token": tc.Token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuth_Rejections(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	handler := newAuthMiddleware(tc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: tc.User.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "canicloud-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("test-secret-key-for-testing"))
	require.NoError(t, err)

	foreign, err := auth.NewJWTService("another-secret", "x").CreateToken(auth.Claims{UserID: tc.User.ID}, time.Hour)
	require.NoError(t, err)

	revoked := testutil.GenerateTestToken(t, tc.JWTService, tc.User)
	require.NoError(t, tc.Blacklist.Add(testutil.TestContext(t), revoked, time.Now().Add(time.Hour)))

	delegated, err := tc.JWTService.CreateToken(auth.Claims{
		UserID:    tc.User.ID,
		ProjectID: "p-1",
		Use:       auth.TokenUseProject,
	}, time.Hour)
	require.NoError(t, err)

	deletedUser := testutil.CreateTestUser(t, tc.DB)
	deletedToken := testutil.GenerateTestToken(t, tc.JWTService, deletedUser)
	require.NoError(t, tc.Store.Users().Update(testutil.TestContext(t), deletedUser.ID, map[string]interface{}{"deleted": true}))

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", "authorization token is required"},
		{"garbage", "not-a-jwt", "invalid or expired token"},
		{"expired", expired, "invalid or expired token"},
		{"wrong_secret", foreign, "invalid or expired token"},
		{"revoked", revoked, "token has been revoked"},
		{"delegated_project_token", delegated, "invalid or expired token"},
		{"deleted_user", deletedToken, "user not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, http.MethodGet, "/a/me", nil, tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			testutil.AssertStatus(t, rec, http.StatusUnauthorized)
			env := testutil.ParseEnvelope(t, rec)
			assert.Equal(t, "fail", env.Status)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestContextGetters_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetUser(req.Context()))
	assert.Nil(t, GetClaims(req.Context()))
	assert.Empty(t, GetToken(req.Context()))
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", GetUserID(req.Context()).String())
}
