package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/canicloud/internal/api"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/blob"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/payments"
	"github.com/hugh/canicloud/internal/projects"
	"github.com/hugh/canicloud/internal/testutil"
	"github.com/hugh/canicloud/pkg/crypto"
	"github.com/hugh/canicloud/pkg/util"
)

type testServer struct {
	*testutil.TestSetup
	router   *api.Router
	provider *testutil.FakeProvider
	blobs    *blob.MemoryStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tc := testutil.NewTestContext(t)
	logger := util.NewNopLogger()
	rs := respond.New(true, logger)

	encryptor, err := crypto.NewEncryptor("")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	authService := auth.NewService(auth.ServiceConfig{
		Store:        tc.Store,
		JWT:          tc.JWTService,
		Envelope:     tc.Envelope,
		Blacklist:    tc.Blacklist,
		SigninExpiry: time.Hour,
		Logger:       logger,
	})

	blobs := blob.NewMemoryStore()
	projectService := projects.NewService(tc.Store, tc.JWTService, tc.Envelope, encryptor, blobs, logger)

	provider := testutil.NewFakeProvider()
	paymentService := payments.NewService(payments.ServiceConfig{
		Store:           tc.Store,
		Providers:       map[string]payments.Provider{provider.Name(): provider},
		DefaultProvider: provider.Name(),
		Pricing:         payments.Pricing{Premium: 10, Professional: 25},
		Logger:          logger,
	})

	router := api.NewRouter(api.RouterConfig{
		DB:             tc.DB,
		Logger:         logger,
		Responder:      rs,
		Envelope:       tc.Envelope,
		Tokens:         tc.JWTService,
		Revoker:        tc.Blacklist,
		AuthService:    authService,
		ProjectService: projectService,
		PaymentService: paymentService,
		SigninExpiry:   time.Hour,
	})

	return &testServer{
		TestSetup: tc,
		router:    router,
		provider:  provider,
		blobs:     blobs,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// encrypted sends body as an envelope.
func (s *testServer) encrypted(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(testutil.EncryptedRequest(t, s.Envelope, method, path, body, token))
}

// projectPath builds /v/p/{data} for the given id and suffix.
func (s *testServer) projectPath(t *testing.T, id, suffix string) string {
	t.Helper()
	return "/v/p/" + testutil.EncryptParam(t, s.Envelope, map[string]string{"id": id}) + suffix
}

func (s *testServer) createProject(t *testing.T, name string) *models.Project {
	t.Helper()
	return testutil.CreateTestProject(t, s.DB, s.User.ID, name)
}
