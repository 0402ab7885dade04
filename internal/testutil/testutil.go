package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/database"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/pkg/cache"
	"github.com/hugh/canicloud/pkg/crypto"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every pooled connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestUser creates an email user whose password is TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	email := "test-" + uuid.New().String()[:8] + "@example.com"
	user := &models.User{
		Base:         models.Base{ID: uuid.New()},
		Email:        &email,
		Username:     "Test User",
		PasswordHash: hash,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

func CreateTestProject(t *testing.T, db *gorm.DB, ownerID uuid.UUID, name string) *models.Project {
	t.Helper()

	project := &models.Project{
		Base:            models.Base{ID: uuid.New()},
		OwnerID:         ownerID,
		Name:            name,
		DatabaseVersion: models.DatabaseVersionFree,
	}

	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}

	return project
}

// CreateTestPayment creates an initiated payment for the project.
func CreateTestPayment(t *testing.T, db *gorm.DB, userID, projectID uuid.UUID, orderID string, version models.DatabaseVersion) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		Provider:        "fake",
		OrderID:         orderID,
		UserID:          userID,
		ProjectID:       projectID,
		DatabaseVersion: version,
		Amount:          10,
		Status:          models.PaymentStatusInitiated,
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}

	return payment
}

func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", "canicloud-test")
}

func CreateTestEnvelope(t *testing.T) *crypto.Envelope {
	t.Helper()

	env, err := crypto.NewEnvelope("test-envelope-key", "test-randomizer")
	if err != nil {
		t.Fatalf("failed to create envelope: %v", err)
	}
	return env
}

// GenerateTestToken generates a valid session token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.CreateToken(auth.Claims{
		UserID: user.ID,
		Email:  user.EmailValue(),
	}, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with a plain JSON body.
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// EncryptedRequest wraps body as {"data": "<ciphertext>"}.
func EncryptedRequest(t *testing.T, env *crypto.Envelope, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	ct, err := env.EncryptJSON(body)
	if err != nil {
		t.Fatalf("failed to encrypt request body: %v", err)
	}
	return AuthenticatedRequest(t, method, path, map[string]string{"data": ct}, token)
}

// EncryptParam returns the ciphertext used in /{data} path segments.
func EncryptParam(t *testing.T, env *crypto.Envelope, v interface{}) string {
	t.Helper()

	ct, err := env.EncryptJSON(v)
	if err != nil {
		t.Fatalf("failed to encrypt param: %v", err)
	}
	return ct
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// Envelope mirrors the response body with data left undecoded.
type Envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Action  string          `json:"action"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func ParseEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
	return env
}

// ParseData decodes the envelope's data field into v.
func ParseData(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) Envelope {
	t.Helper()

	env := ParseEnvelope(t, rr)
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to parse response data: %v. Body: %s", err, rr.Body.String())
	}
	return env
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	Store      *store.Store
	JWTService *auth.JWTService
	Envelope   *crypto.Envelope
	Blacklist  *auth.Blacklist
	User       *models.User
	Token      string

	cache *cache.MemoryStore
}

// NewTestContext creates a complete test setup with DB, user, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db)
	token := GenerateTestToken(t, jwtService, user)
	mem := cache.NewMemoryStore(time.Minute)

	return &TestSetup{
		DB:         db,
		Store:      store.New(db),
		JWTService: jwtService,
		Envelope:   CreateTestEnvelope(t),
		Blacklist:  auth.NewBlacklist(mem),
		User:       user,
		Token:      token,
		cache:      mem,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.cache != nil {
		ts.cache.Close()
	}
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
