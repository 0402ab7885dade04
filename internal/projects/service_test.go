package projects_test

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/blob"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/projects"
	"github.com/hugh/canicloud/internal/testutil"
	"github.com/hugh/canicloud/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, tc *testutil.TestSetup) (*projects.Service, *blob.MemoryStore) {
	t.Helper()
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	blobs := blob.NewMemoryStore()
	return projects.NewService(tc.Store, tc.JWTService, tc.Envelope, enc, blobs, nil), blobs
}

func TestCreate(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, _ := newService(t, tc)

	t.Run("defaults to free tier", func(t *testing.T) {
		p, err := svc.Create(ctx, tc.User.ID, projects.CreateInput{Name: "acme"})
		require.NoError(t, err)
		assert.Equal(t, models.DatabaseVersionFree, p.DatabaseVersion)
		assert.False(t, p.IsActive)
	})

	t.Run("name unique per owner", func(t *testing.T) {
		_, err := svc.Create(ctx, tc.User.ID, projects.CreateInput{Name: "acme"})
		assert.ErrorIs(t, err, projects.ErrNameInUse)

		other := testutil.CreateTestUser(t, tc.DB)
		_, err = svc.Create(ctx, other.ID, projects.CreateInput{Name: "acme"})
		assert.NoError(t, err)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := svc.Create(ctx, tc.User.ID, projects.CreateInput{Name: "  "})
		assert.ErrorIs(t, err, projects.ErrInvalidName)

		_, err = svc.Create(ctx, tc.User.ID, projects.CreateInput{Name: "x", DatabaseVersion: "enterprise"})
		assert.ErrorIs(t, err, projects.ErrInvalidDatabaseVersion)
	})

	t.Run("limit", func(t *testing.T) {
		owner := testutil.CreateTestUser(t, tc.DB)
		for i := 0; i < projects.MaxProjectsPerOwner; i++ {
			_, err := svc.Create(ctx, owner.ID, projects.CreateInput{Name: fmt.Sprintf("p%d", i)})
			require.NoError(t, err)
		}
		_, err := svc.Create(ctx, owner.ID, projects.CreateInput{Name: "one-too-many"})
		assert.ErrorIs(t, err, projects.ErrProjectLimit)
	})
}

func TestCreate_ConcurrentRequestsRespectLimit(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, _ := newService(t, tc)

	const attempts = projects.MaxProjectsPerOwner + 5
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, tc.User.ID, projects.CreateInput{Name: fmt.Sprintf("race-%d", i)})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, projects.ErrProjectLimit)
	}
	assert.Equal(t, projects.MaxProjectsPerOwner, created)

	list, err := svc.List(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.Len(t, list, projects.MaxProjectsPerOwner)
}

func TestGetAndList(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, _ := newService(t, tc)

	list, err := svc.List(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "mine")

	got, err := svc.Get(ctx, tc.User.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Name)

	other := testutil.CreateTestUser(t, tc.DB)
	_, err = svc.Get(ctx, other.ID, p.ID)
	assert.ErrorIs(t, err, projects.ErrNotFound)

	list, err = svc.List(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestActivateDeactivate(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, _ := newService(t, tc)

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "deploy")

	activated, err := svc.Activate(ctx, tc.User.ID, p.ID, projects.ActivateInput{
		DatabaseVersion: models.DatabaseVersionPremium,
		URL:             "https://acme.example",
		CanisterID:      "rrkah-fqaaa",
		Controllers:     []string{"ctrl-1", "ctrl-2"},
	})
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	assert.Equal(t, models.DatabaseVersionPremium, activated.DatabaseVersion)
	assert.Equal(t, models.StringArray{"ctrl-1", "ctrl-2"}, activated.Controllers)

	user, err := tc.Store.Users().FindByIDWithCanisters(ctx, tc.User.ID)
	require.NoError(t, err)
	require.Len(t, user.Canisters, 1)
	assert.Equal(t, "rrkah-fqaaa", user.Canisters[0].CanisterID)
	assert.Equal(t, p.ID, user.Canisters[0].ProjectID)

	deactivated, err := svc.Deactivate(ctx, tc.User.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	_, err = svc.Activate(ctx, uuid.New(), p.ID, projects.ActivateInput{})
	assert.ErrorIs(t, err, projects.ErrNotFound)
}

func TestTokens(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, _ := newService(t, tc)

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "tokens")

	t.Run("minted token verifies back to its claims", func(t *testing.T) {
		tok, err := svc.CreateToken(ctx, tc.User.ID, p.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, 30, tok.Duration)

		signed, err := tc.Envelope.Decrypt(tok.Value)
		require.NoError(t, err)
		claims, ok := tc.JWTService.VerifyToken(signed)
		require.True(t, ok)
		assert.Equal(t, tc.User.ID, claims.UserID)
		assert.Equal(t, p.ID.String(), claims.ProjectID)
		assert.Equal(t, "tokens", claims.ProjectName)
		assert.Equal(t, "free", claims.DatabaseVersion)
		assert.Equal(t, 30, claims.Duration)
		assert.True(t, claims.Delegated())
	})

	t.Run("invalid duration", func(t *testing.T) {
		_, err := svc.CreateToken(ctx, tc.User.ID, p.ID, 0)
		assert.ErrorIs(t, err, projects.ErrInvalidDuration)
	})

	t.Run("list and delete", func(t *testing.T) {
		list, err := svc.ListTokens(ctx, tc.User.ID, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		other := testutil.CreateTestUser(t, tc.DB)
		assert.ErrorIs(t, svc.DeleteToken(ctx, other.ID, list[0].ID), projects.ErrTokenNotFound)

		require.NoError(t, svc.DeleteToken(ctx, tc.User.ID, list[0].ID))
		list, err = svc.ListTokens(ctx, tc.User.ID, p.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("limit per user", func(t *testing.T) {
		for i := 0; i < projects.MaxTokensPerUser; i++ {
			_, err := svc.CreateToken(ctx, tc.User.ID, p.ID, 1)
			require.NoError(t, err)
		}
		_, err := svc.CreateToken(ctx, tc.User.ID, p.ID, 1)
		assert.ErrorIs(t, err, projects.ErrTokenLimit)
	})
}

func TestCode(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, blobs := newService(t, tc)

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "code")

	_, err := svc.DownloadCode(ctx, tc.User.ID, p.ID)
	assert.ErrorIs(t, err, projects.ErrNoCode)

	source := "export default function handler() {}"
	require.NoError(t, svc.UploadCode(ctx, tc.User.ID, p.ID, strings.NewReader(source)))
	assert.Equal(t, 1, blobs.Len())

	stored, err := blobs.Get(ctx, projects.CodeKey(p.ID))
	require.NoError(t, err)
	raw, err := io.ReadAll(stored)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "handler")

	rc, err := svc.DownloadCode(ctx, tc.User.ID, p.ID)
	require.NoError(t, err)
	defer rc.Close()
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, source, string(out))

	require.NoError(t, blobs.Delete(ctx, projects.CodeKey(p.ID)))
	_, err = svc.DownloadCode(ctx, tc.User.ID, p.ID)
	assert.ErrorIs(t, err, projects.ErrNoCode)
}

func TestDelete(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc, blobs := newService(t, tc)

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "doomed")
	_, err := svc.CreateToken(ctx, tc.User.ID, p.ID, 7)
	require.NoError(t, err)
	require.NoError(t, svc.UploadCode(ctx, tc.User.ID, p.ID, strings.NewReader("code")))

	other := testutil.CreateTestUser(t, tc.DB)
	assert.ErrorIs(t, svc.Delete(ctx, other.ID, p.ID), projects.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, tc.User.ID, p.ID))
	assert.Equal(t, 0, blobs.Len())

	_, err = svc.Get(ctx, tc.User.ID, p.ID)
	assert.ErrorIs(t, err, projects.ErrNotFound)

	count, err := tc.Store.Tokens().CountByUser(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// name is free again after delete
	_, err = svc.Create(ctx, tc.User.ID, projects.CreateInput{Name: "doomed"})
	assert.NoError(t, err)
}
