package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestUserRepository(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	users := tc.Store.Users()

	t.Run("find by email", func(t *testing.T) {
		u, err := users.FindByEmail(ctx, tc.User.EmailValue())
		require.NoError(t, err)
		assert.Equal(t, tc.User.ID, u.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := users.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("deleted users are hidden", func(t *testing.T) {
		u := testutil.CreateTestUser(t, tc.DB)
		require.NoError(t, users.Update(ctx, u.ID, map[string]interface{}{"deleted": true}))

		_, err := users.FindByID(ctx, u.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		exists, err := users.ExistsByEmail(ctx, u.EmailValue())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		email := tc.User.EmailValue()
		err := users.Create(ctx, &models.User{Email: &email})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("deleted account frees its identity", func(t *testing.T) {
		email, principal := "gone@example.com", "principal-gone"
		old := &models.User{Email: &email, PrincipalID: &principal}
		require.NoError(t, users.Create(ctx, old))
		require.NoError(t, tc.DB.Model(&models.User{}).Where("id = ?", old.ID).Update("deleted", true).Error)

		fresh := &models.User{Email: &email, PrincipalID: &principal}
		require.NoError(t, users.Create(ctx, fresh))

		u, err := users.FindByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, fresh.ID, u.ID)

		dup := &models.User{Email: &email}
		assert.ErrorIs(t, users.Create(ctx, dup), store.ErrDuplicate)
	})

	t.Run("principal only users", func(t *testing.T) {
		p1, p2 := "principal-1", "principal-2"
		require.NoError(t, users.Create(ctx, &models.User{PrincipalID: &p1}))
		require.NoError(t, users.Create(ctx, &models.User{PrincipalID: &p2}))

		u, err := users.FindByPrincipal(ctx, p2)
		require.NoError(t, err)
		assert.Nil(t, u.Email)
	})

	t.Run("add credits", func(t *testing.T) {
		require.NoError(t, users.AddCredits(ctx, tc.User.ID, 10))
		require.NoError(t, users.AddCredits(ctx, tc.User.ID, 25))

		u, err := users.FindByID(ctx, tc.User.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(35), u.Credits)

		assert.ErrorIs(t, users.AddCredits(ctx, uuid.New(), 1), store.ErrNotFound)
	})

	t.Run("canisters", func(t *testing.T) {
		require.NoError(t, users.AddCanister(ctx, &models.UserCanister{
			UserID:      tc.User.ID,
			Name:        "acme",
			Controllers: models.StringArray{"ctrl"},
		}))

		u, err := users.FindByIDWithCanisters(ctx, tc.User.ID)
		require.NoError(t, err)
		require.Len(t, u.Canisters, 1)
		assert.Equal(t, models.StringArray{"ctrl"}, u.Canisters[0].Controllers)
	})
}

func TestOTPRepository_UpsertOverwrites(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	otps := tc.Store.OTPs()

	first, err := otps.Upsert(ctx, "a@example.com", "a@example.com-111111")
	require.NoError(t, err)
	require.NoError(t, otps.SetValid(ctx, first.ID, true))

	second, err := otps.Upsert(ctx, "a@example.com", "a@example.com-222222")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a@example.com-222222", second.Code)
	assert.False(t, second.IsValid)

	var count int64
	require.NoError(t, tc.DB.Model(&models.OTP{}).Where("email = ?", "a@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = otps.FindUnconsumed(ctx, "a@example.com-111111")
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := otps.FindUnconsumed(ctx, "a@example.com-222222")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestOTPRepository_DeleteStale(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	otps := tc.Store.OTPs()

	old, err := otps.Upsert(ctx, "old@example.com", "old@example.com-1")
	require.NoError(t, err)
	_, err = otps.Upsert(ctx, "new@example.com", "new@example.com-1")
	require.NoError(t, err)

	require.NoError(t, tc.DB.Model(&models.OTP{}).Where("id = ?", old.ID).
		UpdateColumn("updated_at", time.Now().Add(-48*time.Hour)).Error)

	n, err := otps.DeleteStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = otps.FindByEmail(ctx, "old@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = otps.Upsert(ctx, "old@example.com", "old@example.com-2")
	assert.NoError(t, err)
}

func TestProjectRepository(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	projects := tc.Store.Projects()

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "acme")
	other := testutil.CreateTestUser(t, tc.DB)

	exists, err := projects.ExistsByOwnerAndName(ctx, tc.User.ID, "acme")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = projects.ExistsByOwnerAndName(ctx, other.ID, "acme")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = projects.FindOwned(ctx, p.ID, other.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, projects.Update(ctx, p.ID, map[string]interface{}{"is_active": true}))
	got, err := projects.FindOwned(ctx, p.ID, tc.User.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.NoError(t, projects.Delete(ctx, p.ID))
	count, err := projects.CountByOwner(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	list, err := projects.ListByOwner(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPaymentRepository_Transition(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	payments := tc.Store.Payments()

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "acme")
	testutil.CreateTestPayment(t, tc.DB, tc.User.ID, p.ID, "ORDER-1", models.DatabaseVersionPremium)

	moved, err := payments.Transition(ctx, "ORDER-1", models.PaymentStatusInitiated, models.PaymentStatusProcessing)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = payments.Transition(ctx, "ORDER-1", models.PaymentStatusInitiated, models.PaymentStatusProcessing)
	require.NoError(t, err)
	assert.False(t, moved, "second transition must not win")

	assert.ErrorIs(t, payments.Complete(ctx, "ORDER-1"), store.ErrNotFound, "processing payments are not completable")

	require.NoError(t, payments.MarkCaptured(ctx, "ORDER-1", datatypes.JSON(`{"id":"ORDER-1"}`)))
	got, err := payments.FindByOrderID(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, got.Status)
	assert.JSONEq(t, `{"id":"ORDER-1"}`, string(got.Metadata))
	assert.ErrorIs(t, payments.MarkCaptured(ctx, "ORDER-1", nil), store.ErrNotFound)

	require.NoError(t, payments.Complete(ctx, "ORDER-1"))
	got, err = payments.FindByOrderID(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)

	assert.ErrorIs(t, payments.Complete(ctx, "ORDER-1"), store.ErrNotFound)
}

func TestPaymentRepository_ResetStuck(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	payments := tc.Store.Payments()

	p := testutil.CreateTestProject(t, tc.DB, tc.User.ID, "acme")
	testutil.CreateTestPayment(t, tc.DB, tc.User.ID, p.ID, "STUCK", models.DatabaseVersionPremium)
	_, err := payments.Transition(ctx, "STUCK", models.PaymentStatusInitiated, models.PaymentStatusProcessing)
	require.NoError(t, err)
	require.NoError(t, tc.DB.Model(&models.Payment{}).Where("order_id = ?", "STUCK").
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	n, err := payments.ResetStuck(ctx, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := payments.FindByOrderID(ctx, "STUCK")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusInitiated, got.Status)

	testutil.CreateTestPayment(t, tc.DB, tc.User.ID, p.ID, "TAKEN", models.DatabaseVersionPremium)
	_, err = payments.Transition(ctx, "TAKEN", models.PaymentStatusInitiated, models.PaymentStatusProcessing)
	require.NoError(t, err)
	require.NoError(t, payments.MarkCaptured(ctx, "TAKEN", datatypes.JSON(`{"id":"TAKEN"}`)))
	require.NoError(t, tc.DB.Model(&models.Payment{}).Where("order_id = ?", "TAKEN").
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	n, err = payments.ResetStuck(ctx, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err = payments.FindByOrderID(ctx, "TAKEN")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, got.Status)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	boom := errors.New("boom")
	err := tc.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users().AddCredits(ctx, tc.User.ID, 100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := tc.Store.Users().FindByID(ctx, tc.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Credits)
}
