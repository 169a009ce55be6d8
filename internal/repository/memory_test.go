package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/models"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) ([]byte, error) { return []byte("plain:" + p), nil }

func seeded(t *testing.T) Store {
	t.Helper()
	store := NewMemory().Store()
	require.NoError(t, Seed(context.Background(), store, plainHasher{}))
	return store
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	require.NoError(t, Seed(ctx, store, plainHasher{}))

	admin, err := store.Users.FindByUsername(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, []byte("plain:admin123"), admin.PasswordHash)

	affs, total, err := store.Affiliators.List(ctx, models.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Sari Wulandari", affs[0].Name)
	assert.Equal(t, "affiliator", affs[0].Username)

	customers, err := store.Customers.ListByAffiliator(ctx, affs[0].UUID)
	require.NoError(t, err)
	assert.Len(t, customers, 3)
	assert.Equal(t, "Sari Wulandari", customers[0].AffiliatorName)
}

func TestUsernameUnique(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)

	err := store.Users.Create(ctx, models.User{ID: "x", Username: "Admin", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSummaryCountsPaymentsSinceJoin(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	affs, _, err := store.Affiliators.List(ctx, models.ListParams{})
	require.NoError(t, err)
	aff := affs[0]

	require.NoError(t, store.Payments.Create(ctx, models.Payment{
		UUID:           "old",
		AffiliatorUUID: aff.UUID,
		Amount:         999,
		PaymentDate:    aff.JoinDate.AddDate(0, 0, -1),
		Method:         "cash",
	}))

	summary, err := store.Affiliators.Summary(ctx, aff.UUID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalCustomers)
	assert.Equal(t, int64(375000), summary.TotalPaymentsSinceJoin)

	_, err = store.Affiliators.Summary(ctx, "missing")
	assert.ErrorIs(t, err, ErrAffiliatorNotFound)
}

func TestCustomerListSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Store()
	require.NoError(t, store.Users.Create(ctx, models.User{ID: "u1", Name: "Sari", Username: "sari", Role: models.RoleAffiliator}))
	require.NoError(t, store.Affiliators.Create(ctx, models.Affiliator{UUID: "a1", UserID: "u1"}))

	for i := 0; i < 25; i++ {
		address := "Bandung"
		if i%5 == 0 {
			address = "Sukamaju"
		}
		require.NoError(t, store.Customers.Create(ctx, models.Customer{
			UUID:           fmt.Sprintf("c%02d", i),
			AffiliatorUUID: "a1",
			Name:           fmt.Sprintf("Customer %d", i),
			Address:        address,
			CreatedAt:      time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}

	page, total, err := store.Customers.List(ctx, models.ListParams{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, page, 5)
	assert.Equal(t, "c04", page[0].UUID)

	found, total, err := store.Customers.List(ctx, models.ListParams{Search: "sukaMAJU"})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, found, 5)

	byAffiliator, total, err := store.Customers.List(ctx, models.ListParams{Search: "sari"})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, byAffiliator, 10)

	err = store.Customers.Create(ctx, models.Customer{UUID: "bad", AffiliatorUUID: "nope"})
	assert.ErrorIs(t, err, ErrAffiliatorNotFound)
}

func TestDeleteAffiliatorCascades(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	affs, _, err := store.Affiliators.List(ctx, models.ListParams{})
	require.NoError(t, err)

	require.NoError(t, store.Users.Delete(ctx, affs[0].UserID))

	_, err = store.Affiliators.Get(ctx, affs[0].UUID)
	assert.ErrorIs(t, err, ErrAffiliatorNotFound)
	_, total, err := store.Customers.List(ctx, models.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = store.Payments.List(ctx, models.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Store()
	now := time.Now()

	require.NoError(t, store.Sessions.Create(ctx, models.Session{ID: "s1", UserID: "u", RefreshTokenHash: []byte("h1"), ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Sessions.Create(ctx, models.Session{ID: "s2", UserID: "u", RefreshTokenHash: []byte("h2"), ExpiresAt: now.Add(-time.Minute)}))

	s, err := store.Sessions.FindByRefreshHash(ctx, []byte("h1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)

	n, err := store.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Sessions.GetByID(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, store.Sessions.DeleteByID(ctx, "s1"))
	assert.ErrorIs(t, store.Sessions.DeleteByID(ctx, "s1"), ErrSessionNotFound)
}
