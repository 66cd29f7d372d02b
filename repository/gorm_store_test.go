package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Govind-619/LibTrack/config"
	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresStore(t *testing.T) *repository.GormStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("libtrack"),
		postgres.WithUsername("libtrack"),
		postgres.WithPassword("libtrack"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := config.OpenDB(dsn, true)
	require.NoError(t, err)
	return repository.NewGormStore(db)
}

func TestGormStore(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	library := &models.Library{Name: "Quiet Corner", ContactEmail: "quiet@example.com", IsActive: true}
	require.NoError(t, store.Libraries().Create(ctx, library))
	user := &models.User{Name: "Asha", Email: "asha@example.com", Password: "x", Role: models.RoleStudent, LibraryID: &library.ID, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, user))
	student := &models.Student{
		LibraryID: library.ID,
		UserID:    user.ID,
		JoinDate:  time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.StudentStatusActive,
		SubscriptionState: models.SubscriptionState{
			NextDueDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Fee:         decimal.NewFromInt(500),
		},
	}
	require.NoError(t, store.Students().Create(ctx, student))

	newRecord := func(status models.PaymentStatus) *models.PaymentRecord {
		return &models.PaymentRecord{
			StudentID:   student.ID,
			LibraryID:   library.ID,
			Amount:      decimal.NewFromInt(500),
			Currency:    models.CurrencyINR,
			Month:       "2024-03",
			Status:      status,
			PaymentDate: time.Now(),
		}
	}

	t.Run("one live payment per month", func(t *testing.T) {
		pending := newRecord(models.PaymentStatusPending)
		pending.GatewayOrderID = "order_pg1"
		require.NoError(t, store.Payments().Create(ctx, pending))

		err := store.Payments().Create(ctx, newRecord(models.PaymentStatusPending))
		assert.ErrorIs(t, err, utils.ErrConflict)
		require.NoError(t, store.Payments().Create(ctx, newRecord(models.PaymentStatusFailed)))

		found, err := store.Payments().FindByGatewayOrderID(ctx, "order_pg1")
		require.NoError(t, err)
		assert.Equal(t, pending.ID, found.ID)
		assert.True(t, found.Amount.Equal(decimal.NewFromInt(500)))
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		live, err := store.Payments().FindLiveForMonth(ctx, student.ID, "2024-03")
		require.NoError(t, err)

		boom := errors.New("boom")
		err = store.Transaction(ctx, func(tx repository.Store) error {
			live.Status = models.PaymentStatusCompleted
			if err := tx.Payments().Update(ctx, live); err != nil {
				return err
			}
			state := student.SubscriptionState
			state.Settle()
			if err := tx.Students().UpdateSubscription(ctx, student.ID, state); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := store.Payments().FindByID(ctx, live.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, stored.Status)
		reloaded, err := store.Students().FindByID(ctx, student.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.IsPaymentDoneForThisMonth)
		assert.Equal(t, "asha@example.com", reloaded.User.Email)
	})

	t.Run("due window and search", func(t *testing.T) {
		due, err := store.Students().ListDueBetween(ctx,
			time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, student.ID, due[0].ID)

		found, err := store.Students().ListByLibrary(ctx, library.ID, repository.StudentFilter{Search: "ASHA"})
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("missing rows", func(t *testing.T) {
		_, err := store.Payments().FindByID(ctx, 999999)
		assert.ErrorIs(t, err, utils.ErrNotFound)
		assert.ErrorIs(t, store.Students().UpdateSubscription(ctx, 999999, student.SubscriptionState), utils.ErrNotFound)
	})
}
