package services

import (
	"context"
	"testing"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentsByStudentTotals(t *testing.T) {
	env := newTestEnv(t)
	paidOrder(t, env)
	env.createOrder(t, "2024-04")

	history, err := env.engine.PaymentsByStudent(context.Background(), env.student.ID)
	require.NoError(t, err)

	assert.Len(t, history.Payments, 2)
	assert.True(t, history.TotalPaid.Equal(decimal.NewFromInt(500)))
	assert.True(t, history.TotalPending.Equal(decimal.NewFromInt(500)))
	assert.True(t, history.TotalAmount.Equal(decimal.NewFromInt(1000)))

	_, err = env.engine.PaymentsByStudent(context.Background(), 404)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestPaymentsByLibraryWindowAndPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i, age := range []int{1, 2, 3, 40} {
		require.NoError(t, env.store.Payments().Create(ctx, &models.PaymentRecord{
			StudentID:     env.student.ID,
			LibraryID:     env.library.ID,
			Amount:        decimal.NewFromInt(500),
			Currency:      models.CurrencyINR,
			Month:         models.MonthOf(day(2023, time.Month(i+1), 1)),
			Status:        models.PaymentStatusCompleted,
			PaymentMethod: models.PaymentMethodCash,
			PaymentDate:   testNow.AddDate(0, 0, -age),
		}))
	}

	page, err := env.engine.PaymentsByLibrary(ctx, env.library.ID, LibraryPaymentsQuery{LastDays: 30, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Payments, 2)
	assert.True(t, page.Payments[0].PaymentDate.After(page.Payments[1].PaymentDate), "newest first")

	rest, err := env.engine.PaymentsByLibrary(ctx, env.library.ID, LibraryPaymentsQuery{LastDays: 30, Limit: 2, Skip: 2})
	require.NoError(t, err)
	assert.Len(t, rest.Payments, 1)

	all, err := env.engine.PaymentsByLibrary(ctx, env.library.ID, LibraryPaymentsQuery{LastDays: 60, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, utils.MaxPaginationLimit, all.Limit)

	defaults, err := env.engine.PaymentsByLibrary(ctx, env.library.ID, LibraryPaymentsQuery{})
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, -utils.DefaultPaymentLookbackDays), defaults.Since)
	assert.Equal(t, utils.DefaultPaginationLimit, defaults.Limit)
}

func TestPaymentsByLibraryStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	paidOrder(t, env)
	env.createOrder(t, "2024-04")

	page, err := env.engine.PaymentsByLibrary(context.Background(), env.library.ID, LibraryPaymentsQuery{Status: models.PaymentStatusPending})
	require.NoError(t, err)
	require.Len(t, page.Payments, 1)
	assert.Equal(t, "2024-04", page.Payments[0].Month)
}
