package services

import (
	"context"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
)

// StudentPayments is a student's payment history with running totals
type StudentPayments struct {
	Payments     []models.PaymentRecord `json:"payments"`
	TotalPaid    decimal.Decimal        `json:"total_paid"`
	TotalPending decimal.Decimal        `json:"total_pending"`
	TotalAmount  decimal.Decimal        `json:"total_amount"`
}

// PaymentsByStudent lists every payment of a student, newest first
func (e *BillingEngine) PaymentsByStudent(ctx context.Context, studentID uint) (*StudentPayments, error) {
	if _, err := e.store.Students().FindByID(ctx, studentID); err != nil {
		return nil, err
	}
	records, err := e.store.Payments().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := &StudentPayments{Payments: records}
	for _, p := range records {
		out.TotalAmount = out.TotalAmount.Add(p.Amount)
		switch p.Status {
		case models.PaymentStatusCompleted:
			out.TotalPaid = out.TotalPaid.Add(p.Amount)
		case models.PaymentStatusPending:
			out.TotalPending = out.TotalPending.Add(p.Amount)
		}
	}
	return out, nil
}

// LibraryPaymentsQuery pages through a library's recent payments
type LibraryPaymentsQuery struct {
	LastDays int
	Status   models.PaymentStatus
	Limit    int
	Skip     int
}

// LibraryPayments is one page of a library's payments
type LibraryPayments struct {
	Payments []models.PaymentRecord `json:"payments"`
	Total    int64                  `json:"total"`
	Limit    int                    `json:"limit"`
	Skip     int                    `json:"skip"`
	Since    time.Time              `json:"since"`
}

// PaymentsByLibrary lists payments dated within the last q.LastDays days, newest first
func (e *BillingEngine) PaymentsByLibrary(ctx context.Context, libraryID uint, q LibraryPaymentsQuery) (*LibraryPayments, error) {
	if _, err := e.store.Libraries().FindByID(ctx, libraryID); err != nil {
		return nil, err
	}
	if q.LastDays <= 0 {
		q.LastDays = utils.DefaultPaymentLookbackDays
	}
	if q.Limit <= 0 {
		q.Limit = utils.DefaultPaginationLimit
	}
	if q.Limit > utils.MaxPaginationLimit {
		q.Limit = utils.MaxPaginationLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}

	since := e.now().AddDate(0, 0, -q.LastDays)
	records, total, err := e.store.Payments().ListByLibrary(ctx, libraryID, repository.LibraryPaymentFilter{
		Since:  since,
		Status: q.Status,
		Limit:  q.Limit,
		Skip:   q.Skip,
	})
	if err != nil {
		return nil, err
	}
	return &LibraryPayments{Payments: records, Total: total, Limit: q.Limit, Skip: q.Skip, Since: since}, nil
}

// GetPayment returns one payment record
func (e *BillingEngine) GetPayment(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	return e.store.Payments().FindByID(ctx, id)
}

// PaymentByOrder returns the newest record billed against a gateway order
func (e *BillingEngine) PaymentByOrder(ctx context.Context, gatewayOrderID string) (*models.PaymentRecord, error) {
	return e.store.Payments().FindByGatewayOrderID(ctx, gatewayOrderID)
}
