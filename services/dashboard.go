package services

import (
	"context"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
)

const revenueSeriesMonths = 6

// MonthlyRevenue is the completed amount collected in one calendar month
type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// LibrarySummary is the librarian's monthly overview
type LibrarySummary struct {
	LibraryID     uint             `json:"library_id"`
	Month         string           `json:"month"`
	TotalStudents int64            `json:"total_students"`
	PaidCount     int              `json:"paid_count"`
	PendingCount  int              `json:"pending_count"`
	PaidAmount    decimal.Decimal  `json:"paid_amount"`
	PendingAmount decimal.Decimal  `json:"pending_amount"`
	Refunded      decimal.Decimal  `json:"refunded"`
	RevenueSeries []MonthlyRevenue `json:"revenue_series"`
}

// DashboardService aggregates billing data for a library
type DashboardService struct {
	store repository.Store
	now   func() time.Time
}

// NewDashboardService builds a DashboardService
func NewDashboardService(store repository.Store) *DashboardService {
	return &DashboardService{store: store, now: time.Now}
}

// LibrarySummary totals the given billing month ("" means the current one) plus
// collected revenue over the last six calendar months.
func (d *DashboardService) LibrarySummary(ctx context.Context, libraryID uint, month string) (*LibrarySummary, error) {
	if _, err := d.store.Libraries().FindByID(ctx, libraryID); err != nil {
		return nil, err
	}
	now := d.now()
	if month == "" {
		month = models.MonthOf(now)
	} else if !models.ValidMonth(month) {
		return nil, utils.Validationf("month %q is not in YYYY-MM format", month)
	}

	total, err := d.store.Students().CountByLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	records, err := d.store.Payments().ListByLibraryMonth(ctx, libraryID, month)
	if err != nil {
		return nil, err
	}

	summary := &LibrarySummary{LibraryID: libraryID, Month: month, TotalStudents: total}
	for _, p := range records {
		switch p.Status {
		case models.PaymentStatusCompleted:
			summary.PaidCount++
			summary.PaidAmount = summary.PaidAmount.Add(p.Amount)
		case models.PaymentStatusPending:
			summary.PendingCount++
			summary.PendingAmount = summary.PendingAmount.Add(p.Amount)
		case models.PaymentStatusRefunded:
			if p.RefundAmount != nil {
				summary.Refunded = summary.Refunded.Add(*p.RefundAmount)
			}
		}
	}

	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	since := firstOfMonth.AddDate(0, -(revenueSeriesMonths - 1), 0)
	completed, err := d.store.Payments().ListCompletedByLibrarySince(ctx, libraryID, since)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]decimal.Decimal, revenueSeriesMonths)
	for _, p := range completed {
		key := models.MonthOf(p.PaymentDate)
		byMonth[key] = byMonth[key].Add(p.Amount)
	}
	for i := 0; i < revenueSeriesMonths; i++ {
		key := models.MonthOf(since.AddDate(0, i, 0))
		summary.RevenueSeries = append(summary.RevenueSeries, MonthlyRevenue{Month: key, Revenue: byMonth[key]})
	}
	return summary, nil
}
