package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
)

// CashPaymentInput records fees a librarian collected over the counter
type CashPaymentInput struct {
	StudentID      uint
	NumberOfMonths int
	PaymentDate    time.Time
}

// CashPaymentResult summarises what a cash payment settled
type CashPaymentResult struct {
	MonthsApplied  int                    `json:"months_applied"`
	SettledPending int                    `json:"settled_pending"`
	Created        int                    `json:"created"`
	NextDueDate    time.Time              `json:"next_due_date"`
	Payments       []models.PaymentRecord `json:"payments"`
}

// MakeCashPayment settles the student's pending records oldest first, then adds
// completed cash records for the months still owed. Each month commits on its own;
// on failure the months already applied are returned along with the error.
func (e *BillingEngine) MakeCashPayment(ctx context.Context, in CashPaymentInput) (*CashPaymentResult, error) {
	if in.NumberOfMonths < 1 {
		return nil, utils.Validationf("number of months must be at least 1")
	}
	paidAt := in.PaymentDate
	if paidAt.IsZero() {
		paidAt = e.now()
	}

	student, err := e.store.Students().FindByID(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(student.ID)
	defer unlock()

	pending, err := e.store.Payments().ListPendingByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	result := &CashPaymentResult{NextDueDate: student.NextDueDate, Payments: []models.PaymentRecord{}}
	for _, p := range pending {
		if result.MonthsApplied == in.NumberOfMonths {
			break
		}
		record := p
		record.Status = models.PaymentStatusCompleted
		record.PaymentMethod = models.PaymentMethodCash
		record.PaymentDate = paidAt

		next, err := e.applyCashMonth(ctx, student.ID, func(tx repository.Store) error {
			return tx.Payments().Update(ctx, &record)
		})
		if err != nil {
			return result, fmt.Errorf("settle pending payment %d: %w", p.ID, err)
		}
		result.MonthsApplied++
		result.SettledPending++
		result.NextDueDate = next
		result.Payments = append(result.Payments, record)
	}

	for result.MonthsApplied < in.NumberOfMonths {
		var record models.PaymentRecord
		next, err := e.applyCashMonth(ctx, student.ID, func(tx repository.Store) error {
			current, err := tx.Students().FindByID(ctx, student.ID)
			if err != nil {
				return err
			}
			record = models.PaymentRecord{
				StudentID:     current.ID,
				LibraryID:     current.LibraryID,
				Amount:        current.Fee,
				Currency:      models.CurrencyINR,
				Month:         models.MonthOf(current.NextDueDate),
				Description:   "Cash payment",
				Status:        models.PaymentStatusCompleted,
				PaymentMethod: models.PaymentMethodCash,
				PaymentDate:   paidAt,
			}
			if err := tx.Payments().Create(ctx, &record); err != nil {
				return utils.WrapError(err, "cash payment for "+record.Month)
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("record cash payment %d of %d: %w", result.MonthsApplied+1, in.NumberOfMonths, asPaidMonth(err))
		}
		result.MonthsApplied++
		result.Created++
		result.NextDueDate = next
		result.Payments = append(result.Payments, record)
	}

	utils.LogInfo("Cash payment for student %d applied %d months (%d pending settled), next due %s",
		student.ID, result.MonthsApplied, result.SettledPending, result.NextDueDate.Format("2006-01-02"))
	return result, nil
}

// applyCashMonth runs write and advances the subscription one month in the same transaction
func (e *BillingEngine) applyCashMonth(ctx context.Context, studentID uint, write func(tx repository.Store) error) (time.Time, error) {
	var next time.Time
	err := e.store.Transaction(ctx, func(tx repository.Store) error {
		if err := write(tx); err != nil {
			return err
		}
		if err := settleMonth(ctx, tx, studentID); err != nil {
			return err
		}
		student, err := tx.Students().FindByID(ctx, studentID)
		if err != nil {
			return err
		}
		next = student.NextDueDate
		return nil
	})
	return next, err
}

// asPaidMonth reports a uniqueness clash on a cash month as an invalid state
func asPaidMonth(err error) error {
	if utils.IsConflict(err) {
		return fmt.Errorf("%w: %v", utils.ErrInvalidState, err)
	}
	return err
}
