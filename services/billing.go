package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingEngine owns every state change of payment records and the subscription
// state they drive. Writes for one student are serialized.
type BillingEngine struct {
	store    repository.Store
	gateways GatewayProvider
	locks    *keyedMutex
	now      func() time.Time
}

// NewBillingEngine wires the engine to its store and gateway provider
func NewBillingEngine(store repository.Store, gateways GatewayProvider) *BillingEngine {
	return &BillingEngine{
		store:    store,
		gateways: gateways,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// CreateOrderInput is a request to bill one student for one month
type CreateOrderInput struct {
	StudentID   uint
	LibraryID   uint
	Amount      decimal.Decimal // informational, the student's fee is billed
	Currency    string
	Description string
	Month       string
}

// CreateOrderResult carries the pending record and what the client needs to check out
type CreateOrderResult struct {
	Payment  *models.PaymentRecord `json:"payment"`
	Order    GatewayOrder          `json:"order"`
	KeyID    string                `json:"key_id"`
	Existing bool                  `json:"existing"`
}

// CreateOrder returns the live order for the student's month, creating it at the
// gateway first when none exists. A month already paid is an ErrInvalidState.
func (e *BillingEngine) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = models.CurrencyINR
	}
	if currency != models.CurrencyINR {
		return nil, utils.Validationf("unsupported currency %q", in.Currency)
	}
	if in.Month != "" && !models.ValidMonth(in.Month) {
		return nil, utils.Validationf("month %q is not in YYYY-MM format", in.Month)
	}

	student, library, err := e.loadEnrollment(ctx, in.StudentID, in.LibraryID)
	if err != nil {
		return nil, err
	}
	if !student.Fee.IsPositive() {
		return nil, utils.Validationf("student %d has no fee configured", student.ID)
	}
	if !in.Amount.IsZero() && !in.Amount.Equal(student.Fee) {
		utils.LogDebug("Order for student %d requested %s, billing configured fee %s", student.ID, in.Amount, student.Fee)
	}

	month := in.Month
	if month == "" {
		month = models.MonthOf(student.NextDueDate)
	}

	unlock := e.locks.Lock(student.ID)
	defer unlock()

	creds := e.gateways.Credentials(library)

	existing, err := e.store.Payments().FindLiveForMonth(ctx, student.ID, month)
	switch {
	case err == nil && existing.Status == models.PaymentStatusCompleted:
		return nil, utils.InvalidStatef("student %d already paid for %s", student.ID, month)
	case err == nil:
		utils.LogInfo("Reusing pending payment %d (order %s) for student %d month %s", existing.ID, existing.GatewayOrderID, student.ID, month)
		return &CreateOrderResult{
			Payment:  existing,
			Order:    orderFromRecord(existing),
			KeyID:    creds.KeyID,
			Existing: true,
		}, nil
	case !errors.Is(err, utils.ErrNotFound):
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = fmt.Sprintf("Library fee for %s", month)
	}
	receipt := "lt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	notes := map[string]string{
		"student_id": fmt.Sprint(student.ID),
		"library_id": fmt.Sprint(library.ID),
		"month":      month,
	}

	order, err := e.gateways.Gateway(creds).CreateOrder(ctx, ToMinorUnits(student.Fee), currency, receipt, notes)
	if err != nil {
		return nil, err
	}

	record := &models.PaymentRecord{
		StudentID:      student.ID,
		LibraryID:      library.ID,
		Amount:         student.Fee,
		Currency:       currency,
		Month:          month,
		Description:    description,
		GatewayOrderID: order.ID,
		Status:         models.PaymentStatusPending,
		PaymentMethod:  models.PaymentMethodGateway,
		PaymentDate:    e.now(),
	}
	if err := e.store.Payments().Create(ctx, record); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, utils.InvalidStatef("a payment for student %d month %s already exists", student.ID, month)
		}
		return nil, fmt.Errorf("save pending payment for order %s: %w", order.ID, err)
	}

	utils.LogInfo("Created pending payment %d with order %s for student %d month %s", record.ID, order.ID, student.ID, month)
	return &CreateOrderResult{Payment: record, Order: *order, KeyID: creds.KeyID}, nil
}

// VerifyPaymentInput is what the checkout widget hands back after payment
type VerifyPaymentInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPayment checks the checkout signature and completes the payment.
// Verifying an already completed payment returns it unchanged.
func (e *BillingEngine) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*models.PaymentRecord, error) {
	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == "" {
		return nil, utils.Validationf("order id, payment id and signature are required")
	}

	record, err := e.store.Payments().FindByGatewayOrderID(ctx, in.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	creds, err := e.credentialsFor(ctx, record.LibraryID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(record.StudentID)
	defer unlock()

	// Reload under the student lock; a webhook may have completed it meanwhile.
	record, err = e.store.Payments().FindByID(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	if !VerifySignature(in.GatewayPaymentID, in.GatewayOrderID, in.Signature, creds.KeySecret) {
		utils.LogError("Signature mismatch for order %s payment %s", in.GatewayOrderID, in.GatewayPaymentID)
		if record.Status == models.PaymentStatusPending {
			if err := e.markFailed(ctx, record, in.GatewayPaymentID); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: order %s", utils.ErrInvalidSignature, in.GatewayOrderID)
	}

	return e.completeLocked(ctx, record, in.GatewayPaymentID)
}

// completeLocked moves a pending record to completed and advances the student's
// subscription in one transaction. Callers hold the student lock.
//
// A failed record is completed too, since a capture on its order supersedes the
// failure. If the month has meanwhile been billed through another order, a
// pending one is failed in its place; a completed one keeps the month and the
// capture is recorded with RefundDue set instead.
func (e *BillingEngine) completeLocked(ctx context.Context, record *models.PaymentRecord, gatewayPaymentID string) (*models.PaymentRecord, error) {
	switch record.Status {
	case models.PaymentStatusCompleted:
		return record, nil
	case models.PaymentStatusPending, models.PaymentStatusFailed:
	default:
		return nil, utils.InvalidStatef("payment %d is %s and cannot be completed", record.ID, record.Status)
	}

	updated := *record
	if gatewayPaymentID != "" {
		updated.GatewayPaymentID = gatewayPaymentID
	}

	var superseded *models.PaymentRecord
	err := e.store.Transaction(ctx, func(tx repository.Store) error {
		if record.Status == models.PaymentStatusFailed {
			other, err := tx.Payments().FindLiveForMonth(ctx, record.StudentID, record.Month)
			switch {
			case errors.Is(err, utils.ErrNotFound):
			case err != nil:
				return err
			case other.Status == models.PaymentStatusCompleted:
				updated.RefundDue = true
				return tx.Payments().Update(ctx, &updated)
			default:
				other.Status = models.PaymentStatusFailed
				if err := tx.Payments().Update(ctx, other); err != nil {
					return err
				}
				superseded = other
			}
		}

		updated.Status = models.PaymentStatusCompleted
		updated.PaymentDate = e.now()
		if err := tx.Payments().Update(ctx, &updated); err != nil {
			return err
		}
		return settleMonth(ctx, tx, updated.StudentID)
	})
	if err != nil {
		return nil, fmt.Errorf("complete payment %d: %w", record.ID, err)
	}

	if updated.RefundDue {
		utils.LogError("Payment %d captured on order %s but month %s is already paid, refund due", updated.ID, updated.GatewayOrderID, updated.Month)
		return &updated, nil
	}
	if superseded != nil {
		utils.LogInfo("Pending payment %d superseded by payment %d", superseded.ID, updated.ID)
	}
	utils.LogInfo("Payment %d completed for student %d month %s", updated.ID, updated.StudentID, updated.Month)
	return &updated, nil
}

// settleMonth advances the student's due date by one month and marks the period paid
func settleMonth(ctx context.Context, tx repository.Store, studentID uint) error {
	student, err := tx.Students().FindByID(ctx, studentID)
	if err != nil {
		return err
	}
	state := student.SubscriptionState
	state.Settle()
	return tx.Students().UpdateSubscription(ctx, studentID, state)
}

func (e *BillingEngine) markFailed(ctx context.Context, record *models.PaymentRecord, gatewayPaymentID string) error {
	record.Status = models.PaymentStatusFailed
	if gatewayPaymentID != "" {
		record.GatewayPaymentID = gatewayPaymentID
	}
	if err := e.store.Payments().Update(ctx, record); err != nil {
		return fmt.Errorf("mark payment %d failed: %w", record.ID, err)
	}
	utils.LogInfo("Payment %d marked failed", record.ID)
	return nil
}

// loadEnrollment fetches the student and library and checks the student belongs to it
func (e *BillingEngine) loadEnrollment(ctx context.Context, studentID, libraryID uint) (*models.Student, *models.Library, error) {
	student, err := e.store.Students().FindByID(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if student.IsDeleted {
		return nil, nil, utils.NotFoundf("student %d", studentID)
	}
	if libraryID == 0 {
		libraryID = student.LibraryID
	}
	library, err := e.store.Libraries().FindByID(ctx, libraryID)
	if err != nil {
		return nil, nil, err
	}
	if student.LibraryID != library.ID {
		return nil, nil, utils.NotFoundf("student %d in library %d", studentID, libraryID)
	}
	return student, library, nil
}

// credentialsFor resolves the Razorpay account a library's payments went to
func (e *BillingEngine) credentialsFor(ctx context.Context, libraryID uint) (GatewayCredentials, error) {
	library, err := e.store.Libraries().FindByID(ctx, libraryID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return GatewayCredentials{}, err
	}
	return e.gateways.Credentials(library), nil
}

func orderFromRecord(record *models.PaymentRecord) GatewayOrder {
	return GatewayOrder{
		ID:       record.GatewayOrderID,
		Amount:   ToMinorUnits(record.Amount),
		Currency: record.Currency,
		Status:   "created",
	}
}

// SimulateCheckout signs a fake payment for a pending order the way checkout
// would, so the verify flow can be exercised without the widget. Never expose
// this outside development.
func (e *BillingEngine) SimulateCheckout(ctx context.Context, gatewayOrderID string) (*VerifyPaymentInput, error) {
	record, err := e.store.Payments().FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.PaymentStatusPending {
		return nil, utils.InvalidStatef("payment %d is %s", record.ID, record.Status)
	}
	creds, err := e.credentialsFor(ctx, record.LibraryID)
	if err != nil {
		return nil, err
	}
	paymentID := "pay_test_" + strings.TrimPrefix(gatewayOrderID, "order_")
	return &VerifyPaymentInput{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        CheckoutSignature(gatewayOrderID, paymentID, creds.KeySecret),
	}, nil
}
