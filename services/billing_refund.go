package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
)

const defaultRefundReason = "Customer requested refund"

// RefundInput describes a refund of a completed payment
type RefundInput struct {
	PaymentID uint
	Amount    *decimal.Decimal // nil refunds the full amount
	Reason    string
	ActorID   uint
}

// ProcessRefund refunds a completed payment, or a failed one flagged RefundDue,
// through the gateway for online payments and locally for cash. Subscription
// state is left as it is.
func (e *BillingEngine) ProcessRefund(ctx context.Context, in RefundInput) (*models.PaymentRecord, error) {
	record, err := e.store.Payments().FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(record.StudentID)
	defer unlock()

	record, err = e.store.Payments().FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.PaymentStatusCompleted && !record.RefundDue {
		return nil, utils.InvalidStatef("payment %d is %s, only completed payments can be refunded", record.ID, record.Status)
	}

	amount := record.Amount
	if in.Amount != nil {
		amount = *in.Amount
	}
	if !amount.IsPositive() {
		return nil, utils.Validationf("refund amount must be greater than zero")
	}
	if amount.GreaterThan(record.Amount) {
		return nil, utils.Validationf("refund amount %s exceeds payment amount %s", amount, record.Amount)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = defaultRefundReason
	}

	refundID := ""
	if record.PaymentMethod == models.PaymentMethodGateway {
		if record.GatewayPaymentID == "" {
			return nil, utils.InvalidStatef("payment %d has no gateway payment to refund", record.ID)
		}
		creds, err := e.credentialsFor(ctx, record.LibraryID)
		if err != nil {
			return nil, err
		}
		refund, err := e.gateways.Gateway(creds).Refund(ctx, record.GatewayPaymentID, ToMinorUnits(amount), map[string]string{
			"reason":      reason,
			"payment_ref": fmt.Sprint(record.ID),
		})
		if err != nil {
			return nil, err
		}
		refundID = refund.ID
	}

	now := e.now()
	actor := in.ActorID
	record.Status = models.PaymentStatusRefunded
	record.RefundDue = false
	record.RefundAmount = &amount
	record.RefundReason = reason
	record.RefundDate = &now
	record.RefundedBy = &actor
	record.GatewayRefundID = refundID
	if err := e.store.Payments().Update(ctx, record); err != nil {
		if refundID != "" {
			utils.LogError("Refund %s issued at gateway but payment %d could not be updated: %v", refundID, record.ID, err)
		}
		return nil, fmt.Errorf("save refund of payment %d: %w", record.ID, err)
	}

	utils.LogInfo("Payment %d refunded %s by user %d", record.ID, amount, actor)
	return record, nil
}
