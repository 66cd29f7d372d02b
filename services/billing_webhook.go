package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/utils"
)

// Razorpay webhook events the engine acts on
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

type webhookEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (w *webhookEnvelope) orderID() string {
	if w.Payload.Payment != nil && w.Payload.Payment.Entity.OrderID != "" {
		return w.Payload.Payment.Entity.OrderID
	}
	if w.Payload.Order != nil {
		return w.Payload.Order.Entity.ID
	}
	return ""
}

func (w *webhookEnvelope) paymentID() string {
	if w.Payload.Payment != nil {
		return w.Payload.Payment.Entity.ID
	}
	return ""
}

// WebhookResult reports what a delivery did
type WebhookResult struct {
	Event   string                `json:"event"`
	Handled bool                  `json:"handled"`
	Payment *models.PaymentRecord `json:"payment,omitempty"`
}

// HandleWebhook authenticates a Razorpay delivery and applies it. Returning an
// error makes the HTTP layer answer non-2xx so Razorpay redelivers.
func (e *BillingEngine) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing webhook signature", utils.ErrInvalidSignature)
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, utils.Validationf("malformed webhook body: %v", err)
	}
	result := &WebhookResult{Event: envelope.Event}

	var record *models.PaymentRecord
	libraryID := uint(0)
	if orderID := envelope.orderID(); orderID != "" {
		found, err := e.store.Payments().FindByGatewayOrderID(ctx, orderID)
		switch {
		case err == nil:
			record, libraryID = found, found.LibraryID
		case !errors.Is(err, utils.ErrNotFound):
			return nil, err
		}
	}

	creds, err := e.credentialsFor(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	if !VerifyWebhookSignature(body, signature, creds.WebhookSecret) {
		utils.LogError("Webhook %s rejected: signature mismatch", envelope.Event)
		return nil, fmt.Errorf("%w: webhook %s", utils.ErrInvalidSignature, envelope.Event)
	}

	if record == nil {
		utils.LogInfo("Webhook %s for unknown order %q acknowledged", envelope.Event, envelope.orderID())
		return result, nil
	}

	switch envelope.Event {
	case EventPaymentCaptured, EventOrderPaid:
		payment, err := e.completeFromWebhook(ctx, record, envelope.paymentID())
		if err != nil {
			return nil, err
		}
		result.Handled, result.Payment = true, payment
	case EventPaymentFailed:
		payment, err := e.failFromWebhook(ctx, record, envelope.paymentID())
		if err != nil {
			return nil, err
		}
		result.Handled, result.Payment = true, payment
	default:
		utils.LogDebug("Webhook event %s ignored", envelope.Event)
	}
	return result, nil
}

func (e *BillingEngine) completeFromWebhook(ctx context.Context, record *models.PaymentRecord, paymentID string) (*models.PaymentRecord, error) {
	unlock := e.locks.Lock(record.StudentID)
	defer unlock()

	current, err := e.store.Payments().FindByID(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return e.completeLocked(ctx, current, paymentID)
}

func (e *BillingEngine) failFromWebhook(ctx context.Context, record *models.PaymentRecord, paymentID string) (*models.PaymentRecord, error) {
	unlock := e.locks.Lock(record.StudentID)
	defer unlock()

	current, err := e.store.Payments().FindByID(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.PaymentStatusPending {
		utils.LogInfo("payment.failed for payment %d ignored, status is %s", current.ID, current.Status)
		return current, nil
	}
	if err := e.markFailed(ctx, current, paymentID); err != nil {
		return nil, err
	}
	return current, nil
}
