package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/cenkalti/backoff/v4"
	razorpay "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// GatewayOrder is the gateway's view of an order a client will pay against
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status"`
}

// GatewayRefund is the gateway's acknowledgement of a refund
type GatewayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Gateway is the subset of the payment gateway the billing engine relies on.
// Amounts are in minor units (paise).
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*GatewayRefund, error)
}

// GatewayCredentials identify one Razorpay account
type GatewayCredentials struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// GatewayProvider picks the account a library collects into and hands out clients for it
type GatewayProvider interface {
	Credentials(library *models.Library) GatewayCredentials
	Gateway(creds GatewayCredentials) Gateway
}

// ToMinorUnits converts rupees to paise, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts paise back to rupees
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// CheckoutSignature is hex(HMAC-SHA256(secret, orderID|paymentID)), what checkout hands back
func CheckoutSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout signature in constant time
func VerifySignature(paymentID, orderID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := CheckoutSignature(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	return rzputils.VerifyWebhookSignature(string(body), signature, secret)
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentRefunder interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway talks to one Razorpay account
type RazorpayGateway struct {
	orders     orderCreator
	payments   paymentRefunder
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewRazorpayGateway builds a gateway for the given key pair
func NewRazorpayGateway(creds GatewayCredentials, timeout time.Duration, maxRetries uint64) *RazorpayGateway {
	client := razorpay.NewClient(creds.KeyID, creds.KeySecret)
	return newRazorpayGateway(client.Order, client.Payment, timeout, maxRetries)
}

func newRazorpayGateway(orders orderCreator, payments paymentRefunder, timeout time.Duration, maxRetries uint64) *RazorpayGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		orders:     orders,
		payments:   payments,
		timeout:    timeout,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// CreateOrder creates an auto-captured order, retrying transient failures
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	if amount <= 0 {
		return nil, utils.Validationf("order amount must be positive, got %d", amount)
	}
	data := map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
		"notes":           toNotes(notes),
	}

	var raw map[string]interface{}
	attempt := 0
	op := func() error {
		attempt++
		var err error
		raw, err = callWithTimeout(ctx, g.timeout, func() (map[string]interface{}, error) {
			return g.orders.Create(data, nil)
		})
		if err != nil {
			utils.LogError("Razorpay order create attempt %d for receipt %s failed: %v", attempt, receipt, err)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), g.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, utils.GatewayError("create order", err)
	}

	order := &GatewayOrder{
		ID:       stringField(raw, "id"),
		Amount:   int64Field(raw, "amount"),
		Currency: stringField(raw, "currency"),
		Receipt:  stringField(raw, "receipt"),
		Status:   stringField(raw, "status"),
	}
	if order.ID == "" {
		return nil, utils.GatewayError("create order", fmt.Errorf("response without order id"))
	}
	if order.Amount == 0 {
		order.Amount = amount
	}
	if order.Currency == "" {
		order.Currency = currency
	}
	utils.LogInfo("Created Razorpay order %s for receipt %s (%d %s)", order.ID, receipt, order.Amount, order.Currency)
	return order, nil
}

// Refund refunds part or all of a captured payment. Refunds are not retried.
func (g *RazorpayGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*GatewayRefund, error) {
	if amount <= 0 {
		return nil, utils.Validationf("refund amount must be positive, got %d", amount)
	}
	raw, err := callWithTimeout(ctx, g.timeout, func() (map[string]interface{}, error) {
		return g.payments.Refund(paymentID, int(amount), map[string]interface{}{"notes": toNotes(notes)}, nil)
	})
	if err != nil {
		return nil, utils.GatewayError("refund payment "+paymentID, err)
	}

	refund := &GatewayRefund{
		ID:        stringField(raw, "id"),
		PaymentID: stringField(raw, "payment_id"),
		Amount:    int64Field(raw, "amount"),
		Status:    stringField(raw, "status"),
	}
	if refund.ID == "" {
		return nil, utils.GatewayError("refund payment "+paymentID, fmt.Errorf("response without refund id"))
	}
	utils.LogInfo("Refunded %d paise of Razorpay payment %s as %s", refund.Amount, paymentID, refund.ID)
	return refund, nil
}

// callWithTimeout bounds a blocking SDK call that does not accept a context
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, call func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func toNotes(notes map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(notes))
	for k, v := range notes {
		out[k] = v
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// RazorpayProvider routes each library to its own verified account or the platform account
type RazorpayProvider struct {
	platform   GatewayCredentials
	timeout    time.Duration
	maxRetries uint64

	mu      sync.Mutex
	clients map[string]Gateway
}

// NewRazorpayProvider returns a provider falling back to the platform credentials
func NewRazorpayProvider(platform GatewayCredentials, timeout time.Duration, maxRetries uint64) *RazorpayProvider {
	return &RazorpayProvider{
		platform:   platform,
		timeout:    timeout,
		maxRetries: maxRetries,
		clients:    make(map[string]Gateway),
	}
}

// Credentials implements GatewayProvider
func (p *RazorpayProvider) Credentials(library *models.Library) GatewayCredentials {
	if !library.HasOwnGateway() {
		return p.platform
	}
	creds := GatewayCredentials{
		KeyID:         library.RazorpayKeyID,
		KeySecret:     library.RazorpayKeySecret,
		WebhookSecret: library.RazorpayWebhookSecret,
	}
	if creds.WebhookSecret == "" {
		creds.WebhookSecret = p.platform.WebhookSecret
	}
	return creds
}

// Gateway implements GatewayProvider, reusing one client per key pair
func (p *RazorpayProvider) Gateway(creds GatewayCredentials) Gateway {
	key := creds.KeyID + ":" + creds.KeySecret
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.clients[key]; ok {
		return g
	}
	g := NewRazorpayGateway(creds, p.timeout, p.maxRetries)
	p.clients[key] = g
	return g
}
