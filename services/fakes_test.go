package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/repository/memory"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testNow       = time.Date(2024, time.February, 25, 10, 0, 0, 0, time.UTC)
	platformCreds = GatewayCredentials{KeyID: "rzp_test_platform", KeySecret: "platform_secret", WebhookSecret: "platform_webhook"}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeGateway struct {
	mu        sync.Mutex
	orders    []GatewayOrder
	refunds   []GatewayRefund
	orderErr  error
	refundErr error
	delay     time.Duration
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (*GatewayOrder, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return nil, utils.GatewayError("create order", g.orderErr)
	}
	order := GatewayOrder{
		ID:       fmt.Sprintf("order_test%03d", len(g.orders)+1),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	g.orders = append(g.orders, order)
	return &order, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, amount int64, _ map[string]string) (*GatewayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, utils.GatewayError("refund payment "+paymentID, g.refundErr)
	}
	refund := GatewayRefund{
		ID:        fmt.Sprintf("rfnd_test%03d", len(g.refunds)+1),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    "processed",
	}
	g.refunds = append(g.refunds, refund)
	return &refund, nil
}

func (g *fakeGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type fakeProvider struct {
	gateway *fakeGateway
}

func (p *fakeProvider) Credentials(library *models.Library) GatewayCredentials {
	if library.HasOwnGateway() {
		return GatewayCredentials{
			KeyID:         library.RazorpayKeyID,
			KeySecret:     library.RazorpayKeySecret,
			WebhookSecret: library.RazorpayWebhookSecret,
		}
	}
	return platformCreds
}

func (p *fakeProvider) Gateway(GatewayCredentials) Gateway { return p.gateway }

type fakeNotifier struct {
	mu        sync.Mutex
	reminders []PaymentReminder
	welcomes  []Welcome
	err       error
}

func (n *fakeNotifier) SendPaymentReminder(_ context.Context, msg PaymentReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reminders = append(n.reminders, msg)
	return nil
}

func (n *fakeNotifier) SendWelcome(_ context.Context, msg Welcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.welcomes = append(n.welcomes, msg)
	return nil
}

// flakyStore fails subscription updates so transactional rollback can be observed
type flakyStore struct {
	*memory.Store
	subscriptionErr error
}

func (s *flakyStore) Students() repository.StudentRepository {
	return flakyStudents{StudentRepository: s.Store.Students(), err: s.subscriptionErr}
}

func (s *flakyStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(repository.Store) error { return fn(s) })
}

type flakyStudents struct {
	repository.StudentRepository
	err error
}

func (f flakyStudents) UpdateSubscription(ctx context.Context, id uint, state models.SubscriptionState) error {
	if f.err != nil {
		return f.err
	}
	return f.StudentRepository.UpdateSubscription(ctx, id, state)
}

type testEnv struct {
	store   *memory.Store
	gateway *fakeGateway
	engine  *BillingEngine
	library *models.Library
	student *models.Student
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	utils.SetLogOutput(io.Discard, io.Discard, io.Discard)

	env := &testEnv{store: memory.NewStore(), gateway: &fakeGateway{}}
	env.engine = newTestEngine(env.store, env.gateway)
	env.library = env.addLibrary(t, "Quiet Corner", "quiet@example.com")
	env.student = env.addStudent(t, env.library, "asha@example.com", day(2024, time.March, 1), 500)
	return env
}

func newTestEngine(store repository.Store, gw *fakeGateway) *BillingEngine {
	engine := NewBillingEngine(store, &fakeProvider{gateway: gw})
	engine.now = func() time.Time { return testNow }
	return engine
}

func (env *testEnv) addLibrary(t *testing.T, name, email string) *models.Library {
	t.Helper()
	library := &models.Library{Name: name, ContactEmail: email, IsActive: true, EmailNotifications: true}
	require.NoError(t, env.store.Libraries().Create(context.Background(), library))
	return library
}

func (env *testEnv) addStudent(t *testing.T, library *models.Library, email string, due time.Time, fee int64) *models.Student {
	t.Helper()
	ctx := context.Background()
	libraryID := library.ID
	user := &models.User{Name: "Student " + email, Email: email, Role: models.RoleStudent, LibraryID: &libraryID, IsActive: true}
	require.NoError(t, env.store.Users().Create(ctx, user))

	student := &models.Student{
		LibraryID: library.ID,
		UserID:    user.ID,
		JoinDate:  models.AddMonths(due, -1),
		Status:    models.StudentStatusActive,
		SubscriptionState: models.SubscriptionState{
			NextDueDate: due,
			Fee:         decimal.NewFromInt(fee),
		},
	}
	require.NoError(t, env.store.Students().Create(ctx, student))
	return env.reload(t, student.ID)
}

func (env *testEnv) reload(t *testing.T, studentID uint) *models.Student {
	t.Helper()
	student, err := env.store.Students().FindByID(context.Background(), studentID)
	require.NoError(t, err)
	return student
}

func (env *testEnv) payment(t *testing.T, id uint) *models.PaymentRecord {
	t.Helper()
	record, err := env.store.Payments().FindByID(context.Background(), id)
	require.NoError(t, err)
	return record
}

func (env *testEnv) payments(t *testing.T, studentID uint) []models.PaymentRecord {
	t.Helper()
	records, err := env.store.Payments().ListByStudent(context.Background(), studentID)
	require.NoError(t, err)
	return records
}

func (env *testEnv) createOrder(t *testing.T, month string) *CreateOrderResult {
	t.Helper()
	result, err := env.engine.CreateOrder(context.Background(), CreateOrderInput{
		StudentID:   env.student.ID,
		LibraryID:   env.library.ID,
		Amount:      decimal.NewFromInt(500),
		Currency:    "INR",
		Description: "sub fee",
		Month:       month,
	})
	require.NoError(t, err)
	return result
}

func checkoutSignature(orderID, paymentID string) string {
	return CheckoutSignature(orderID, paymentID, platformCreds.KeySecret)
}

func webhookBody(t *testing.T, event, orderID, paymentID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"entity": "event",
		"event":  event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"id": paymentID, "order_id": orderID, "status": "captured"},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func signWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
