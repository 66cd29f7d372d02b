package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository/memory"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = services.GatewayCredentials{KeyID: "rzp_test_key", KeySecret: "checkout_secret", WebhookSecret: "webhook_secret"}

type stubGateway struct {
	mu     sync.Mutex
	orders int
}

func (g *stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (*services.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return &services.GatewayOrder{ID: fmt.Sprintf("order_http%03d", g.orders), Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (g *stubGateway) Refund(_ context.Context, paymentID string, amount int64, _ map[string]string) (*services.GatewayRefund, error) {
	return &services.GatewayRefund{ID: "rfnd_http001", PaymentID: paymentID, Amount: amount, Status: "processed"}, nil
}

type stubProvider struct{ gateway *stubGateway }

func (p stubProvider) Credentials(*models.Library) services.GatewayCredentials { return testCreds }
func (p stubProvider) Gateway(services.GatewayCredentials) services.Gateway    { return p.gateway }

type quietNotifier struct{}

func (quietNotifier) SendPaymentReminder(context.Context, services.PaymentReminder) error { return nil }
func (quietNotifier) SendWelcome(context.Context, services.Welcome) error                 { return nil }

type fixture struct {
	router    *gin.Engine
	store     *memory.Store
	library   *models.Library
	other     *models.Library
	student   *models.Student
	stranger  *models.Student
	admin     *models.User
	librarian *models.User
	rival     *models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SetLogOutput(io.Discard, io.Discard, io.Discard)
	require.NoError(t, utils.RegisterValidators())

	store := memory.NewStore()
	billing := services.NewBillingEngine(store, stubProvider{gateway: &stubGateway{}})
	roster := services.NewRosterService(store, quietNotifier{}, utils.TestJWTSecret)
	f := &fixture{store: store}
	f.router = SetupRouter(Dependencies{
		Store:            store,
		Billing:          billing,
		Roster:           roster,
		Dashboard:        services.NewDashboardService(store),
		Reminders:        services.NewReminderScheduler(store, billing, quietNotifier{}, services.ReminderConfig{WindowDays: 10}),
		JWTSecret:        utils.TestJWTSecret,
		CORSOrigins:      []string{"*"},
		SimulatePayments: true,
	})

	ctx := context.Background()
	f.library = &models.Library{Name: "Quiet Corner", ContactEmail: "quiet@example.com", IsActive: true, EmailNotifications: true}
	require.NoError(t, store.Libraries().Create(ctx, f.library))
	f.other = &models.Library{Name: "Loud Corner", ContactEmail: "loud@example.com", IsActive: true}
	require.NoError(t, store.Libraries().Create(ctx, f.other))

	f.admin = f.addUser(t, "admin@example.com", models.RoleAdmin, nil)
	f.librarian = f.addUser(t, "lib@example.com", models.RoleLibrarian, &f.library.ID)
	f.rival = f.addUser(t, "rival@example.com", models.RoleLibrarian, &f.other.ID)
	f.student = f.addStudent(t, "asha@example.com")
	f.stranger = f.addStudent(t, "ravi@example.com")
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role models.Role, libraryID *uint) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password-123")
	require.NoError(t, err)
	user := &models.User{Name: email, Email: email, Password: hash, Role: role, LibraryID: libraryID, IsActive: true}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) addStudent(t *testing.T, email string) *models.Student {
	t.Helper()
	user := f.addUser(t, email, models.RoleStudent, &f.library.ID)
	today := time.Now()
	student := &models.Student{
		LibraryID: f.library.ID,
		UserID:    user.ID,
		JoinDate:  models.AddMonths(today, -1),
		Status:    models.StudentStatusActive,
		SubscriptionState: models.SubscriptionState{
			NextDueDate: time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
			Fee:         decimal.NewFromInt(500),
		},
	}
	require.NoError(t, f.store.Students().Create(context.Background(), student))
	student.User = *user
	return student
}

func (f *fixture) do(t *testing.T, method, path string, user *models.User, body interface{}) utils.TestResponse {
	t.Helper()
	req := utils.TestRequest{Method: method, Path: path, Body: body}
	if user != nil {
		req.Headers = utils.BearerHeader(utils.GetTestToken(t, user))
	}
	return utils.MakeTestRequest(t, f.router, req)
}

// checkout creates an order as the student and pays it through the simulator
func (f *fixture) checkout(t *testing.T, student *models.Student) map[string]interface{} {
	t.Helper()
	created := f.do(t, http.MethodPost, "/api/payments/create-order", &student.User, gin.H{})
	utils.AssertResponse(t, created, http.StatusCreated, "")
	orderID := created.Data()["order"].(map[string]interface{})["id"].(string)

	signed := f.do(t, http.MethodPost, "/api/payments/simulate?order_id="+orderID, f.admin, nil)
	utils.AssertResponse(t, signed, http.StatusOK, "")

	verified := f.do(t, http.MethodPost, "/api/payments/verify-payment", &student.User, signed.Data())
	utils.AssertResponse(t, verified, http.StatusOK, "")
	return verified.Data()["payment"].(map[string]interface{})
}

func paymentPath(payment map[string]interface{}, suffix string) string {
	return fmt.Sprintf("/api/payments/%.0f%s", payment["id"].(float64), suffix)
}

func TestHealth(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodGet, "/health", nil, nil)
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "ok", resp.Body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestLoginAndMe(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "lib@example.com", "password": "password-123"})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	token, _ := resp.Data()["token"].(string)
	require.NotEmpty(t, token)

	me := utils.MakeTestRequest(t, f.router, utils.TestRequest{Method: http.MethodGet, Path: "/api/auth/me", Headers: utils.BearerHeader(token)})
	utils.AssertResponse(t, me, http.StatusOK, "")
	assert.Equal(t, "lib@example.com", me.Data()["user"].(map[string]interface{})["email"])

	bad := f.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "lib@example.com", "password": "nope"})
	utils.AssertResponse(t, bad, http.StatusUnauthorized, utils.KindUnauthorized)

	malformed := f.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "not-an-email"})
	utils.AssertResponse(t, malformed, http.StatusBadRequest, utils.KindValidation)

	anonymous := f.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	utils.AssertResponse(t, anonymous, http.StatusUnauthorized, utils.KindUnauthorized)
}

func TestCreateOrderReusesPendingOrder(t *testing.T) {
	f := setup(t)

	first := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{})
	utils.AssertResponse(t, first, http.StatusCreated, "")
	assert.Equal(t, testCreds.KeyID, first.Data()["key_id"])

	second := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{})
	utils.AssertResponse(t, second, http.StatusOK, "")
	assert.Equal(t, true, second.Data()["existing"])
	assert.Equal(t,
		first.Data()["order"].(map[string]interface{})["id"],
		second.Data()["order"].(map[string]interface{})["id"])

	badMonth := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{"month": "2024-13"})
	utils.AssertResponse(t, badMonth, http.StatusBadRequest, utils.KindValidation)

	rival := f.do(t, http.MethodPost, "/api/payments/create-order", f.rival, gin.H{"student_id": f.student.ID, "library_id": f.library.ID})
	utils.AssertResponse(t, rival, http.StatusForbidden, utils.KindForbidden)
}

func TestVerifyPaymentFlow(t *testing.T) {
	f := setup(t)
	payment := f.checkout(t, f.student)
	assert.Equal(t, string(models.PaymentStatusCompleted), payment["status"])

	again := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{"month": payment["month"]})
	utils.AssertResponse(t, again, http.StatusConflict, utils.KindInvalidState)

	forged := f.do(t, http.MethodPost, "/api/payments/verify-payment", &f.stranger.User, gin.H{
		"razorpay_order_id":   "order_unknown",
		"razorpay_payment_id": "pay_x",
		"razorpay_signature":  "deadbeef",
	})
	utils.AssertResponse(t, forged, http.StatusNotFound, utils.KindNotFound)
}

func TestStudentCreatesOrderForOwnProfile(t *testing.T) {
	f := setup(t)

	created := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{
		"student_id": f.stranger.ID,
		"library_id": f.other.ID,
	})
	utils.AssertResponse(t, created, http.StatusCreated, "")
	payment := created.Data()["payment"].(map[string]interface{})
	assert.EqualValues(t, f.student.ID, payment["student_id"])
	assert.EqualValues(t, f.library.ID, payment["library_id"])
}

func TestVerifyPaymentRejectsOtherStudentsOrder(t *testing.T) {
	f := setup(t)
	created := f.do(t, http.MethodPost, "/api/payments/create-order", f.admin, gin.H{
		"student_id": f.student.ID,
		"library_id": f.library.ID,
	})
	utils.AssertResponse(t, created, http.StatusCreated, "")
	orderID := created.Data()["order"].(map[string]interface{})["id"].(string)

	forged := f.do(t, http.MethodPost, "/api/payments/verify-payment", &f.stranger.User, gin.H{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": "pay_x",
		"razorpay_signature":  "deadbeef",
	})
	utils.AssertResponse(t, forged, http.StatusForbidden, utils.KindForbidden)

	rival := f.do(t, http.MethodPost, "/api/payments/verify-payment", f.rival, gin.H{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": "pay_x",
		"razorpay_signature":  "deadbeef",
	})
	utils.AssertResponse(t, rival, http.StatusForbidden, utils.KindForbidden)

	record, err := f.store.Payments().FindByGatewayOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, record.Status)
}

func TestWebhookCompletesPayment(t *testing.T) {
	f := setup(t)
	created := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{})
	utils.AssertResponse(t, created, http.StatusCreated, "")
	orderID := created.Data()["order"].(map[string]interface{})["id"].(string)

	body := []byte(fmt.Sprintf(`{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_hook1","order_id":%q,"status":"captured"}}}}`, orderID))
	mac := hmac.New(sha256.New, []byte(testCreds.WebhookSecret))
	mac.Write(body)

	resp := utils.MakeTestRequest(t, f.router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/api/payments/razorpay/webhook",
		RawBody: body,
		Headers: map[string]string{"X-Razorpay-Signature": hex.EncodeToString(mac.Sum(nil))},
	})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, true, resp.Data()["handled"])

	unsigned := utils.MakeTestRequest(t, f.router, utils.TestRequest{Method: http.MethodPost, Path: "/api/payments/razorpay/webhook", RawBody: body})
	utils.AssertResponse(t, unsigned, http.StatusBadRequest, utils.KindInvalidSignature)

	student, err := f.store.Students().FindByID(context.Background(), f.student.ID)
	require.NoError(t, err)
	assert.True(t, student.IsPaymentDoneForThisMonth)
}

func TestPaymentAccessControl(t *testing.T) {
	f := setup(t)
	payment := f.checkout(t, f.student)

	own := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/student/%d", f.student.ID), &f.student.User, nil)
	utils.AssertResponse(t, own, http.StatusOK, "")

	other := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/student/%d", f.student.ID), &f.stranger.User, nil)
	utils.AssertResponse(t, other, http.StatusForbidden, utils.KindForbidden)

	peek := f.do(t, http.MethodGet, paymentPath(payment, ""), &f.stranger.User, nil)
	utils.AssertResponse(t, peek, http.StatusForbidden, utils.KindForbidden)

	crossLibrary := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/library/%d", f.library.ID), f.rival, nil)
	utils.AssertResponse(t, crossLibrary, http.StatusForbidden, utils.KindForbidden)

	studentOnStaffRoute := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/library/%d", f.library.ID), &f.student.User, nil)
	utils.AssertResponse(t, studentOnStaffRoute, http.StatusForbidden, utils.KindForbidden)

	notANumber := f.do(t, http.MethodGet, "/api/payments/abc", f.admin, nil)
	utils.AssertResponse(t, notANumber, http.StatusBadRequest, utils.KindValidation)
}

func TestLibraryPaymentsPaginate(t *testing.T) {
	f := setup(t)
	f.checkout(t, f.student)
	f.checkout(t, f.stranger)

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/library/%d?limit=1", f.library.ID), f.librarian, nil)
	utils.AssertResponse(t, resp, http.StatusOK, "")
	page := resp.Body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), page["total"])
	assert.Equal(t, float64(1), page["limit"])
	assert.Len(t, resp.Body["data"], 1)

	badWindow := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/library/%d?lastDays=0", f.library.ID), f.librarian, nil)
	utils.AssertResponse(t, badWindow, http.StatusBadRequest, utils.KindValidation)
}

func TestRefundEndpoint(t *testing.T) {
	f := setup(t)
	created := f.do(t, http.MethodPost, "/api/payments/create-order", &f.student.User, gin.H{})
	pending := created.Data()["payment"].(map[string]interface{})

	resp := f.do(t, http.MethodPost, paymentPath(pending, "/refund"), f.librarian, nil)
	utils.AssertResponse(t, resp, http.StatusConflict, utils.KindInvalidState)

	paid := f.checkout(t, f.stranger)
	resp = f.do(t, http.MethodPost, paymentPath(paid, "/refund"), f.rival, gin.H{"reason": "duplicate"})
	utils.AssertResponse(t, resp, http.StatusForbidden, utils.KindForbidden)

	resp = f.do(t, http.MethodPost, paymentPath(paid, "/refund"), f.librarian, gin.H{"amount": "200", "reason": "left early"})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	refunded := resp.Data()["payment"].(map[string]interface{})
	assert.Equal(t, string(models.PaymentStatusRefunded), refunded["status"])
	assert.Equal(t, "200", refunded["refund_amount"])
}

func TestCashPaymentEndpoint(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, "/api/payments/cash", f.librarian, gin.H{"student_id": f.student.ID, "number_of_months": 2})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, float64(2), resp.Data()["months_applied"])

	invalid := f.do(t, http.MethodPost, "/api/payments/cash", f.librarian, gin.H{"student_id": f.student.ID, "number_of_months": 0})
	utils.AssertResponse(t, invalid, http.StatusBadRequest, utils.KindValidation)

	forbidden := f.do(t, http.MethodPost, "/api/payments/cash", f.rival, gin.H{"student_id": f.student.ID, "number_of_months": 1})
	utils.AssertResponse(t, forbidden, http.StatusForbidden, utils.KindForbidden)
}

func TestReceiptAndExport(t *testing.T) {
	f := setup(t)
	paid := f.checkout(t, f.student)

	receipt := f.do(t, http.MethodGet, paymentPath(paid, "/receipt"), &f.student.User, nil)
	utils.AssertResponse(t, receipt, http.StatusOK, "")
	assert.Equal(t, "application/pdf", receipt.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF", string(receipt.Raw[:4]))

	created := f.do(t, http.MethodPost, "/api/payments/create-order", &f.stranger.User, gin.H{})
	pending := created.Data()["payment"].(map[string]interface{})
	early := f.do(t, http.MethodGet, paymentPath(pending, "/receipt"), f.librarian, nil)
	utils.AssertResponse(t, early, http.StatusConflict, utils.KindInvalidState)

	export := f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/library/%d/export", f.library.ID), f.librarian, nil)
	utils.AssertResponse(t, export, http.StatusOK, "")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.Header.Get("Content-Type"))
	assert.Equal(t, "PK", string(export.Raw[:2]))
}

func TestRemindersRunIsAdminOnly(t *testing.T) {
	f := setup(t)

	denied := f.do(t, http.MethodPost, "/api/payments/reminders/run", f.librarian, nil)
	utils.AssertResponse(t, denied, http.StatusForbidden, utils.KindForbidden)

	resp := f.do(t, http.MethodPost, "/api/payments/reminders/run", f.admin, nil)
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, float64(2), resp.Data()["scanned"])
}

func TestRosterRoutes(t *testing.T) {
	f := setup(t)

	created := f.do(t, http.MethodPost, "/api/students", f.librarian, gin.H{
		"name":  "Meera",
		"email": "meera@example.com",
		"phone": "9123456789",
		"fee":   "650",
	})
	utils.AssertResponse(t, created, http.StatusCreated, "")
	student := created.Data()["student"].(map[string]interface{})
	assert.Equal(t, float64(f.library.ID), student["library_id"])

	list := f.do(t, http.MethodGet, "/api/students?search=meera", f.librarian, nil)
	utils.AssertResponse(t, list, http.StatusOK, "")

	rivalView := f.do(t, http.MethodGet, fmt.Sprintf("/api/students/%.0f", student["ID"].(float64)), f.rival, nil)
	utils.AssertResponse(t, rivalView, http.StatusForbidden, utils.KindForbidden)

	me := f.do(t, http.MethodGet, "/api/students/me", &f.student.User, nil)
	utils.AssertResponse(t, me, http.StatusOK, "")

	newLibrary := f.do(t, http.MethodPost, "/api/libraries", f.librarian, gin.H{"name": "Nope", "contact_email": "nope@example.com"})
	utils.AssertResponse(t, newLibrary, http.StatusForbidden, utils.KindForbidden)

	dashboard := f.do(t, http.MethodGet, fmt.Sprintf("/api/dashboard/library/%d", f.library.ID), f.librarian, nil)
	utils.AssertResponse(t, dashboard, http.StatusOK, "")
	assert.Equal(t, float64(3), dashboard.Data()["total_students"])
}
