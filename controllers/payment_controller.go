package controllers

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PaymentController exposes the billing engine over HTTP
type PaymentController struct {
	billing   *services.BillingEngine
	roster    *services.RosterService
	reminders *services.ReminderScheduler
}

// NewPaymentController builds a PaymentController
func NewPaymentController(billing *services.BillingEngine, roster *services.RosterService, reminders *services.ReminderScheduler) *PaymentController {
	return &PaymentController{billing: billing, roster: roster, reminders: reminders}
}

type createOrderRequest struct {
	StudentID   uint            `json:"student_id"`
	LibraryID   uint            `json:"library_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,oneof=INR"`
	Description string          `json:"description" binding:"max=255"`
	Month       string          `json:"month" binding:"omitempty,yyyymm"`
}

// POST /api/payments/create-order
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	utils.LogInfo("CreateOrder called")
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid create order request: %v", err)
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	if user.Role == models.RoleStudent {
		own, err := pc.roster.StudentForUser(c.Request.Context(), user.ID)
		if err != nil {
			utils.RespondError(c, "Student profile not found", err)
			return
		}
		req.StudentID, req.LibraryID = own.ID, own.LibraryID
	}
	if req.StudentID == 0 || req.LibraryID == 0 {
		utils.BadRequest(c, "student_id and library_id are required", nil)
		return
	}
	if user.Role != models.RoleStudent && !authorizeLibrary(c, req.LibraryID) {
		return
	}

	result, err := pc.billing.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		StudentID:   req.StudentID,
		LibraryID:   req.LibraryID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Month:       req.Month,
	})
	if err != nil {
		utils.RespondError(c, "Failed to create order", err)
		return
	}

	if result.Existing {
		utils.Success(c, "Pending order already exists for this month", result)
		return
	}
	utils.Created(c, "Order created successfully", result)
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// POST /api/payments/verify-payment
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	utils.LogInfo("VerifyPayment called")
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid verify payment request: %v", err)
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}

	record, err := pc.billing.PaymentByOrder(c.Request.Context(), req.RazorpayOrderID)
	if err != nil {
		utils.RespondError(c, "Payment verification failed", err)
		return
	}
	if !authorizePayment(c, pc.roster, record) {
		return
	}

	payment, err := pc.billing.VerifyPayment(c.Request.Context(), services.VerifyPaymentInput{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		utils.RespondError(c, "Payment verification failed", err)
		return
	}
	utils.Success(c, "Payment verified successfully", gin.H{"payment": payment})
}

// POST /api/payments/razorpay/webhook
func (pc *PaymentController) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Unable to read webhook body", err.Error())
		return
	}

	result, err := pc.billing.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		utils.RespondError(c, "Webhook rejected", err)
		return
	}
	utils.Success(c, "Webhook processed", result)
}

// GET /api/payments/student/:studentId
func (pc *PaymentController) GetPaymentsByStudent(c *gin.Context) {
	studentID, ok := parseID(c, "studentId")
	if !ok {
		return
	}
	student, err := pc.roster.GetStudent(c.Request.Context(), studentID)
	if err != nil {
		utils.RespondError(c, "Student not found", err)
		return
	}
	if !authorizeStudent(c, student) {
		return
	}

	payments, err := pc.billing.PaymentsByStudent(c.Request.Context(), studentID)
	if err != nil {
		utils.RespondError(c, "Failed to load payments", err)
		return
	}
	utils.Success(c, "Payments retrieved successfully", payments)
}

// GET /api/payments/library/:libraryId
func (pc *PaymentController) GetPaymentsByLibrary(c *gin.Context) {
	libraryID, ok := parseID(c, "libraryId")
	if !ok || !authorizeLibrary(c, libraryID) {
		return
	}

	lastDays, err := strconv.Atoi(c.DefaultQuery("lastDays", strconv.Itoa(utils.DefaultPaymentLookbackDays)))
	if err != nil || lastDays < 1 {
		utils.BadRequest(c, "lastDays must be a positive number", c.Query("lastDays"))
		return
	}
	page := utils.NewPagination(c, utils.DefaultPaginationLimit)

	result, err := pc.billing.PaymentsByLibrary(c.Request.Context(), libraryID, services.LibraryPaymentsQuery{
		LastDays: lastDays,
		Status:   models.PaymentStatus(c.Query("status")),
		Limit:    page.Limit,
		Skip:     page.Skip,
	})
	if err != nil {
		utils.RespondError(c, "Failed to load payments", err)
		return
	}
	page.SetTotal(result.Total)
	utils.SuccessWithPagination(c, "Payments retrieved successfully", result.Payments, page)
}

// GET /api/payments/:id
func (pc *PaymentController) GetPayment(c *gin.Context) {
	payment, ok := pc.loadPayment(c)
	if !ok {
		return
	}
	utils.Success(c, "Payment retrieved successfully", gin.H{"payment": payment})
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" binding:"max=255"`
}

// POST /api/payments/:id/refund
func (pc *PaymentController) ProcessRefund(c *gin.Context) {
	utils.LogInfo("ProcessRefund called")
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}
	payment, ok := pc.loadPayment(c)
	if !ok {
		return
	}
	user, _ := currentUser(c)
	if !worksAt(user, payment.LibraryID) {
		utils.Forbidden(c, utils.MsgAccessForbidden)
		return
	}

	refunded, err := pc.billing.ProcessRefund(c.Request.Context(), services.RefundInput{
		PaymentID: payment.ID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		ActorID:   user.ID,
	})
	if err != nil {
		utils.RespondError(c, "Refund failed", err)
		return
	}
	utils.Success(c, "Refund processed successfully", gin.H{"payment": refunded})
}

type cashPaymentRequest struct {
	StudentID      uint   `json:"student_id" binding:"required"`
	NumberOfMonths int    `json:"number_of_months" binding:"required,gte=1,lte=24"`
	PaymentDate    string `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
}

// POST /api/payments/cash
func (pc *PaymentController) MakeCashPayment(c *gin.Context) {
	utils.LogInfo("MakeCashPayment called")
	var req cashPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid cash payment request: %v", err)
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}

	student, err := pc.roster.GetStudent(c.Request.Context(), req.StudentID)
	if err != nil {
		utils.RespondError(c, "Student not found", err)
		return
	}
	if !authorizeLibrary(c, student.LibraryID) {
		return
	}

	var paidAt time.Time
	if req.PaymentDate != "" {
		paidAt, _ = time.ParseInLocation("2006-01-02", req.PaymentDate, time.Local)
	}

	result, err := pc.billing.MakeCashPayment(c.Request.Context(), services.CashPaymentInput{
		StudentID:      student.ID,
		NumberOfMonths: req.NumberOfMonths,
		PaymentDate:    paidAt,
	})
	if err != nil {
		status, kind := utils.ClassifyError(err)
		utils.LogError("Cash payment for student %d stopped after %d months: %v", student.ID, monthsApplied(result), err)
		utils.Error(c, status, kind, "Cash payment failed", gin.H{"error": err.Error(), "partial": result})
		return
	}
	utils.Success(c, "Cash payment recorded successfully", result)
}

func monthsApplied(r *services.CashPaymentResult) int {
	if r == nil {
		return 0
	}
	return r.MonthsApplied
}

// POST /api/payments/reminders/run
func (pc *PaymentController) RunReminders(c *gin.Context) {
	utils.LogInfo("RunReminders called")
	summary, err := pc.reminders.RunOnce(c.Request.Context())
	if errors.Is(err, services.ErrReminderRunInProgress) {
		utils.RespondError(c, "Reminder run already in progress", err)
		return
	}
	if err != nil && (summary == nil || summary.Failed == 0) {
		utils.RespondError(c, "Reminder run failed", err)
		return
	}
	if err != nil {
		utils.LogError("Manual reminder run finished with %d failures: %v", summary.Failed, err)
	}
	utils.Success(c, "Reminder run completed", summary)
}

// loadPayment fetches the :id payment and checks the caller may see it
func (pc *PaymentController) loadPayment(c *gin.Context) (*models.PaymentRecord, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	payment, err := pc.billing.GetPayment(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Payment not found", err)
		return nil, false
	}
	if !authorizePayment(c, pc.roster, payment) {
		return nil, false
	}
	return payment, true
}
