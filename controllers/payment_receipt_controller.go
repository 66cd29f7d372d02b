package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
)

// GET /api/payments/:id/receipt
func (pc *PaymentController) DownloadReceipt(c *gin.Context) {
	utils.LogInfo("DownloadReceipt called")
	payment, ok := pc.loadPayment(c)
	if !ok {
		return
	}
	if payment.Status != models.PaymentStatusCompleted && payment.Status != models.PaymentStatusRefunded {
		err := utils.NewAppError(http.StatusConflict, utils.KindInvalidState, fmt.Sprintf("payment %d is %s", payment.ID, payment.Status), nil)
		utils.RespondError(c, "Receipts are only available for settled payments", err)
		return
	}

	student, err := pc.roster.GetStudent(c.Request.Context(), payment.StudentID)
	if err != nil {
		utils.RespondError(c, "Student not found", err)
		return
	}
	library, err := pc.roster.GetLibrary(c.Request.Context(), payment.LibraryID)
	if err != nil {
		utils.RespondError(c, "Library not found", err)
		return
	}

	pdfBytes, err := renderReceipt(payment, student, library)
	if err != nil {
		utils.LogError("Failed to render receipt for payment %d: %v", payment.ID, err)
		utils.InternalServerError(c, "Failed to generate receipt", err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_%d.pdf", payment.ID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
	utils.LogInfo("Receipt generated for payment %d", payment.ID)
}

func renderReceipt(payment *models.PaymentRecord, student *models.Student, library *models.Library) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, library.Name)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	if library.Address != "" {
		pdf.Cell(100, 7, library.Address)
		pdf.Ln(6)
	}
	pdf.Cell(100, 7, "Email: "+library.ContactEmail+"  Phone: "+library.ContactPhone)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(90, 8, fmt.Sprintf("Receipt No: %d", payment.ID))
	pdf.Cell(90, 8, "Date: "+payment.PaymentDate.Format("2006-01-02 15:04"))
	pdf.Ln(8)
	pdf.Cell(90, 8, "Billed To: "+utils.Title(student.User.Name))
	pdf.Cell(90, 8, student.User.Email)
	pdf.Ln(12)

	rows := [][2]string{
		{"Description", payment.Description},
		{"Billing Month", payment.Month},
		{"Payment Method", string(payment.PaymentMethod)},
		{"Status", string(payment.Status)},
		{"Amount", utils.FormatRupees(payment.Amount)},
	}
	if payment.GatewayPaymentID != "" {
		rows = append(rows, [2]string{"Gateway Reference", payment.GatewayPaymentID})
	}
	if payment.Status == models.PaymentStatusRefunded && payment.RefundAmount != nil {
		rows = append(rows,
			[2]string{"Refunded", utils.FormatRupees(*payment.RefundAmount)},
			[2]string{"Refund Reason", payment.RefundReason},
		)
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(60, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(110, 8, row[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 11)
	pdf.Cell(0, 10, "Next due date: "+student.NextDueDate.Format("2006-01-02"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
