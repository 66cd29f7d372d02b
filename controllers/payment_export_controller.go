package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

const exportPageSize = utils.MaxPaginationLimit

// GET /api/payments/library/:libraryId/export
func (pc *PaymentController) ExportLibraryPayments(c *gin.Context) {
	utils.LogInfo("ExportLibraryPayments called")
	libraryID, ok := parseID(c, "libraryId")
	if !ok || !authorizeLibrary(c, libraryID) {
		return
	}
	lastDays, err := strconv.Atoi(c.DefaultQuery("lastDays", strconv.Itoa(utils.DefaultPaymentLookbackDays)))
	if err != nil || lastDays < 1 {
		utils.BadRequest(c, "lastDays must be a positive number", c.Query("lastDays"))
		return
	}

	library, err := pc.roster.GetLibrary(c.Request.Context(), libraryID)
	if err != nil {
		utils.RespondError(c, "Library not found", err)
		return
	}

	var payments []models.PaymentRecord
	for skip := 0; ; skip += exportPageSize {
		page, err := pc.billing.PaymentsByLibrary(c.Request.Context(), libraryID, services.LibraryPaymentsQuery{
			LastDays: lastDays,
			Limit:    exportPageSize,
			Skip:     skip,
		})
		if err != nil {
			utils.RespondError(c, "Failed to load payments", err)
			return
		}
		payments = append(payments, page.Payments...)
		if len(page.Payments) < exportPageSize {
			break
		}
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Payments")
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.InternalServerError(c, "Failed to create Excel sheet", err.Error())
		return
	}

	titleRow := sheet.AddRow()
	titleRow.AddCell().SetString(library.Name + " - Payments")
	periodRow := sheet.AddRow()
	periodRow.AddCell().SetString(fmt.Sprintf("Last %d days, generated %s", lastDays, time.Now().Format("2006-01-02 15:04")))
	sheet.AddRow()

	headers := []string{"Payment ID", "Student ID", "Month", "Date", "Amount", "Currency", "Method", "Status", "Gateway Order", "Gateway Payment", "Refunded"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}

	for _, p := range payments {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetInt(int(p.StudentID))
		row.AddCell().SetString(p.Month)
		row.AddCell().SetString(p.PaymentDate.Format("2006-01-02 15:04"))
		amount, _ := p.Amount.Float64()
		row.AddCell().SetFloat(amount)
		row.AddCell().SetString(p.Currency)
		row.AddCell().SetString(string(p.PaymentMethod))
		row.AddCell().SetString(string(p.Status))
		row.AddCell().SetString(p.GatewayOrderID)
		row.AddCell().SetString(p.GatewayPaymentID)
		if p.RefundAmount != nil {
			refunded, _ := p.RefundAmount.Float64()
			row.AddCell().SetFloat(refunded)
		} else {
			row.AddCell().SetString("")
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=payments_library_%d.xlsx", libraryID))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		return
	}
	utils.LogInfo("Exported %d payments for library %d", len(payments), libraryID)
}
