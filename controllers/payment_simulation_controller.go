package controllers

import (
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

// SimulatePayment returns a signed checkout response for a pending order, for
// exercising verify-payment in development
//
// POST /api/payments/simulate?order_id=
func (pc *PaymentController) SimulatePayment(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		utils.BadRequest(c, "Order ID is required", nil)
		return
	}

	in, err := pc.billing.SimulateCheckout(c.Request.Context(), orderID)
	if err != nil {
		utils.RespondError(c, "Payment simulation failed", err)
		return
	}
	utils.LogDebug("Simulated checkout for order %s", orderID)

	utils.Success(c, "Payment simulation completed successfully", gin.H{
		"razorpay_order_id":   in.GatewayOrderID,
		"razorpay_payment_id": in.GatewayPaymentID,
		"razorpay_signature":  in.Signature,
	})
}
