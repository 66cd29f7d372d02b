package routes

import (
	"github.com/Govind-619/LibTrack/controllers"
	"github.com/Govind-619/LibTrack/middleware"
	"github.com/Govind-619/LibTrack/models"
	"github.com/gin-gonic/gin"
)

func initPaymentRoutes(api *gin.RouterGroup, deps Dependencies) {
	payments := controllers.NewPaymentController(deps.Billing, deps.Roster, deps.Reminders)

	// Razorpay calls this directly; it is authenticated by signature
	api.POST("/payments/razorpay/webhook", payments.Webhook)

	group := api.Group("/payments")
	group.Use(middleware.AuthMiddleware(deps.Store.Users(), deps.JWTSecret))
	{
		group.POST("/create-order", payments.CreateOrder)
		group.POST("/verify-payment", payments.VerifyPayment)
		group.GET("/student/:studentId", payments.GetPaymentsByStudent)
		group.GET("/:id", payments.GetPayment)
		group.GET("/:id/receipt", payments.DownloadReceipt)

		staff := group.Group("")
		staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleLibrarian))
		{
			staff.GET("/library/:libraryId", payments.GetPaymentsByLibrary)
			staff.GET("/library/:libraryId/export", payments.ExportLibraryPayments)
			staff.POST("/:id/refund", payments.ProcessRefund)
			staff.POST("/cash", payments.MakeCashPayment)
		}

		group.POST("/reminders/run", middleware.RequireRoles(models.RoleAdmin), payments.RunReminders)
		if deps.SimulatePayments {
			group.POST("/simulate", middleware.RequireRoles(models.RoleAdmin), payments.SimulatePayment)
		}
	}
}
