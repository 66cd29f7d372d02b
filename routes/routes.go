package routes

import (
	"net/http"

	"github.com/Govind-619/LibTrack/controllers"
	"github.com/Govind-619/LibTrack/middleware"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	Store       repository.Store
	Billing     *services.BillingEngine
	Roster      *services.RosterService
	Dashboard   *services.DashboardService
	Reminders   *services.ReminderScheduler
	JWTSecret   string
	CORSOrigins []string

	// SimulatePayments mounts the checkout simulator; development only
	SimulatePayments bool
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.CORSMiddleware(deps.CORSOrigins))
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": utils.AppName})
	})

	api := router.Group("/api")
	{
		initAuthRoutes(api, deps)
		initPaymentRoutes(api, deps)
		initRosterRoutes(api, deps)
	}

	return router
}

func initAuthRoutes(api *gin.RouterGroup, deps Dependencies) {
	auth := controllers.NewAuthController(deps.Roster)
	api.POST("/auth/login", auth.Login)
	api.GET("/auth/me", middleware.AuthMiddleware(deps.Store.Users(), deps.JWTSecret), auth.Me)
}
