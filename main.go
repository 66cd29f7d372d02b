package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Govind-619/LibTrack/config"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/routes"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(cfg.LogDir); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := utils.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators:", err)
	}

	// Initialize database
	if err := config.InitDB(cfg); err != nil {
		utils.LogError("Failed to initialize database: %v", err)
		log.Fatal("Failed to initialize database:", err)
	}
	store := repository.NewGormStore(config.DB)

	gateways := services.NewRazorpayProvider(services.GatewayCredentials{
		KeyID:         cfg.RazorpayKey,
		KeySecret:     cfg.RazorpaySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
	}, cfg.GatewayTimeout, cfg.GatewayMaxRetries)
	notifier := services.NewEmailNotifier(utils.NewMailer(utils.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}))

	billing := services.NewBillingEngine(store, gateways)
	roster := services.NewRosterService(store, notifier, cfg.JWTSecret)
	dashboard := services.NewDashboardService(store)
	reminders := services.NewReminderScheduler(store, billing, notifier, services.ReminderConfig{
		Schedule:   cfg.ReminderCron,
		WindowDays: cfg.ReminderWindowDays,
	})

	// Create the first admin
	if err := roster.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		utils.LogError("Failed to create admin: %v", err)
		log.Fatal("Failed to create admin:", err)
	}

	if cfg.ReminderEnabled {
		if err := reminders.Start(); err != nil {
			utils.LogError("Failed to start reminder scheduler: %v", err)
			log.Fatal("Failed to start reminder scheduler:", err)
		}
	}

	// Set up router
	router := routes.SetupRouter(routes.Dependencies{
		Store:       store,
		Billing:     billing,
		Roster:      roster,
		Dashboard:   dashboard,
		Reminders:   reminders,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,

		SimulatePayments: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		utils.LogInfo("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError("Error starting server: %v", err)
			log.Fatal("Error starting server:", err)
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Server shutdown failed: %v", err)
	}
	select {
	case <-reminders.Stop().Done():
	case <-shutdownCtx.Done():
		utils.LogError("Reminder run still active at shutdown")
	}
	utils.LogInfo("Server stopped")
}
