package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string
	Port      string
	Env       string
	LogDir    string

	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string
	GatewayTimeout        time.Duration
	GatewayMaxRetries     uint64

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	ReminderCron       string
	ReminderWindowDays int
	ReminderEnabled    bool

	CORSOrigins []string

	AdminEmail    string
	AdminPassword string
}

// LoadConfig loads configuration from .env (when present) and the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "libtrack"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogDir:    getEnv("LOG_DIR", "logs"),

		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		ReminderCron: getEnv("REMINDER_CRON", "0 10 * * *"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.GatewayTimeout, err = time.ParseDuration(getEnv("GATEWAY_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_TIMEOUT: %v", err)
	}
	if cfg.GatewayMaxRetries, err = strconv.ParseUint(getEnv("GATEWAY_MAX_RETRIES", "3"), 10, 32); err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_MAX_RETRIES: %v", err)
	}
	if cfg.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
	}
	if cfg.ReminderWindowDays, err = strconv.Atoi(getEnv("REMINDER_WINDOW_DAYS", "10")); err != nil || cfg.ReminderWindowDays <= 0 {
		return nil, fmt.Errorf("invalid REMINDER_WINDOW_DAYS: %q", os.Getenv("REMINDER_WINDOW_DAYS"))
	}
	if cfg.ReminderEnabled, err = strconv.ParseBool(getEnv("REMINDER_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("invalid REMINDER_ENABLED: %v", err)
	}

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RazorpayKey == "" || c.RazorpaySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY and RAZORPAY_SECRET are required")
	}
	return nil
}

// DSN returns the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
