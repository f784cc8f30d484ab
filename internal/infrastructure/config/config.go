package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Billing   BillingConfig
	Gateway   GatewayConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SchedulerConfig holds background job scheduling configuration
type SchedulerConfig struct {
	Enabled               bool
	BillingRunSchedule    string // monthly invoice generation
	PenaltySweepSchedule  string // daily penalty assessment
	OverdueSweepSchedule  string // daily overdue status sweep
	ReconcileSchedule     string // stale gateway transaction reconciliation
	MaxConcurrentJobs     int
	JobTimeout            time.Duration
	RetryAttempts         int
	RetryDelay            time.Duration
	ReconcileBatchSize    int
	ReconcileLookbackDays int
}

// BillingConfig holds invoice and penalty policy configuration
type BillingConfig struct {
	PenaltyType      string // flat, percent
	PenaltyFlatCents int64
	PenaltyPercent   float64
	GraceDays        int
}

// GatewayConfig holds mobile money gateway configuration
type GatewayConfig struct {
	PollInterval time.Duration // delay between status queries while resolving
	PollBudget   time.Duration // total time to wait before declaring timeout
	StaleAfter   time.Duration // age at which unresolved transactions are swept
	Mpesa        MpesaConfig
	Pesapal      PesapalConfig
}

// MpesaConfig holds Daraja STK Push credentials
type MpesaConfig struct {
	Enabled        bool
	BaseURL        string // https://sandbox.safaricom.co.ke or production
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// PesapalConfig holds PesaPal API 3.0 credentials
type PesapalConfig struct {
	Enabled        bool
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	IPNID          string // registered IPN notification id
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RENT_ prefix (e.g., RENT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("RENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:               v.GetBool("scheduler.enabled"),
			BillingRunSchedule:    v.GetString("scheduler.billing_run_schedule"),
			PenaltySweepSchedule:  v.GetString("scheduler.penalty_sweep_schedule"),
			OverdueSweepSchedule:  v.GetString("scheduler.overdue_sweep_schedule"),
			ReconcileSchedule:     v.GetString("scheduler.reconcile_schedule"),
			MaxConcurrentJobs:     v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:            v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:         v.GetInt("scheduler.retry_attempts"),
			RetryDelay:            v.GetDuration("scheduler.retry_delay"),
			ReconcileBatchSize:    v.GetInt("scheduler.reconcile_batch_size"),
			ReconcileLookbackDays: v.GetInt("scheduler.reconcile_lookback_days"),
		},
		Billing: BillingConfig{
			PenaltyType:      v.GetString("billing.penalty_type"),
			PenaltyFlatCents: v.GetInt64("billing.penalty_flat_cents"),
			PenaltyPercent:   v.GetFloat64("billing.penalty_percent"),
			GraceDays:        v.GetInt("billing.grace_days"),
		},
		Gateway: GatewayConfig{
			PollInterval: v.GetDuration("gateway.poll_interval"),
			PollBudget:   v.GetDuration("gateway.poll_budget"),
			StaleAfter:   v.GetDuration("gateway.stale_after"),
			Mpesa: MpesaConfig{
				Enabled:        v.GetBool("gateway.mpesa.enabled"),
				BaseURL:        v.GetString("gateway.mpesa.base_url"),
				ConsumerKey:    v.GetString("gateway.mpesa.consumer_key"),
				ConsumerSecret: v.GetString("gateway.mpesa.consumer_secret"),
				ShortCode:      v.GetString("gateway.mpesa.short_code"),
				Passkey:        v.GetString("gateway.mpesa.passkey"),
				CallbackURL:    v.GetString("gateway.mpesa.callback_url"),
			},
			Pesapal: PesapalConfig{
				Enabled:        v.GetBool("gateway.pesapal.enabled"),
				BaseURL:        v.GetString("gateway.pesapal.base_url"),
				ConsumerKey:    v.GetString("gateway.pesapal.consumer_key"),
				ConsumerSecret: v.GetString("gateway.pesapal.consumer_secret"),
				CallbackURL:    v.GetString("gateway.pesapal.callback_url"),
				IPNID:          v.GetString("gateway.pesapal.ipn_id"),
			},
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "rent-billing"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "rent"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly
	// configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Agency-ID"}
	}
	if cfg.Scheduler.BillingRunSchedule == "" {
		cfg.Scheduler.BillingRunSchedule = "0 2 1 * *" // 02:00 on the 1st
	}
	if cfg.Scheduler.PenaltySweepSchedule == "" {
		cfg.Scheduler.PenaltySweepSchedule = "0 3 * * *"
	}
	if cfg.Scheduler.OverdueSweepSchedule == "" {
		cfg.Scheduler.OverdueSweepSchedule = "30 2 * * *"
	}
	if cfg.Scheduler.ReconcileSchedule == "" {
		cfg.Scheduler.ReconcileSchedule = "*/10 * * * *"
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 3
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 5 * time.Minute
	}
	if cfg.Scheduler.ReconcileBatchSize == 0 {
		cfg.Scheduler.ReconcileBatchSize = 100
	}
	if cfg.Scheduler.ReconcileLookbackDays == 0 {
		cfg.Scheduler.ReconcileLookbackDays = 7
	}
	if cfg.Billing.PenaltyType == "" {
		cfg.Billing.PenaltyType = "flat"
	}
	if cfg.Billing.PenaltyFlatCents == 0 {
		cfg.Billing.PenaltyFlatCents = 50000 // KES 500.00
	}
	if cfg.Billing.GraceDays == 0 {
		cfg.Billing.GraceDays = 3
	}
	if cfg.Gateway.PollInterval == 0 {
		cfg.Gateway.PollInterval = 3 * time.Second
	}
	if cfg.Gateway.PollBudget == 0 {
		cfg.Gateway.PollBudget = 90 * time.Second
	}
	if cfg.Gateway.StaleAfter == 0 {
		cfg.Gateway.StaleAfter = 5 * time.Minute
	}
	if cfg.Gateway.Mpesa.BaseURL == "" {
		cfg.Gateway.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
	}
	if cfg.Gateway.Pesapal.BaseURL == "" {
		cfg.Gateway.Pesapal.BaseURL = "https://cybqa.pesapal.com/pesapalv3"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Billing.PenaltyType {
	case "flat", "percent":
	default:
		return fmt.Errorf("billing.penalty_type must be 'flat' or 'percent', got %q", c.Billing.PenaltyType)
	}
	if c.Billing.PenaltyType == "percent" && (c.Billing.PenaltyPercent <= 0 || c.Billing.PenaltyPercent > 100) {
		return fmt.Errorf("billing.penalty_percent must be in (0, 100], got %f", c.Billing.PenaltyPercent)
	}
	if c.Billing.GraceDays < 0 {
		return fmt.Errorf("billing.grace_days cannot be negative")
	}

	if c.Gateway.PollInterval >= c.Gateway.PollBudget {
		return fmt.Errorf("gateway.poll_interval (%s) must be shorter than gateway.poll_budget (%s)",
			c.Gateway.PollInterval, c.Gateway.PollBudget)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// CORS must not use wildcard in production
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Gateway.Mpesa.Enabled {
			if c.Gateway.Mpesa.ConsumerKey == "" || c.Gateway.Mpesa.ConsumerSecret == "" {
				return fmt.Errorf("gateway.mpesa credentials are required when the channel is enabled in production")
			}
			if c.Gateway.Mpesa.ShortCode == "" || c.Gateway.Mpesa.Passkey == "" {
				return fmt.Errorf("gateway.mpesa.short_code and passkey are required when the channel is enabled in production")
			}
		}
		if c.Gateway.Pesapal.Enabled {
			if c.Gateway.Pesapal.ConsumerKey == "" || c.Gateway.Pesapal.ConsumerSecret == "" {
				return fmt.Errorf("gateway.pesapal credentials are required when the channel is enabled in production")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
