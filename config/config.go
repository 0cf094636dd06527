package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Orders     OrdersConfig     `yaml:"orders"`
	Mail       MailConfig       `yaml:"mail"`
	Push       PushConfig       `yaml:"push"`
	Admin      AdminConfig      `yaml:"admin"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Warranty   WarrantyConfig   `yaml:"warranty"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// OrdersConfig points at the commerce API used for order lookups.
type OrdersConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// MailConfig holds SMTP settings for customer notifications.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	SiteName string `yaml:"site_name"`
	CheckURL string `yaml:"check_url"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// AdminConfig holds credentials for the back-office API.
type AdminConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	Password        string `yaml:"password"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// SweepConfig controls the periodic expiry sweep.
type SweepConfig struct {
	Enabled                 bool          `yaml:"enabled"`
	IntervalMinutes         int           `yaml:"interval_minutes"`
	Interval                time.Duration `yaml:"-"` // Ignored by YAML parser
	ExpiringWindowDays      int           `yaml:"expiring_window_days"`
	NewlyExpiredWindowHours int           `yaml:"newly_expired_window_hours"`
	// CleanupAfterDays removes expired records this long after their
	// expiry. Zero disables cleanup.
	CleanupAfterDays int `yaml:"cleanup_after_days"`
}

// WarrantyConfig holds the warranty policy options.
type WarrantyConfig struct {
	AutoActivate          bool   `yaml:"auto_activate"`
	EmailNotifications    bool   `yaml:"email_notifications"`
	DefaultWarrantyMonths []int  `yaml:"default_warranty_months"`
	WarrantyAttribute     string `yaml:"warranty_attribute"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Orders.TimeoutSeconds <= 0 {
		cfg.Orders.TimeoutSeconds = 30
	}
	cfg.Orders.Timeout = time.Duration(cfg.Orders.TimeoutSeconds) * time.Second

	if cfg.Sweep.IntervalMinutes <= 0 {
		cfg.Sweep.IntervalMinutes = 60
	}
	cfg.Sweep.Interval = time.Duration(cfg.Sweep.IntervalMinutes) * time.Minute

	if cfg.Sweep.ExpiringWindowDays <= 0 {
		cfg.Sweep.ExpiringWindowDays = 30
	}
	if cfg.Sweep.NewlyExpiredWindowHours <= 0 {
		cfg.Sweep.NewlyExpiredWindowHours = 24
	}

	if len(cfg.Warranty.DefaultWarrantyMonths) == 0 {
		cfg.Warranty.DefaultWarrantyMonths = []int{6, 12, 18, 24, 36}
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Admin.TokenTTLMinutes <= 0 {
		cfg.Admin.TokenTTLMinutes = 60
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
