package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Booking    BookingConfig    `yaml:"booking"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Voice      VoiceConfig      `yaml:"voice"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"` // empty allows any origin
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Env   string `yaml:"env"` // "production" or "development"
	Level string `yaml:"level"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnforceConstraints     bool   `yaml:"enforce_constraints"`
}

// BookingConfig tunes the booking status state machine.
type BookingConfig struct {
	MaxUpdateAttempts int `yaml:"max_update_attempts"`
	// AllowAnyTransition reproduces the legacy behaviour of accepting any
	// status change. The completion flag is still never reset.
	AllowAnyTransition bool `yaml:"allow_any_transition"`
}

// GeneratorConfig describes the rolling slot template kept ahead of today.
type GeneratorConfig struct {
	Enabled             bool          `yaml:"enabled"`
	IntervalMinutes     int           `yaml:"interval_minutes"`
	Interval            time.Duration `yaml:"-"` // Ignored by YAML parser
	HorizonDays         int           `yaml:"horizon_days"`
	StartTime           string        `yaml:"start_time"`
	EndTime             string        `yaml:"end_time"`
	SlotDurationMinutes int           `yaml:"slot_duration_minutes"`
	MaxCapacity         int           `yaml:"max_capacity"`
	Timezone            string        `yaml:"timezone"`
}

// VoiceConfig holds the Twilio credentials used for completion calls.
type VoiceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	FromNumber     string `yaml:"from_number"`
	Message        string `yaml:"message"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// DefaultRegion is the ISO 3166 region assumed for stored phone numbers
	// without a country code. Empty requires international format.
	DefaultRegion string `yaml:"default_region"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the push notification worker pool.
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

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Log.Env == "" {
		cfg.Log.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Booking.MaxUpdateAttempts <= 0 {
		cfg.Booking.MaxUpdateAttempts = 3
	}

	if cfg.Generator.IntervalMinutes <= 0 {
		cfg.Generator.IntervalMinutes = 60
	}
	cfg.Generator.Interval = time.Duration(cfg.Generator.IntervalMinutes) * time.Minute
	if cfg.Generator.HorizonDays <= 0 {
		cfg.Generator.HorizonDays = 14
	}
	if cfg.Generator.MaxCapacity <= 0 {
		cfg.Generator.MaxCapacity = 1
	}
	if cfg.Generator.Timezone == "" {
		cfg.Generator.Timezone = "UTC"
	}

	if cfg.Voice.BaseURL == "" {
		cfg.Voice.BaseURL = "https://api.twilio.com"
	}
	if cfg.Voice.Message == "" {
		cfg.Voice.Message = "Hello. Your vehicle service is complete and your vehicle is ready for pickup. Thank you."
	}
	if cfg.Voice.TimeoutSeconds <= 0 {
		cfg.Voice.TimeoutSeconds = 10
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
}

func (cfg *Config) validate() error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be set")
	}
	if cfg.Voice.Enabled && (cfg.Voice.AccountSID == "" || cfg.Voice.AuthToken == "" || cfg.Voice.FromNumber == "") {
		return fmt.Errorf("voice.account_sid, voice.auth_token and voice.from_number are required when voice is enabled")
	}
	return nil
}
