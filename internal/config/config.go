package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the application configuration.
type Config struct {
	// Server is the admin HTTP listener (health, correlation-id demo).
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	// Database is the Postgres connection. URL, when set, takes
	// precedence over the individual fields (mirrors DATABASE_URL).
	Database struct {
		URL      string `mapstructure:"url"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	// WebSocket is the session-handler listener.
	WebSocket struct {
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		Path           string `mapstructure:"path"`
		MaxConnections int    `mapstructure:"max_connections"`
	} `mapstructure:"websocket"`

	// Matcher configures the periodic matching service driver (§4.7).
	Matcher struct {
		TickInterval          time.Duration `mapstructure:"tick_interval"`
		ChunkSize             int           `mapstructure:"chunk_size"`
		BackpressureThreshold int           `mapstructure:"backpressure_threshold"`
	} `mapstructure:"matcher"`

	// Cache configures the optional cache layer (component 10).
	Cache struct {
		URL             string        `mapstructure:"url"`
		ClaimsTTL       time.Duration `mapstructure:"claims_ttl"`
		SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"`
		CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	} `mapstructure:"cache"`

	// Monitoring configuration.
	Monitoring struct {
		PrometheusPort int    `mapstructure:"prometheus_port"`
		LogLevel       string `mapstructure:"log_level"`
	} `mapstructure:"monitoring"`

	// Auth configuration for JWT credential validation (§4.9).
	Auth struct {
		JWTSecret          string `mapstructure:"jwt_secret"`
		TokenDuration      int    `mapstructure:"token_duration"` // minutes
		MinProtocolVersion string `mapstructure:"min_protocol_version"`
	} `mapstructure:"auth"`

	// Session configures the session handler's timeouts and rate limits (§5, §7).
	Session struct {
		AuthTimeout        time.Duration `mapstructure:"auth_timeout"`
		IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
		ProtocolErrorLimit int           `mapstructure:"protocol_error_limit"`
		InboundRatePerSec  float64       `mapstructure:"inbound_rate_per_sec"`
		InboundBurst       int           `mapstructure:"inbound_burst"`
	} `mapstructure:"session"`

	// Broadcast configures the internal trade event bus feeding session
	// fan-out (§4.8).
	Broadcast struct {
		NatsURL string `mapstructure:"nats_url"`
	} `mapstructure:"broadcast"`
}

var (
	config *Config
	once   sync.Once
)

// LoadConfig starts from built-in defaults, overlays config.yaml when one is
// found, then lets DATABASE_URL, CACHE_URL and NATS_URL override their fields.
// TRADSYS_-prefixed variables are consulted only for keys present in the
// file, under viper's dotted key names (no env key replacer is set).
func LoadConfig(configPath string) (*Config, error) {
	var err error

	once.Do(func() {
		config = &Config{}

		setDefaults()

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/tradsys")
		}

		v.AutomaticEnv()
		v.SetEnvPrefix("TRADSYS")

		if err = v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to read config file: %w", err)
				return
			}
			err = nil
		}

		if err = v.Unmarshal(config); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}

		if url := os.Getenv("DATABASE_URL"); url != "" {
			config.Database.URL = url
		}
		if url := os.Getenv("CACHE_URL"); url != "" {
			config.Cache.URL = url
		}
		if url := os.Getenv("NATS_URL"); url != "" {
			config.Broadcast.NatsURL = url
		}
		if config.Database.URL == "" {
			err = fmt.Errorf("DATABASE_URL is required")
		}
	})

	return config, err
}

// GetConfig returns the current configuration, loading it with defaults if
// it has not been loaded yet.
func GetConfig() *Config {
	if config == nil {
		_, err := LoadConfig("")
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	}
	return config
}

// SaveConfig persists the configuration to a file, for operational snapshots.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setDefaults() {
	config.Server.Host = "0.0.0.0"
	config.Server.Port = 8055

	config.Database.Host = "localhost"
	config.Database.Port = 5432
	config.Database.User = "postgres"
	config.Database.Name = "tradsys"
	config.Database.SSLMode = "disable"

	config.WebSocket.Host = "0.0.0.0"
	config.WebSocket.Port = 9001
	config.WebSocket.Path = "/ws"
	config.WebSocket.MaxConnections = 10000

	config.Matcher.TickInterval = 100 * time.Millisecond
	config.Matcher.ChunkSize = 500
	config.Matcher.BackpressureThreshold = 0 // 0 == unbounded ("drop-none")

	config.Cache.ClaimsTTL = 5 * time.Minute
	config.Cache.SnapshotTTL = 10 * time.Second
	config.Cache.CleanupInterval = 10 * time.Minute

	config.Monitoring.PrometheusPort = 9090
	config.Monitoring.LogLevel = "info"

	config.Auth.TokenDuration = 60
	config.Auth.MinProtocolVersion = "1.0.0"

	config.Session.AuthTimeout = 5 * time.Second
	config.Session.IdleTimeout = 60 * time.Second
	config.Session.ProtocolErrorLimit = 10
	config.Session.InboundRatePerSec = 50
	config.Session.InboundBurst = 100
}

// InitLogger initializes the logger based on the configuration.
func InitLogger(cfg *Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch cfg.Monitoring.LogLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
