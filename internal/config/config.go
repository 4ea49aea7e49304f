package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Remux    RemuxConfig    `mapstructure:"remux"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	PublicURL    string        `mapstructure:"public_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig holds database connection configuration.
// Driver is "mysql" or "sqlite"; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Path     string `mapstructure:"path"`
}

// IntakeConfig holds the debounce and dedup windows
type IntakeConfig struct {
	DebounceWindow  time.Duration `mapstructure:"debounce_window"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	MaxDedupScan    int           `mapstructure:"max_dedup_scan"`
}

// QueueConfig holds work-item queue configuration
type QueueConfig struct {
	LeaseDuration time.Duration `mapstructure:"lease_duration"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ScratchDir   string        `mapstructure:"scratch_dir"`
}

// FetcherConfig holds segment fetcher configuration
type FetcherConfig struct {
	MaxSegments    int           `mapstructure:"max_segments"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RemuxConfig holds external concat tool configuration
type RemuxConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

// StorageConfig holds object store configuration.
// Backend is "gcs" or "local".
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	SignedURLTTL    time.Duration `mapstructure:"signed_url_ttl"`
	Bucket          string        `mapstructure:"bucket"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	LocalDir        string        `mapstructure:"local_dir"`
	SigningKey      string        `mapstructure:"signing_key"`
}

// JanitorConfig holds scratch cleanup configuration
type JanitorConfig struct {
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	v.AutomaticEnv()
	bindEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.path", "stitch-relay.db")

	v.SetDefault("intake.debounce_window", "3s")
	v.SetDefault("intake.freshness_window", "11h")
	v.SetDefault("intake.max_dedup_scan", 100)

	v.SetDefault("queue.lease_duration", "30m")

	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.poll_interval", "2s")
	v.SetDefault("worker.scratch_dir", "scratch")

	v.SetDefault("fetcher.max_segments", 5000)
	v.SetDefault("fetcher.request_timeout", "60s")
	v.SetDefault("fetcher.user_agent", "stream-stitch-relay/1.0")

	v.SetDefault("remux.ffmpeg_path", "ffmpeg")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.signed_url_ttl", "12h")
	v.SetDefault("storage.local_dir", "artifacts")

	v.SetDefault("janitor.schedule", "0 */15 * * * *")
	v.SetDefault("janitor.max_age", "6h")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.public_url", "SERVER_PUBLIC_URL")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	v.BindEnv("log.level", "LOG_LEVEL")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.path", "DB_PATH")

	// Intake
	v.BindEnv("intake.debounce_window", "INTAKE_DEBOUNCE_WINDOW")
	v.BindEnv("intake.freshness_window", "INTAKE_FRESHNESS_WINDOW")
	v.BindEnv("intake.max_dedup_scan", "INTAKE_MAX_DEDUP_SCAN")

	v.BindEnv("queue.lease_duration", "QUEUE_LEASE_DURATION")

	// Worker
	v.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	v.BindEnv("worker.poll_interval", "WORKER_POLL_INTERVAL")
	v.BindEnv("worker.scratch_dir", "WORKER_SCRATCH_DIR")

	v.BindEnv("fetcher.max_segments", "FETCHER_MAX_SEGMENTS")
	v.BindEnv("fetcher.request_timeout", "FETCHER_REQUEST_TIMEOUT")
	v.BindEnv("fetcher.user_agent", "FETCHER_USER_AGENT")

	v.BindEnv("remux.ffmpeg_path", "FFMPEG_PATH")

	// Storage
	v.BindEnv("storage.backend", "STORAGE_BACKEND")
	v.BindEnv("storage.signed_url_ttl", "STORAGE_SIGNED_URL_TTL")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	v.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	v.BindEnv("storage.signing_key", "STORAGE_SIGNING_KEY")

	v.BindEnv("janitor.schedule", "JANITOR_SCHEDULE")
	v.BindEnv("janitor.max_age", "JANITOR_MAX_AGE")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Intake.DebounceWindow <= 0 || c.Intake.FreshnessWindow <= 0 {
		return fmt.Errorf("intake debounce and freshness windows must be greater than 0")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}
	if c.Worker.ScratchDir == "" {
		return fmt.Errorf("worker scratch dir is required")
	}

	if c.Fetcher.MaxSegments <= 0 {
		return fmt.Errorf("fetcher max segments must be greater than 0")
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "gcs":
		if c.Storage.Bucket == "" || c.Storage.CredentialsFile == "" {
			return fmt.Errorf("storage bucket and credentials file are required for gcs")
		}
	case "local":
		if c.Storage.LocalDir == "" || c.Storage.SigningKey == "" {
			return fmt.Errorf("storage local dir and signing key are required for local storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	if c.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("signed url ttl must be greater than 0")
	}

	return nil
}
