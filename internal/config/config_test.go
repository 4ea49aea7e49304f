package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "localhost",
			User:   "test",
			DBName: "test",
		},
		Intake: IntakeConfig{
			DebounceWindow:  3 * time.Second,
			FreshnessWindow: 11 * time.Hour,
		},
		Worker:  WorkerConfig{Concurrency: 1, ScratchDir: "scratch"},
		Fetcher: FetcherConfig{MaxSegments: 10},
		Storage: StorageConfig{
			Backend:      "local",
			LocalDir:     "artifacts",
			SigningKey:   "secret",
			SignedURLTTL: time.Hour,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	invalid := &Config{Server: ServerConfig{Port: ""}}
	assert.Error(t, invalid.Validate())

	noSigningKey := validConfig()
	noSigningKey.Storage.SigningKey = ""
	assert.Error(t, noSigningKey.Validate())

	gcs := validConfig()
	gcs.Storage.Backend = "gcs"
	assert.Error(t, gcs.Validate())
	gcs.Storage.Bucket = "artifacts"
	gcs.Storage.CredentialsFile = "/etc/sa.json"
	assert.NoError(t, gcs.Validate())

	sqlite := validConfig()
	sqlite.Database = DatabaseConfig{Driver: "sqlite", Path: "relay.db"}
	assert.NoError(t, sqlite.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	config := DatabaseConfig{
		Driver:   "mysql",
		Host:     "localhost",
		Port:     3306,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	}

	expected := "testuser:testpass@tcp(localhost:3306)/testdb?charset=utf8mb4&parseTime=True&loc=UTC"
	assert.Equal(t, expected, config.GetDSN())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "relay.db"}
	assert.Equal(t, "relay.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", sqlite.GetDSN())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_SIGNING_KEY", "from-env")
	t.Setenv("WORKER_CONCURRENCY", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Intake.DebounceWindow)
	assert.Equal(t, 11*time.Hour, cfg.Intake.FreshnessWindow)
	assert.Equal(t, 5000, cfg.Fetcher.MaxSegments)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "from-env", cfg.Storage.SigningKey)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
}
