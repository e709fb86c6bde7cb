package core

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/schoolhub/memorybank/pkg/intelligence"
	"github.com/schoolhub/memorybank/pkg/storage"
	"github.com/schoolhub/memorybank/pkg/storage/local"
	"github.com/schoolhub/memorybank/pkg/storage/postgres"
	"github.com/schoolhub/memorybank/pkg/storage/remote"
)

// Default configuration values.
const (
	DefaultMaxMemories      = 1000
	DefaultImportanceValue  = 0.5
	DefaultCleanupThreshold = 0.8
	DefaultCleanupInterval  = time.Hour
)

// Config contains the complete configuration for a memory bank instance.
//
// Each Bank owns its own Config and scheduler; there is no process-wide
// singleton. The bound Adapter is supplied here by the caller (dependency
// injection) and may later be replaced wholesale through
// Bank.UpdateConfig.
//
// Example:
//
//	store, _ := local.New(&local.Config{DBPath: "./memories.db"})
//	cfg := &core.Config{
//	    MaxMemories:       500,
//	    DefaultImportance: 0.5,
//	    EnableAutoCleanup: true,
//	    CleanupThreshold:  0.8,
//	    Adapter:           store,
//	}
//	bank, _ := core.NewBank(cfg)
type Config struct {
	// MaxMemories is the capacity ceiling enforced by cleanup
	// (default: 1000).
	MaxMemories int

	// DefaultImportance is assigned to new memories unless overridden
	// (default: 0.5).
	DefaultImportance float64

	// EnableAutoCleanup turns on the periodic capacity check.
	EnableAutoCleanup bool

	// CleanupThreshold is the fraction of capacity that triggers
	// proactive cleanup (default: 0.8).
	CleanupThreshold float64

	// CleanupInterval is the auto-cleanup check period (default: 1h).
	CleanupInterval time.Duration

	// DedupThreshold enables merge-on-add when > 0: a new memory whose
	// content similarity to a stored same-type memory reaches the
	// threshold is merged into it instead of inserted.
	DedupThreshold float64

	// EstimateImportance derives the importance of new memories from the
	// Estimator heuristics instead of DefaultImportance.
	EstimateImportance bool

	// Adapter is the bound storage backend (required).
	Adapter storage.Adapter

	// Estimator scores new-memory importance when EstimateImportance is
	// set. A nil estimator is replaced by a rule-based one.
	Estimator *intelligence.Estimator

	// Logger receives structured diagnostics. A nil logger disables
	// logging output.
	Logger *bolt.Logger
}

// Validate checks the configuration for construction.
func (c *Config) Validate() error {
	if c.Adapter == nil {
		return NewBankError("Validate", ErrInvalidConfig)
	}
	if c.MaxMemories < 0 {
		return NewBankError("Validate", ErrInvalidConfig)
	}
	if c.DefaultImportance < 0 || c.DefaultImportance > 1 {
		return NewBankError("Validate", ErrInvalidConfig)
	}
	if c.CleanupThreshold < 0 || c.CleanupThreshold > 1 {
		return NewBankError("Validate", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults fills zero-valued tunables with their defaults.
func (c *Config) applyDefaults() {
	if c.MaxMemories == 0 {
		c.MaxMemories = DefaultMaxMemories
	}
	if c.DefaultImportance == 0 {
		c.DefaultImportance = DefaultImportanceValue
	}
	if c.CleanupThreshold == 0 {
		c.CleanupThreshold = DefaultCleanupThreshold
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.Estimator == nil {
		c.Estimator = intelligence.NewEstimator(nil, "")
	}
	if c.Logger == nil {
		c.Logger = disabledLogger()
	}
}

// ConfigUpdate is a partial Config merged by Bank.UpdateConfig. Nil fields
// keep their current values.
type ConfigUpdate struct {
	MaxMemories        *int
	DefaultImportance  *float64
	EnableAutoCleanup  *bool
	CleanupThreshold   *float64
	CleanupInterval    *time.Duration
	DedupThreshold     *float64
	EstimateImportance *bool
	Adapter            storage.Adapter
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function searches for a .env file (up to five directory levels up),
// loads it, and builds a Config with the storage adapter selected by
// STORAGE_PROVIDER (local, remote, or postgres).
//
// Supported variables:
//   - STORAGE_PROVIDER (local, remote, postgres; default: local)
//   - LOCAL_DB_PATH, LOCAL_NAMESPACE
//   - REMOTE_BASE_URL, REMOTE_TOKEN, REMOTE_TIMEOUT_SECONDS
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_SSLMODE
//   - MEMORYBANK_MAX_MEMORIES, MEMORYBANK_DEFAULT_IMPORTANCE,
//     MEMORYBANK_AUTO_CLEANUP, MEMORYBANK_CLEANUP_THRESHOLD,
//     MEMORYBANK_DEDUP_THRESHOLD
//   - MEMORYBANK_ESTIMATE_IMPORTANCE, OPENAI_API_KEY, OPENAI_MODEL
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := findEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	adapter, err := openAdapterFromEnv()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MaxMemories:       getEnvInt("MEMORYBANK_MAX_MEMORIES", DefaultMaxMemories),
		DefaultImportance: getEnvFloat("MEMORYBANK_DEFAULT_IMPORTANCE", DefaultImportanceValue),
		EnableAutoCleanup: os.Getenv("MEMORYBANK_AUTO_CLEANUP") == "true",
		CleanupThreshold:  getEnvFloat("MEMORYBANK_CLEANUP_THRESHOLD", DefaultCleanupThreshold),
		DedupThreshold:    getEnvFloat("MEMORYBANK_DEDUP_THRESHOLD", 0),
		Adapter:           adapter,
	}

	if os.Getenv("MEMORYBANK_ESTIMATE_IMPORTANCE") == "true" {
		cfg.EstimateImportance = true
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.Estimator = intelligence.NewEstimator(
				openai.NewClient(apiKey),
				os.Getenv("OPENAI_MODEL"),
			)
		}
	}

	return cfg, nil
}

// openAdapterFromEnv builds the storage adapter selected by
// STORAGE_PROVIDER.
func openAdapterFromEnv() (storage.Adapter, error) {
	provider := getEnvOrDefault("STORAGE_PROVIDER", "local")

	switch provider {
	case "local":
		return local.New(&local.Config{
			DBPath:    getEnvOrDefault("LOCAL_DB_PATH", "./memorybank.db"),
			Namespace: os.Getenv("LOCAL_NAMESPACE"),
		})
	case "remote":
		timeout := time.Duration(getEnvInt("REMOTE_TIMEOUT_SECONDS", 10)) * time.Second
		return remote.New(&remote.Config{
			BaseURL: os.Getenv("REMOTE_BASE_URL"),
			Token:   os.Getenv("REMOTE_TOKEN"),
			Timeout: timeout,
		})
	case "postgres":
		return postgres.New(&postgres.Config{
			Host:      getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:      getEnvInt("POSTGRES_PORT", 5432),
			User:      getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password:  os.Getenv("POSTGRES_PASSWORD"),
			DBName:    getEnvOrDefault("POSTGRES_DATABASE", "memorybank"),
			TableName: getEnvOrDefault("POSTGRES_TABLE", "memories"),
			SSLMode:   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		})
	default:
		return nil, NewBankError("LoadConfigFromEnv", ErrInvalidConfig)
	}
}

// findEnvFile searches the working directory and up to five parents for a
// .env file.
func findEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
