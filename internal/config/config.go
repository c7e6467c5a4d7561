package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration shared by every entry point.
// Defaults come from the constants in this package, then an optional YAML
// file, then environment variables.
type Config struct {
	Prod       bool   `yaml:"prod"`
	ListenAddr string `yaml:"listen_addr"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		RecordDB int    `yaml:"record_db"`
		QueueDB  int    `yaml:"queue_db"`
	} `yaml:"redis"`

	Store struct {
		Backend             string `yaml:"backend"`
		FallbackToMemory    bool   `yaml:"fallback_to_memory"`
		FirestoreCollection string `yaml:"firestore_collection"`
	} `yaml:"store"`

	GCP struct {
		ProjectID string `yaml:"project_id"`
	} `yaml:"gcp"`

	Documents struct {
		FetchBackend      string        `yaml:"fetch_backend"`
		LocalRoot         string        `yaml:"local_root"`
		MinBytes          int           `yaml:"min_bytes"`
		PageTimeout       time.Duration `yaml:"page_timeout"`
		ValidateStructure bool          `yaml:"validate_structure"`
	} `yaml:"documents"`

	Queue struct {
		Prefix            string        `yaml:"prefix"`
		VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
		MaxDeliveries     int           `yaml:"max_deliveries"`
	} `yaml:"queue"`

	Workers struct {
		Min               int64         `yaml:"min"`
		Max               int64         `yaml:"max"`
		ItemsPerNewWorker int64         `yaml:"items_per_new_worker"`
		IdleTimeout       time.Duration `yaml:"idle_timeout"`
		ClaimWait         time.Duration `yaml:"claim_wait"`
		ScaleInterval     time.Duration `yaml:"scale_interval"`
		ReapInterval      time.Duration `yaml:"reap_interval"`
		ItemTimeout       time.Duration `yaml:"item_timeout"`
	} `yaml:"workers"`

	Trigger struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"trigger"`
}

// Default returns the configuration built from the package constants only.
func Default() *Config {
	cfg := &Config{
		Prod:       IS_PROD,
		ListenAddr: ServerListenAddr,
	}
	cfg.Redis.Addr = RedisAddr
	cfg.Redis.RecordDB = RedisRecordStore
	cfg.Redis.QueueDB = RedisQueueStore

	cfg.Store.Backend = StoreBackendRedis
	cfg.Store.FallbackToMemory = FALLBACK_REDIS_TO_INTERNALSTORE
	cfg.Store.FirestoreCollection = FirestoreCollection

	cfg.Documents.FetchBackend = FetchBackendGCS
	cfg.Documents.LocalRoot = "./temporary_data"
	cfg.Documents.MinBytes = MinDocumentBytes
	cfg.Documents.PageTimeout = PageDecodeTimeout
	cfg.Documents.ValidateStructure = true

	cfg.Queue.Prefix = QueuePrefix
	cfg.Queue.VisibilityTimeout = VisibilityTimeout
	cfg.Queue.MaxDeliveries = MaxDeliveries

	cfg.Workers.Min = MinWorkerCount
	cfg.Workers.Max = MaxWorkerCount
	cfg.Workers.ItemsPerNewWorker = RequestsPerNewWorkerCount
	cfg.Workers.IdleTimeout = IdleWorkerTimeout
	cfg.Workers.ClaimWait = ClaimWait
	cfg.Workers.ScaleInterval = ScaleInterval
	cfg.Workers.ReapInterval = ReapInterval
	cfg.Workers.ItemTimeout = ItemProcessTimeout

	cfg.Trigger.Concurrency = EnqueueConcurrency
	return cfg
}

// Load builds the configuration. An empty path falls back to CONFIG_FILE,
// and a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Prod = getEnvAsBool("PROD", cfg.Prod)
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.FallbackToMemory = getEnvAsBool("STORE_FALLBACK_TO_MEMORY", cfg.Store.FallbackToMemory)
	cfg.Store.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", cfg.Store.FirestoreCollection)

	cfg.GCP.ProjectID = getEnv("GCP_PROJECT", cfg.GCP.ProjectID)

	cfg.Documents.FetchBackend = getEnv("FETCH_BACKEND", cfg.Documents.FetchBackend)
	cfg.Documents.LocalRoot = getEnv("LOCAL_DOCUMENT_ROOT", cfg.Documents.LocalRoot)
	cfg.Documents.ValidateStructure = getEnvAsBool("VALIDATE_PDF_STRUCTURE", cfg.Documents.ValidateStructure)

	cfg.Queue.VisibilityTimeout = getEnvAsDuration("QUEUE_VISIBILITY_TIMEOUT", cfg.Queue.VisibilityTimeout)
	cfg.Queue.MaxDeliveries = getEnvAsInt("QUEUE_MAX_DELIVERIES", cfg.Queue.MaxDeliveries)

	cfg.Workers.Min = int64(getEnvAsInt("WORKERS_MIN", int(cfg.Workers.Min)))
	cfg.Workers.Max = int64(getEnvAsInt("WORKERS_MAX", int(cfg.Workers.Max)))
}

// Validate rejects configurations no entry point can run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendRedis, StoreBackendMemory:
	case StoreBackendFirestore:
		if c.GCP.ProjectID == "" {
			return errors.New("GCP_PROJECT is required for the firestore store backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Documents.FetchBackend {
	case FetchBackendGCS, FetchBackendFile:
	default:
		return fmt.Errorf("unknown fetch backend %q", c.Documents.FetchBackend)
	}
	if c.Workers.Min < 1 || c.Workers.Max < c.Workers.Min {
		return fmt.Errorf("invalid worker bounds min=%d max=%d", c.Workers.Min, c.Workers.Max)
	}
	if c.Queue.MaxDeliveries < 1 {
		return errors.New("queue max deliveries must be at least 1")
	}
	if c.Queue.VisibilityTimeout <= 0 {
		return errors.New("queue visibility timeout must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
