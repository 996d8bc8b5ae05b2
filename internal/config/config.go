package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string
	AdminToken  string

	WorkerPoolSize int
	LaneCapacity   int
	LaneQuotas     [4]int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	DrainTimeout    time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers     []string
	KafkaTopicPrefix string
}

const (
	defaultRunAddress       = ":8080"
	defaultWorkerPoolSize   = 4
	defaultLaneCapacity     = 128
	defaultLaneQuotas       = "8,4,2,1"
	defaultRetryMaxAttempts = 3
	defaultRetryBaseDelay   = 100 * time.Millisecond
	defaultRetryMaxDelay    = 5 * time.Second
	defaultDrainTimeout     = 15 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultKafkaTopicPrefix = "orderflow"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:       getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:      getString(lookup, "DATABASE_URI", ""),
		AdminToken:       getString(lookup, "ADMIN_TOKEN", ""),
		WorkerPoolSize:   getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		LaneCapacity:     getInt(lookup, "LANE_CAPACITY", defaultLaneCapacity),
		RetryMaxAttempts: getInt(lookup, "RETRY_MAX_ATTEMPTS", defaultRetryMaxAttempts),
		RetryBaseDelay:   getDuration(lookup, "RETRY_BASE_DELAY", defaultRetryBaseDelay),
		RetryMaxDelay:    getDuration(lookup, "RETRY_MAX_DELAY", defaultRetryMaxDelay),
		DrainTimeout:     getDuration(lookup, "DRAIN_TIMEOUT", defaultDrainTimeout),
		ShutdownTimeout:  getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		KafkaTopicPrefix: getString(lookup, "KAFKA_TOPIC_PREFIX", defaultKafkaTopicPrefix),
	}

	fs := flag.NewFlagSet("orderflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		quotasStr       = getString(lookup, "LANE_QUOTAS", defaultLaneQuotas)
		brokersStr      = getString(lookup, "KAFKA_BROKERS", "")
		baseDelayStr    = cfg.RetryBaseDelay.String()
		maxDelayStr     = cfg.RetryMaxDelay.String()
		drainTimeoutStr = cfg.DrainTimeout.String()
		shutdownStr     = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN (empty selects in-memory storage)")
	fs.StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "Bearer token for admin endpoints")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent event workers")
	fs.IntVar(&cfg.LaneCapacity, "lane-capacity", cfg.LaneCapacity, "Maximum pending events per priority lane")
	fs.StringVar(&quotasStr, "lane-quotas", quotasStr, "Consecutive-service quotas per lane, highest priority first")
	fs.IntVar(&cfg.RetryMaxAttempts, "retry-max", cfg.RetryMaxAttempts, "Maximum retries before an event is given up")
	fs.StringVar(&baseDelayStr, "retry-base-delay", baseDelayStr, "Initial retry backoff delay")
	fs.StringVar(&maxDelayStr, "retry-max-delay", maxDelayStr, "Upper bound for retry backoff delay")
	fs.StringVar(&drainTimeoutStr, "drain-timeout", drainTimeoutStr, "How long shutdown waits for in-flight events")
	fs.StringVar(&shutdownStr, "shutdown-timeout", shutdownStr, "Graceful shutdown timeout")
	fs.StringVar(&brokersStr, "kafka-brokers", brokersStr, "Comma-separated Kafka brokers (empty disables Kafka)")
	fs.StringVar(&cfg.KafkaTopicPrefix, "kafka-topic-prefix", cfg.KafkaTopicPrefix, "Prefix for per-lane Kafka topics")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.RetryBaseDelay, err = time.ParseDuration(baseDelayStr); err != nil {
		return nil, fmt.Errorf("invalid retry base delay: %w", err)
	}

	if cfg.RetryMaxDelay, err = time.ParseDuration(maxDelayStr); err != nil {
		return nil, fmt.Errorf("invalid retry max delay: %w", err)
	}

	if cfg.DrainTimeout, err = time.ParseDuration(drainTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid drain timeout: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.LaneQuotas, err = parseQuotas(quotasStr); err != nil {
		return nil, err
	}

	if brokersStr != "" {
		for _, b := range strings.Split(brokersStr, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if tokenFile, ok := lookup("ADMIN_TOKEN_FILE"); ok && tokenFile != "" {
		content, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read admin token file: %w", err)
		}
		cfg.AdminToken = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.LaneCapacity <= 0 {
		cfg.LaneCapacity = defaultLaneCapacity
	}

	if cfg.RetryMaxAttempts < 0 {
		cfg.RetryMaxAttempts = defaultRetryMaxAttempts
	}

	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}

	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = defaultRetryMaxDelay
	}

	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	return cfg, nil
}

func parseQuotas(s string) ([4]int, error) {
	var quotas [4]int
	parts := strings.Split(s, ",")
	if len(parts) != len(quotas) {
		return quotas, fmt.Errorf("lane quotas must list %d values, got %q", len(quotas), s)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return quotas, fmt.Errorf("invalid lane quota %q: %w", part, err)
		}
		if n <= 0 {
			return quotas, fmt.Errorf("lane quota must be positive, got %d", n)
		}
		quotas[i] = n
	}
	return quotas, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
