package types

import (
	"os"
	"strconv"
	"time"
)

// Environment variables recognized by the worker.
const (
	DSNEnvKey         = "CODEMASH_DSN"
	QueueNameEnvKey   = "CODEMASH_GAMES_QUEUE"
	BatchSizeEnvKey   = "CODEMASH_BATCH_SIZE"
	WaitTimeEnvKey    = "CODEMASH_WAIT_TIME_SECONDS"
	MetricsAddrEnvKey = "CODEMASH_METRICS_ADDR"
	RateLimitEnvKey   = "CODEMASH_RATE_LIMIT"
	WindowEnvKey      = "CODEMASH_WINDOW_SECONDS"
	BanDurationEnvKey = "CODEMASH_BAN_SECONDS"
	GCThresholdEnvKey = "CODEMASH_GC_THRESHOLD"
	KEnvKey           = "CODEMASH_RATING_K"
)

// SQS caps a single receive at 10 messages and long polling at 20 seconds.
const (
	MaxBatchSize = 10
	MaxWaitTime  = 20 * time.Second
)

// WatchmanConfig drives the abuse detector.
type WatchmanConfig struct {
	// RateLimit is the max sustained attempts per second before a ban.
	RateLimit float64
	// Window is the sliding interval rates are measured over. Whole seconds, >= 1s.
	Window time.Duration
	// BanDuration is how long a client stays banned after a violation.
	BanDuration time.Duration
	// GCThreshold is the number of recorded attempts between garbage
	// collections of unbanned client records.
	GCThreshold int
}

func (c WatchmanConfig) Validate() error {
	if c.RateLimit <= 0 {
		return Err(ErrInvalidConfig, nil, "rate limit must be positive, got %v", c.RateLimit)
	}
	if c.Window < time.Second || c.Window%time.Second != 0 {
		return Err(ErrInvalidConfig, nil, "window must be a whole number of seconds >= 1s, got %v", c.Window)
	}
	if c.BanDuration <= 0 {
		return Err(ErrInvalidConfig, nil, "ban duration must be positive, got %v", c.BanDuration)
	}
	if c.GCThreshold <= 0 {
		return Err(ErrInvalidConfig, nil, "gc threshold must be positive, got %d", c.GCThreshold)
	}
	return nil
}

// Config is everything the worker process needs. Required values have no
// defaults and fail fast at startup.
type Config struct {
	DSN         string
	QueueName   string
	BatchSize   int32
	WaitTime    time.Duration
	MetricsAddr string
	K           float64
	Watchman    WatchmanConfig
}

func (c Config) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return Err(ErrInvalidConfig, nil, "batch size must be in [1, %d], got %d", MaxBatchSize, c.BatchSize)
	}
	if c.WaitTime < 0 || c.WaitTime > MaxWaitTime {
		return Err(ErrInvalidConfig, nil, "wait time must be in [0s, %v], got %v", MaxWaitTime, c.WaitTime)
	}
	if c.K <= 0 {
		return Err(ErrInvalidConfig, nil, "rating K must be positive, got %v", c.K)
	}
	return c.Watchman.Validate()
}

// FromEnv builds the worker configuration from environment variables.
// The DSN and queue name are required; everything else has a default.
func FromEnv() (Config, error) {
	dsn := os.Getenv(DSNEnvKey)
	if dsn == "" {
		return Config{}, Err(ErrInvalidConfig, nil, "environment variable %s is not defined", DSNEnvKey)
	}
	queueName := os.Getenv(QueueNameEnvKey)
	if queueName == "" {
		return Config{}, Err(ErrInvalidConfig, nil, "environment variable %s is not defined", QueueNameEnvKey)
	}

	batchSize, err := intEnv(BatchSizeEnvKey, 10)
	if err != nil {
		return Config{}, err
	}
	waitSecs, err := intEnv(WaitTimeEnvKey, 10)
	if err != nil {
		return Config{}, err
	}
	rateLimit, err := floatEnv(RateLimitEnvKey, 1)
	if err != nil {
		return Config{}, err
	}
	windowSecs, err := intEnv(WindowEnvKey, 10)
	if err != nil {
		return Config{}, err
	}
	banSecs, err := intEnv(BanDurationEnvKey, 3600)
	if err != nil {
		return Config{}, err
	}
	gcThreshold, err := intEnv(GCThresholdEnvKey, 10000)
	if err != nil {
		return Config{}, err
	}
	k, err := floatEnv(KEnvKey, RatingChangeCoeff)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DSN:         dsn,
		QueueName:   queueName,
		BatchSize:   int32(batchSize),
		WaitTime:    time.Duration(waitSecs) * time.Second,
		MetricsAddr: getenv(MetricsAddrEnvKey, ":9100"),
		K:           k,
		Watchman: WatchmanConfig{
			RateLimit:   rateLimit,
			Window:      time.Duration(windowSecs) * time.Second,
			BanDuration: time.Duration(banSecs) * time.Second,
			GCThreshold: gcThreshold,
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, Err(ErrInvalidConfig, err, "%s is not a valid integer", key)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, Err(ErrInvalidConfig, err, "%s is not a valid number", key)
	}
	return f, nil
}
