package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWatchmanConfig() WatchmanConfig {
	return WatchmanConfig{
		RateLimit:   1,
		Window:      3 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 1000,
	}
}

func TestWatchmanConfigValidate(t *testing.T) {
	require.NoError(t, validWatchmanConfig().Validate())

	bad := validWatchmanConfig()
	bad.RateLimit = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = validWatchmanConfig()
	bad.Window = 1500 * time.Millisecond
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = validWatchmanConfig()
	bad.Window = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = validWatchmanConfig()
	bad.BanDuration = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = validWatchmanConfig()
	bad.GCThreshold = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestFromEnvRequiresDSNAndQueue(t *testing.T) {
	t.Setenv(DSNEnvKey, "")
	t.Setenv(QueueNameEnvKey, "")
	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv(DSNEnvKey, "postgres://localhost/codemash")
	_, err = FromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv(DSNEnvKey, "postgres://localhost/codemash")
	t.Setenv(QueueNameEnvKey, "codemash-games")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, int32(10), cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.WaitTime)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, float64(RatingChangeCoeff), cfg.K)
	assert.Equal(t, 10*time.Second, cfg.Watchman.Window)
	assert.Equal(t, time.Hour, cfg.Watchman.BanDuration)
	assert.Equal(t, 10000, cfg.Watchman.GCThreshold)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(DSNEnvKey, "postgres://localhost/codemash")
	t.Setenv(QueueNameEnvKey, "codemash-games")
	t.Setenv(BatchSizeEnvKey, "5")
	t.Setenv(WaitTimeEnvKey, "20")
	t.Setenv(RateLimitEnvKey, "0.5")
	t.Setenv(WindowEnvKey, "3")
	t.Setenv(BanDurationEnvKey, "60")
	t.Setenv(GCThresholdEnvKey, "100")
	t.Setenv(KEnvKey, "32")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, int32(5), cfg.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.WaitTime)
	assert.Equal(t, 0.5, cfg.Watchman.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.Watchman.Window)
	assert.Equal(t, time.Minute, cfg.Watchman.BanDuration)
	assert.Equal(t, 100, cfg.Watchman.GCThreshold)
	assert.Equal(t, float64(32), cfg.K)
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv(DSNEnvKey, "postgres://localhost/codemash")
	t.Setenv(QueueNameEnvKey, "codemash-games")
	t.Setenv(BatchSizeEnvKey, "lots")
	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv(BatchSizeEnvKey, "11")
	_, err = FromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
