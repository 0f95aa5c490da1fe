package weft

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestWorldConfigDefaults(t *testing.T) {
	cfg := GetWorldConfig()
	assert.Equal(t, cfg, DefaultConfig())
}

func TestWorldConfigLoadFromEnv(t *testing.T) {
	t.Setenv("WEFT_INITIAL_CAPACITY", "256")
	t.Setenv("WEFT_STRICT_SCHEMA", "true")
	t.Setenv("WEFT_LOG_LEVEL", "debug")
	t.Setenv("WEFT_STATSD_ADDRESS", "localhost:8125")

	cfg := GetWorldConfig()
	assert.Equal(t, cfg.WeftInitialCapacity, 256)
	assert.Equal(t, cfg.WeftStrictSchema, true)
	assert.Equal(t, cfg.WeftLogLevel, "debug")
	assert.Equal(t, cfg.WeftStatsdAddress, "localhost:8125")
}

func TestWorldConfigRejectsBadCapacity(t *testing.T) {
	t.Setenv("WEFT_INITIAL_CAPACITY", "-5")
	cfg := GetWorldConfig()
	assert.Equal(t, cfg.WeftInitialCapacity, defaultInitialCapacity)
}
