package weft

import (
	"github.com/JeremyLoy/config"
	"github.com/rs/zerolog/log"
)

const defaultInitialCapacity = 64

// WorldConfig carries the tunables a world is created with. Field names map
// to environment variables (WeftInitialCapacity -> WEFT_INITIAL_CAPACITY).
type WorldConfig struct {
	// WeftInitialCapacity is the row capacity worlds pre-allocate for
	// entity storage. Columns grow geometrically past it.
	WeftInitialCapacity int `config:"WEFT_INITIAL_CAPACITY"`
	// WeftStrictSchema makes Set fail with a schema mismatch when the value
	// contains fields the trait schema does not declare.
	WeftStrictSchema bool `config:"WEFT_STRICT_SCHEMA"`
	// WeftLogLevel is a zerolog level string ("debug", "info", ...).
	WeftLogLevel string `config:"WEFT_LOG_LEVEL"`
	// WeftStatsdAddress points metric emission at a statsd agent. Empty
	// leaves the no-op client in place.
	WeftStatsdAddress string `config:"WEFT_STATSD_ADDRESS"`
}

func DefaultConfig() WorldConfig {
	return WorldConfig{
		WeftInitialCapacity: defaultInitialCapacity,
		WeftLogLevel:        "info",
	}
}

// GetWorldConfig returns the default config overlaid with whatever is set in
// the environment.
func GetWorldConfig() WorldConfig {
	cfg := DefaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to load config from env, using defaults")
		return DefaultConfig()
	}
	if cfg.WeftInitialCapacity <= 0 {
		cfg.WeftInitialCapacity = defaultInitialCapacity
	}
	return cfg
}
