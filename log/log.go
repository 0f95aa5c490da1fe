package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
)

// Loggable is the surface a world exposes for state logging.
type Loggable interface {
	RegisteredTraits() []*trait.Registration
	Entities() []types.Entity
}

func loadTraitIntoArrayLogger(reg *trait.Registration, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Uint64("trait_id", reg.Trait().ID())
	dictLogger = dictLogger.Str("trait_name", reg.Trait().Name())
	dictLogger = dictLogger.Int("bit", reg.Bit())
	dictLogger = dictLogger.Int("carriers", len(reg.Entities()))
	return arrayLogger.Dict(dictLogger)
}

func loadTraitsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	regs := target.RegisteredTraits()
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Bit() < regs[j].Bit()
	})
	zeroLoggerEvent.Int("total_traits", len(regs))
	arrayLogger := zerolog.Arr()
	for _, reg := range regs {
		arrayLogger = loadTraitIntoArrayLogger(reg, arrayLogger)
	}
	return zeroLoggerEvent.Array("traits", arrayLogger)
}

func loadEntitiesToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	entities := target.Entities()
	zeroLoggerEvent.Int("total_entities", len(entities))
	arrayLogger := zerolog.Arr()
	for _, e := range entities {
		arrayLogger = arrayLogger.Uint32(uint32(e))
	}
	return zeroLoggerEvent.Array("entities", arrayLogger)
}

// Traits logs every trait registration of the world.
func Traits(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadTraitsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Entity logs one entity with the traits it carries.
func Entity(logger *zerolog.Logger, level zerolog.Level, e types.Entity, carried []*trait.Registration) {
	zeroLoggerEvent := logger.WithLevel(level)
	arrayLogger := zerolog.Arr()
	for _, reg := range carried {
		arrayLogger = loadTraitIntoArrayLogger(reg, arrayLogger)
	}
	zeroLoggerEvent.Array("traits", arrayLogger)
	zeroLoggerEvent.Uint32("entity", uint32(e))
	zeroLoggerEvent.Uint32("row", e.Row())
	zeroLoggerEvent.Uint32("generation", e.Generation())
	zeroLoggerEvent.Send()
}

// World logs everything about the world (traits and entities).
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadTraitsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadEntitiesToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// CreateTraceLogger creates a trace logger. Using a single id you can use
// this logger to follow and log a data path.
func CreateTraceLogger(logger *zerolog.Logger, traceID string) *zerolog.Logger {
	newLogger := logger.With().Str("trace_id", traceID).Logger()
	return &newLogger
}
