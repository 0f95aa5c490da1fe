// Package statsd wraps the statsd methods the rest of the module emits
// through. It hides the datadog dependency so a future migration to another
// statsd client only needs to edit this single file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitOpStat times one world operation (spawn, destroy, query, ...).
func EmitOpStat(start time.Time, op string) {
	duration := time.Since(start)
	err := Client().Timing("op", duration, []string{op}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit op stat: %v", err)
	}
}

// EmitEntityCount gauges the number of live entities in a world.
func EmitEntityCount(worldID uint32, count int) {
	err := Client().Gauge("entities", float64(count), []string{"world"}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit entity count for world %d: %v", worldID, err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("weft"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	client = newClient
	return nil
}
