package weft

import (
	"github.com/rs/zerolog"

	"github.com/weftworks/weft/log"
	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
)

// LogState logs the world's trait registrations and live entities at the
// given level.
func (w *World) LogState(level zerolog.Level) {
	log.World(&w.logger, w, level)
}

// LogEntity logs one entity with the traits it carries.
func (w *World) LogEntity(level zerolog.Level, e types.Entity) {
	log.Entity(&w.logger, level, e, w.carriedRegistrations(e))
}

func (w *World) carriedRegistrations(e types.Entity) []*trait.Registration {
	if w.validate(e) != nil {
		return nil
	}
	var out []*trait.Registration
	for _, reg := range w.traits.Registrations() {
		if maskHas(w.masks[e.Row()], reg.Bit()) {
			out = append(out, reg)
		}
	}
	return out
}

// DebugDump snapshots the world into a plain record: identity, registered
// traits, and every live entity with its trait values. Intended for tests
// and debugging, not for hot paths.
func (w *World) DebugDump() types.Record {
	traits := make([]types.Record, 0, len(w.traits.Registrations()))
	for _, reg := range w.traits.Registrations() {
		traits = append(traits, types.Record{
			"name":     reg.Trait().Name(),
			"bit":      reg.Bit(),
			"carriers": len(reg.Entities()),
		})
	}

	entities := make([]types.Record, 0, w.LiveEntityCount())
	for _, e := range w.Entities() {
		carried := types.Record{}
		for _, reg := range w.carriedRegistrations(e) {
			if st := reg.Store(); st != nil {
				carried[reg.Trait().Name()] = st.Get(e.Row())
			} else {
				carried[reg.Trait().Name()] = types.Record{}
			}
		}
		entities = append(entities, types.Record{
			"entity":     uint32(e),
			"row":        e.Row(),
			"generation": e.Generation(),
			"traits":     carried,
		})
	}

	return types.Record{
		"world_id":    w.id,
		"instance_id": w.instanceID,
		"traits":      traits,
		"entities":    entities,
	}
}
