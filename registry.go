package weft

import (
	"github.com/rotisserie/eris"

	"github.com/weftworks/weft/types"
)

// worldIndex numbers live worlds in this process. Destroyed worlds return
// their id to a free-list and the next world created reuses it; entity
// values minted by the destroyed world then resolve to that new world.
var worldIndex = struct {
	worlds []*World
	free   []uint32
}{}

func acquireWorldID(w *World) (uint32, error) {
	if n := len(worldIndex.free); n > 0 {
		id := worldIndex.free[n-1]
		worldIndex.free = worldIndex.free[:n-1]
		worldIndex.worlds[id] = w
		return id, nil
	}
	if len(worldIndex.worlds) >= types.MaxWorlds {
		return 0, eris.Wrap(ErrWorldsExhausted, "")
	}
	id := uint32(len(worldIndex.worlds))
	worldIndex.worlds = append(worldIndex.worlds, w)
	return id, nil
}

func releaseWorldID(id uint32) {
	worldIndex.worlds[id] = nil
	worldIndex.free = append(worldIndex.free, id)
}

// worldOf resolves the live world holding the entity's world id, or nil if
// no live world holds that id.
func worldOf(e types.Entity) *World {
	id := e.WorldID()
	if id >= uint32(len(worldIndex.worlds)) {
		return nil
	}
	return worldIndex.worlds[id]
}
