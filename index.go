package weft

import (
	"github.com/rotisserie/eris"

	"github.com/weftworks/weft/types"
)

// entityIndex allocates and recycles the rows of one world. Freed rows go
// onto a free-list and come back with a bumped generation, so a recycled row
// does not collide with a previously issued entity value until its 8-bit
// generation wraps after 256 reuses.
type entityIndex struct {
	worldID     uint32
	generations []uint32
	alive       []bool
	freeList    []uint32
	liveCount   int
}

func newEntityIndex(worldID uint32) *entityIndex {
	return &entityIndex{worldID: worldID}
}

// allocate pops a free row if any, else appends a new one, and returns the
// packed entity at the row's current generation.
func (idx *entityIndex) allocate() (types.Entity, error) {
	var row uint32
	if n := len(idx.freeList); n > 0 {
		row = idx.freeList[n-1]
		idx.freeList = idx.freeList[:n-1]
	} else {
		if len(idx.generations) > types.MaxRow {
			return types.Nil, eris.Wrap(ErrRowsExhausted, "")
		}
		row = uint32(len(idx.generations))
		idx.generations = append(idx.generations, 0)
		idx.alive = append(idx.alive, false)
	}
	idx.alive[row] = true
	idx.liveCount++
	return types.PackEntity(idx.generations[row], idx.worldID, row), nil
}

// free marks the row dead and bumps its generation. The caller has already
// validated the entity.
func (idx *entityIndex) free(e types.Entity) {
	row := e.Row()
	idx.alive[row] = false
	idx.generations[row] = (idx.generations[row] + 1) & types.GenerationMask
	idx.freeList = append(idx.freeList, row)
	idx.liveCount--
}

func (idx *entityIndex) isAlive(e types.Entity) bool {
	row := e.Row()
	if row >= uint32(len(idx.generations)) {
		return false
	}
	return idx.alive[row] && idx.generations[row] == e.Generation()
}

// entityAt re-packs the live entity at row. Callers check liveness first.
func (idx *entityIndex) entityAt(row uint32) types.Entity {
	return types.PackEntity(idx.generations[row], idx.worldID, row)
}

// aliveEntities returns a snapshot of live entities in ascending row order.
func (idx *entityIndex) aliveEntities() []types.Entity {
	out := make([]types.Entity, 0, idx.liveCount)
	for row := range idx.generations {
		if idx.alive[row] {
			out = append(out, idx.entityAt(uint32(row)))
		}
	}
	return out
}

// rowCount is the number of rows ever allocated, live or not.
func (idx *entityIndex) rowCount() int {
	return len(idx.generations)
}
