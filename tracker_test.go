package weft

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestTrackerObservesFromSnapshot(t *testing.T) {
	masks := [][]uint32{{0b01}, {0b10}}
	tr := newTracker(1, masks)

	assert.Assert(t, maskHas(tr.snapshotRow(0), 0))
	assert.Assert(t, maskHas(tr.snapshotRow(1), 1))
	assert.Assert(t, !maskHas(tr.snapshotRow(2), 0))
	assert.Assert(t, !maskHas(tr.changedRow(0), 0))
}

func TestTrackerMarksGrowLazily(t *testing.T) {
	tr := newTracker(1, nil)

	tr.markDirty(5, 33)
	tr.markChanged(5, 2)

	assert.Assert(t, maskHas(tr.dirty[5], 33))
	assert.Assert(t, maskHas(tr.changedRow(5), 2))
	assert.Assert(t, !maskHas(tr.changedRow(4), 2))
}

func TestTrackerAdvance(t *testing.T) {
	tr := newTracker(1, [][]uint32{{0}})
	tr.markDirty(0, 3)
	tr.markChanged(0, 3)

	tr.advance([][]uint32{{0b1000}})

	assert.Assert(t, maskHas(tr.snapshotRow(0), 3))
	assert.Assert(t, !maskHas(tr.changedRow(0), 3))
	assert.Equal(t, len(tr.dirty), 0)
}

func TestTrackerClearRow(t *testing.T) {
	tr := newTracker(1, [][]uint32{{0b1}})
	tr.markDirty(0, 0)
	tr.markChanged(0, 0)

	tr.clearRow(0)

	assert.Assert(t, !maskHas(tr.snapshotRow(0), 0))
	assert.Assert(t, !maskHas(tr.changedRow(0), 0))
	assert.Assert(t, !maskHas(tr.dirty[0], 0))
}

func TestMaskHelpers(t *testing.T) {
	words := make([]uint32, 2)

	maskSet(words, 33)
	assert.Assert(t, maskHas(words, 33))
	assert.Assert(t, !maskHas(words, 1))
	assert.Assert(t, !maskHas(words, 65)) // past the slice reads as zero

	maskClear(words, 33)
	assert.Assert(t, !maskHas(words, 33))
	maskClear(words, 70) // out of range is a no-op

	maskSet(words, 0)
	maskSet(words, 40)
	cp := maskCopy(words)
	maskZero(words)
	assert.Assert(t, maskHas(cp, 0))
	assert.Assert(t, maskHas(cp, 40))
	assert.Assert(t, !maskHas(words, 0))
	assert.Equal(t, maskWord(words, 5), uint32(0))
}
