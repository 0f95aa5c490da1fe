package types_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/weftworks/weft/types"
)

func TestPackEntityRoundTrip(t *testing.T) {
	e := types.PackEntity(7, 3, 123456)
	assert.Equal(t, e.Generation(), uint32(7))
	assert.Equal(t, e.WorldID(), uint32(3))
	assert.Equal(t, e.Row(), uint32(123456))
}

func TestPackEntityExtremes(t *testing.T) {
	e := types.PackEntity(types.GenerationMask, types.WorldMask, types.MaxRow)
	assert.Equal(t, e.Generation(), uint32(types.GenerationMask))
	assert.Equal(t, e.WorldID(), uint32(types.WorldMask))
	assert.Equal(t, e.Row(), uint32(types.MaxRow))
}

func TestNilEntity(t *testing.T) {
	assert.Assert(t, types.Nil.IsNil())
	assert.Assert(t, !types.PackEntity(1, 0, 0).IsNil())
	assert.Equal(t, types.Nil.Row(), uint32(0))
}

func TestEntityEquality(t *testing.T) {
	a := types.PackEntity(1, 0, 5)
	b := types.PackEntity(2, 0, 5)
	assert.Assert(t, a != b)
	assert.Equal(t, a.Row(), b.Row())
}
