package weft_test

import (
	"testing"

	"github.com/rotisserie/eris"
	"gotest.tools/v3/assert"

	"github.com/weftworks/weft"
	"github.com/weftworks/weft/types"
)

func newTestWorld(t *testing.T, opts ...weft.WorldOption) *weft.World {
	t.Helper()
	w, err := weft.NewWorld(opts...)
	assert.NilError(t, err)
	t.Cleanup(func() {
		_ = w.DestroyWorld()
	})
	return w
}

func numberTrait(name string, fields ...string) *weft.Trait {
	schema := weft.Schema{}
	for _, f := range fields {
		schema[f] = weft.FieldNumber
	}
	return weft.NewTrait(name, schema)
}

func TestSpawnAndGet(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	e, err := w.SpawnWith(weft.Init(position, weft.Record{"x": 3.0}))
	assert.NilError(t, err)
	assert.Assert(t, !e.IsNil())

	rec, err := w.Get(e, position)
	assert.NilError(t, err)
	assert.Equal(t, rec["x"], 3.0)
	assert.Equal(t, rec["y"], 0.0)
}

func TestGetReturnsSnapshot(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	e, err := w.Spawn(position)
	assert.NilError(t, err)

	rec, err := w.Get(e, position)
	assert.NilError(t, err)
	rec["x"] = 99.0

	again, err := w.Get(e, position)
	assert.NilError(t, err)
	assert.Equal(t, again["x"], 0.0)
}

func TestRemoveShrinksQueryAndNotifies(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	var entities []weft.Entity
	for i := 0; i < 3; i++ {
		e, err := w.Spawn(position)
		assert.NilError(t, err)
		entities = append(entities, e)
	}

	q := w.Query(weft.All(position))
	assert.Equal(t, q.Count(), 3)

	var removed []weft.Entity
	q.Subscribe(func(e weft.Entity, kind weft.EventKind) {
		if kind == weft.EventRemoved {
			removed = append(removed, e)
		}
	})

	assert.NilError(t, w.Remove(entities[1], position))

	assert.Equal(t, q.Count(), 2)
	assert.Equal(t, len(removed), 1)
	assert.Equal(t, removed[0], entities[1])
}

func TestDoubleAddIsNoOp(t *testing.T) {
	w := newTestWorld(t)
	tag := weft.NewTag("Marked")

	e, err := w.Spawn()
	assert.NilError(t, err)

	fires := 0
	w.Subscribe(func(weft.Entity, weft.EventKind) {
		fires++
	}, weft.All(tag))

	assert.NilError(t, w.Add(e, tag))
	assert.Equal(t, fires, 1)

	assert.NilError(t, w.Add(e, tag))
	assert.Equal(t, fires, 1)
	assert.Assert(t, w.Has(e, tag))
}

func TestSecondMaskWord(t *testing.T) {
	w := newTestWorld(t)

	traits := make([]*weft.Trait, 40)
	for i := range traits {
		traits[i] = weft.NewTag(tagName(i))
	}
	e, err := w.Spawn(traits...)
	assert.NilError(t, err)

	// trait #33 lands past the first 32-bit word
	q := w.Query(weft.All(traits[33]))
	got := q.Entities()
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0], e)

	assert.Equal(t, len(w.RegisteredTraits()), 41) // 40 plus the hidden tag
}

func tagName(i int) string {
	return "Tag" + string(rune('A'+i/10)) + string(rune('0'+i%10))
}

func TestStaleEntityRejected(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	e, err := w.Spawn(position)
	assert.NilError(t, err)
	assert.NilError(t, w.Destroy(e))

	_, err = w.Get(e, position)
	assert.Assert(t, eris.Is(err, weft.ErrStaleEntity))
	assert.Assert(t, !w.Has(e, position))

	// the row is recycled under a new generation, so the old value stays dead
	e2, err := w.Spawn(position)
	assert.NilError(t, err)
	assert.Equal(t, e2.Row(), e.Row())
	assert.Assert(t, e2 != e)
	_, err = w.Get(e, position)
	assert.Assert(t, eris.Is(err, weft.ErrStaleEntity))
}

func TestWrongWorldRejected(t *testing.T) {
	w1 := newTestWorld(t)
	w2 := newTestWorld(t)
	tag := weft.NewTag("Crossed")

	e, err := w1.Spawn(tag)
	assert.NilError(t, err)

	err = w2.Add(e, tag)
	assert.Assert(t, eris.Is(err, weft.ErrWrongWorld))
}

func TestWorldEntityIsHidden(t *testing.T) {
	w := newTestWorld(t)
	worldly := weft.NewTag("Worldly")

	assert.NilError(t, w.Add(w.Entity(), worldly))
	assert.Equal(t, w.LiveEntityCount(), 0)
	assert.Equal(t, len(w.Entities()), 0)
	assert.Equal(t, w.Query(weft.All(worldly)).Count(), 0)
	assert.Assert(t, w.Has(w.Entity(), worldly))
}

func TestDestroyWorldEntityFails(t *testing.T) {
	w := newTestWorld(t)
	err := w.Destroy(w.Entity())
	assert.Assert(t, err != nil)
}

func TestReset(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	_, err := w.Spawn(position)
	assert.NilError(t, err)
	assert.Equal(t, w.LiveEntityCount(), 1)

	assert.NilError(t, w.Reset())
	assert.Equal(t, w.LiveEntityCount(), 0)

	_, err = w.Spawn(position)
	assert.NilError(t, err)
	assert.Equal(t, w.LiveEntityCount(), 1)
}

func TestDestroyedWorldRejectsUse(t *testing.T) {
	w, err := weft.NewWorld()
	assert.NilError(t, err)
	tag := weft.NewTag("Doomed")
	e, err := w.Spawn(tag)
	assert.NilError(t, err)

	assert.NilError(t, w.DestroyWorld())

	_, err = w.Spawn(tag)
	assert.Assert(t, eris.Is(err, weft.ErrWorldDestroyed))
	err = w.Add(e, tag)
	assert.Assert(t, eris.Is(err, weft.ErrWorldDestroyed))
}

func TestInitialTraits(t *testing.T) {
	settings := numberTrait("Settings", "volume")
	w := newTestWorld(t, weft.WithInitialTraits(settings))

	rec, err := w.Get(w.Entity(), settings)
	assert.NilError(t, err)
	assert.Equal(t, rec["volume"], 0.0)

	assert.NilError(t, w.Reset())
	rec, err = w.Get(w.Entity(), settings)
	assert.NilError(t, err)
	assert.Equal(t, rec["volume"], 0.0)
}

func TestStrictSchemaRejectsUnknownFields(t *testing.T) {
	cfg := weft.DefaultConfig()
	cfg.WeftStrictSchema = true
	w := newTestWorld(t, weft.WithConfig(cfg))
	position := numberTrait("Position", "x", "y")

	_, err := w.SpawnWith(weft.Init(position, weft.Record{"z": 1.0}))
	assert.Assert(t, eris.Is(err, weft.ErrSchemaMismatch))
	assert.Equal(t, w.LiveEntityCount(), 0)
}

func TestLooseSchemaIgnoresUnknownFields(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	e, err := w.SpawnWith(weft.Init(position, weft.Record{"x": 2.0, "z": 1.0}))
	assert.NilError(t, err)
	rec, err := w.Get(e, position)
	assert.NilError(t, err)
	assert.Equal(t, rec["x"], 2.0)
	_, hasZ := rec["z"]
	assert.Assert(t, !hasZ)
}

func TestPackageLevelEntityOps(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	e, err := w.Spawn(position)
	assert.NilError(t, err)

	assert.Assert(t, weft.Alive(e))
	assert.Assert(t, weft.Has(e, position))
	assert.NilError(t, weft.Set(e, position, weft.Record{"x": 7.0}))
	rec, err := weft.Get(e, position)
	assert.NilError(t, err)
	assert.Equal(t, rec["x"], 7.0)

	assert.NilError(t, weft.Destroy(e))
	assert.Assert(t, !weft.Alive(e))
}

func TestRowGrowthPastInitialCapacity(t *testing.T) {
	cfg := weft.DefaultConfig()
	cfg.WeftInitialCapacity = 4
	w := newTestWorld(t, weft.WithConfig(cfg))
	position := numberTrait("Position", "x", "y")

	var last types.Entity
	for i := 0; i < 100; i++ {
		e, err := w.SpawnWith(weft.Init(position, weft.Record{"x": float64(i)}))
		assert.NilError(t, err)
		last = e
	}
	rec, err := w.Get(last, position)
	assert.NilError(t, err)
	assert.Equal(t, rec["x"], 99.0)
	assert.Equal(t, w.Query(weft.All(position)).Count(), 100)
}
