package weft_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/weftworks/weft"
)

func TestOnChangeFiresOncePerActualChange(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	e, err := w.Spawn(position)
	assert.NilError(t, err)

	fires := 0
	w.OnChange(position, func(changed weft.Entity) {
		assert.Equal(t, changed, e)
		fires++
	})

	assert.NilError(t, w.Set(e, position, weft.Record{"x": 1.0}))
	assert.Equal(t, fires, 1)

	assert.NilError(t, w.Set(e, position, weft.Record{"x": 1.0}))
	assert.Equal(t, fires, 1)

	assert.NilError(t, w.Set(e, position, weft.Record{"x": 2.0}))
	assert.Equal(t, fires, 2)
}

func TestUnsubscribeStopsCallbacks(t *testing.T) {
	w := newTestWorld(t)
	tag := weft.NewTag("Watched")

	fires := 0
	unsubscribe := w.Subscribe(func(weft.Entity, weft.EventKind) {
		fires++
	}, weft.All(tag))

	_, err := w.Spawn(tag)
	assert.NilError(t, err)
	assert.Equal(t, fires, 1)

	unsubscribe()
	_, err = w.Spawn(tag)
	assert.NilError(t, err)
	assert.Equal(t, fires, 1)
}

func TestSubscriberObservesSettledState(t *testing.T) {
	w := newTestWorld(t)
	position := numberTrait("Position", "x", "y")

	var seen weft.Record
	w.Subscribe(func(e weft.Entity, kind weft.EventKind) {
		rec, err := w.Get(e, position)
		assert.NilError(t, err)
		seen = rec
	}, weft.All(position))

	_, err := w.SpawnWith(weft.Init(position, weft.Record{"x": 5.0}))
	assert.NilError(t, err)
	assert.Equal(t, seen["x"], 5.0)
}

func TestSubscriberMayMutate(t *testing.T) {
	w := newTestWorld(t)
	spawned := weft.NewTag("Spawned")
	blessed := weft.NewTag("Blessed")

	w.Subscribe(func(e weft.Entity, kind weft.EventKind) {
		if kind == weft.EventAdded {
			assert.NilError(t, w.Add(e, blessed))
		}
	}, weft.All(spawned))

	e, err := w.Spawn(spawned)
	assert.NilError(t, err)
	assert.Assert(t, w.Has(e, blessed))
}

func TestPanickingSubscriberDoesNotStarveOthers(t *testing.T) {
	w := newTestWorld(t)
	tag := weft.NewTag("Volatile")

	otherRan := false
	stopPanicking := w.Subscribe(func(weft.Entity, weft.EventKind) {
		panic("first subscriber")
	}, weft.All(tag))
	w.Subscribe(func(weft.Entity, weft.EventKind) {
		otherRan = true
	}, weft.All(tag))

	defer func() {
		// keep the world's teardown from re-raising the same panic
		defer stopPanicking()
		r := recover()
		assert.Equal(t, r, "first subscriber")
		assert.Assert(t, otherRan)
		assert.Equal(t, w.LiveEntityCount(), 1)
	}()
	_, _ = w.Spawn(tag)
}
