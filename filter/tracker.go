package filter

import (
	"sync/atomic"

	"github.com/weftworks/weft/trait"
)

var nextTrackerID atomic.Uint64

// TrackerKind selects which change layer a tracked parameter observes.
type TrackerKind int

const (
	// TrackerAdded matches entities whose trait bit is set now and was not
	// set in the tracker's snapshot.
	TrackerAdded TrackerKind = iota
	// TrackerRemoved matches entities whose trait bit is unset now and was
	// set in the tracker's snapshot.
	TrackerRemoved
	// TrackerChanged matches entities whose trait values mutated since the
	// tracker's snapshot.
	TrackerChanged
)

func (k TrackerKind) String() string {
	switch k {
	case TrackerAdded:
		return "added"
	case TrackerRemoved:
		return "removed"
	case TrackerChanged:
		return "changed"
	}
	return "unknown"
}

// TrackerMod is an independent change-tracking modifier. Each call to
// NewAdded/NewRemoved/NewChanged mints a modifier with its own snapshot
// state; queries built from it consume that state on read.
type TrackerMod struct {
	id   uint64
	kind TrackerKind
}

func NewAdded() TrackerMod {
	return TrackerMod{id: nextTrackerID.Add(1), kind: TrackerAdded}
}

func NewRemoved() TrackerMod {
	return TrackerMod{id: nextTrackerID.Add(1), kind: TrackerRemoved}
}

func NewChanged() TrackerMod {
	return TrackerMod{id: nextTrackerID.Add(1), kind: TrackerChanged}
}

// Of binds the modifier to a trait, yielding a query parameter.
func (m TrackerMod) Of(t *trait.Trait) Param {
	return Param{
		kind:        KindTracked,
		traits:      []*trait.Trait{t},
		trackerKind: m.kind,
		trackerID:   m.id,
	}
}

func (m TrackerMod) Kind() TrackerKind {
	return m.kind
}

func (m TrackerMod) ID() uint64 {
	return m.id
}
