package weft

import (
	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
)

// EventKind tells a query subscriber whether the entity entered or left the
// query's result set.
type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// membershipSub observes a query's result set.
type membershipSub struct {
	id int
	cb func(types.Entity, EventKind)
}

// changeSub observes value mutations of one trait.
type changeSub struct {
	id int
	cb func(types.Entity)
}

// dispatch enqueues a subscriber callback. Callbacks never run inside the
// mutation that raised them; the public operation drains the queue once its
// own bookkeeping is complete, so subscribers observe settled state.
func (w *World) dispatch(fire func()) {
	w.pending = append(w.pending, fire)
}

// flush drains the pending callback queue. Mutations issued by a subscriber
// enqueue further callbacks onto the same queue and are drained in the same
// pass. A nested flush from such a mutation is a no-op; the outer flush owns
// the drain. Panicking subscribers do not starve the rest of the queue: every
// pending callback runs, and the first panic is re-raised afterwards.
func (w *World) flush() {
	if w.notifying {
		return
	}
	w.notifying = true
	var firstPanic any
	for i := 0; i < len(w.pending); i++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error().Interface("panic", r).Msg("subscriber panicked")
					if firstPanic == nil {
						firstPanic = r
					}
				}
			}()
			w.pending[i]()
		}()
	}
	w.pending = w.pending[:0]
	w.notifying = false
	if firstPanic != nil {
		panic(firstPanic)
	}
}

// OnChange registers a callback fired after any Set that actually changes a
// value of the trait on some entity. The returned function unsubscribes.
func (w *World) OnChange(t *trait.Trait, cb func(types.Entity)) func() {
	w.nextSubID++
	sub := &changeSub{id: w.nextSubID, cb: cb}
	key := t.ID()
	w.changeSubs[key] = append(w.changeSubs[key], sub)
	return func() {
		subs := w.changeSubs[key]
		for i, s := range subs {
			if s == sub {
				w.changeSubs[key] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}
