package weft

import (
	"encoding/binary"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"

	"github.com/weftworks/weft/filter"
	"github.com/weftworks/weft/statsd"
	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
)

// ErrNoMatch is returned by First when the query matches no entity.
var ErrNoMatch = eris.New("no entity matches the query")

// trackedTerm is one compiled added/removed/changed predicate.
type trackedTerm struct {
	kind       filter.TrackerKind
	tracker    *tracker
	bit        int
	registered bool
}

// queryPlan is the compiled form of a parameter list against one world's
// current bitflag assignment. Plans are invalidated by trait registration and
// recompiled lazily.
type queryPlan struct {
	epoch       int
	staticFalse bool
	andMask     []uint32
	andValue    []uint32
	orGroups    [][]uint32
	tracked     []trackedTerm
}

// Query is a cached, hashed predicate over one world's entities. Untracked
// queries keep their result set maintained incrementally; tracked queries
// scan on read and consume their tracker state.
type Query struct {
	world   *World
	key     uint64
	params  []filter.Param
	plan    queryPlan
	results map[types.Entity]struct{}
	subs    []*membershipSub
	tracked bool
}

// Query returns the cached query for the parameter list, building and
// seeding it on first use. Semantically equal parameter lists share one
// query instance per world.
func (w *World) Query(params ...filter.Param) *Query {
	key := queryKey(params)
	if q, ok := w.queries[key]; ok {
		return q
	}

	q := &Query{
		world:   w,
		key:     key,
		params:  params,
		results: map[types.Entity]struct{}{},
	}
	for _, p := range params {
		if p.Kind() == filter.KindTracked {
			q.tracked = true
			if _, ok := w.trackers[p.TrackerID()]; !ok {
				w.trackers[p.TrackerID()] = newTracker(p.TrackerID(), w.masks)
			}
		}
	}
	q.compile()

	w.queries[key] = q
	w.queryOrder = append(w.queryOrder, q)
	for _, t := range queryTraits(params) {
		w.traitQueries[t.ID()] = append(w.traitQueries[t.ID()], q)
	}

	// seed membership without firing subscribers; there are none yet
	for row := 0; row < w.index.rowCount(); row++ {
		e := w.index.entityAt(uint32(row))
		if w.liveForQueries(e) && q.matchRow(uint32(row)) {
			q.results[e] = struct{}{}
		}
	}
	w.logger.Debug().Uint64("query_key", key).Int("params", len(params)).Msg("query built")
	return q
}

// Subscribe registers a membership callback on the query matching the
// parameter list. The returned function unsubscribes.
func (w *World) Subscribe(cb func(types.Entity, EventKind), params ...filter.Param) func() {
	return w.Query(params...).Subscribe(cb)
}

// queryKey canonicalizes a parameter list to a stable hash. Ordering within
// the list and within Any groups does not affect the key.
func queryKey(params []filter.Param) uint64 {
	encoded := make([][]byte, len(params))
	for i, p := range params {
		ids := make([]uint64, len(p.Traits()))
		for j, t := range p.Traits() {
			ids[j] = t.ID()
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

		buf := make([]byte, 0, 24+8*len(ids))
		buf = binary.BigEndian.AppendUint64(buf, uint64(p.Kind()))
		buf = binary.BigEndian.AppendUint64(buf, uint64(p.TrackerKind()))
		buf = binary.BigEndian.AppendUint64(buf, p.TrackerID())
		for _, id := range ids {
			buf = binary.BigEndian.AppendUint64(buf, id)
		}
		encoded[i] = buf
	}
	sort.Slice(encoded, func(a, b int) bool { return string(encoded[a]) < string(encoded[b]) })

	h := xxhash.New()
	for _, buf := range encoded {
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func (q *Query) ensurePlan() {
	if q.plan.epoch != q.world.traitEpoch {
		q.compile()
	}
}

// compile turns the parameter list into per-word AND/OR masks plus tracked
// terms, against the world's current bitflag assignment. Every query carries
// the hidden excluded-tag exclusion, which keeps the world entity out of all
// result sets.
func (q *Query) compile() {
	w := q.world
	plan := queryPlan{epoch: w.traitEpoch}
	words := w.wordCount
	if words == 0 {
		words = 1
	}
	plan.andMask = make([]uint32, words)
	plan.andValue = make([]uint32, words)

	requireSet := func(bit int) {
		if maskHas(plan.andMask, bit) && !maskHas(plan.andValue, bit) {
			plan.staticFalse = true
			return
		}
		maskSet(plan.andMask, bit)
		maskSet(plan.andValue, bit)
	}
	requireClear := func(bit int) {
		if maskHas(plan.andValue, bit) {
			plan.staticFalse = true
			return
		}
		maskSet(plan.andMask, bit)
	}

	requireClear(0) // hidden excluded tag

	for _, p := range q.params {
		switch p.Kind() {
		case filter.KindAll:
			reg, ok := w.traits.Lookup(p.Trait())
			if !ok {
				plan.staticFalse = true
				continue
			}
			requireSet(reg.Bit())
		case filter.KindNot:
			reg, ok := w.traits.Lookup(p.Trait())
			if !ok {
				continue
			}
			requireClear(reg.Bit())
		case filter.KindAny:
			group := make([]uint32, words)
			hit := false
			for _, t := range p.Traits() {
				if reg, ok := w.traits.Lookup(t); ok {
					maskSet(group, reg.Bit())
					hit = true
				}
			}
			if !hit {
				plan.staticFalse = true
				continue
			}
			plan.orGroups = append(plan.orGroups, group)
		case filter.KindTracked:
			term := trackedTerm{kind: p.TrackerKind(), tracker: w.trackers[p.TrackerID()]}
			if reg, ok := w.traits.Lookup(p.Trait()); ok {
				term.bit = reg.Bit()
				term.registered = true
			} else {
				plan.staticFalse = true
			}
			plan.tracked = append(plan.tracked, term)
		}
	}
	q.plan = plan
}

func (q *Query) matchRow(row uint32) bool {
	if q.plan.staticFalse {
		return false
	}
	words := q.world.masks[row]
	for i := range q.plan.andMask {
		if maskWord(words, i)&q.plan.andMask[i] != q.plan.andValue[i] {
			return false
		}
	}
	for _, group := range q.plan.orGroups {
		hit := false
		for i := range group {
			if maskWord(words, i)&group[i] != 0 {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, term := range q.plan.tracked {
		if !term.registered {
			return false
		}
		cur := maskHas(words, term.bit)
		switch term.kind {
		case filter.TrackerAdded:
			if !cur || maskHas(term.tracker.snapshotRow(row), term.bit) {
				return false
			}
		case filter.TrackerRemoved:
			if cur || !maskHas(term.tracker.snapshotRow(row), term.bit) {
				return false
			}
		case filter.TrackerChanged:
			if !maskHas(term.tracker.changedRow(row), term.bit) {
				return false
			}
		}
	}
	return true
}

// refresh re-evaluates the entity against the predicate and updates
// membership, enqueueing subscriber callbacks on transitions.
func (q *Query) refresh(e types.Entity) {
	q.ensurePlan()
	match := q.world.liveForQueries(e) && q.matchRow(e.Row())
	_, in := q.results[e]
	if match == in {
		return
	}
	kind := EventRemoved
	if match {
		q.results[e] = struct{}{}
		kind = EventAdded
	} else {
		delete(q.results, e)
	}
	for _, s := range q.subs {
		sub := s
		q.world.dispatch(func() { sub.cb(e, kind) })
	}
}

// Entities returns the matching live entities in ascending row order. For
// tracked queries this observation consumes the tracker state: the snapshot
// advances to the current masks, so an immediate second call with no
// intervening mutations returns nothing.
func (q *Query) Entities() []types.Entity {
	start := time.Now()
	q.ensurePlan()

	var out []types.Entity
	if q.tracked {
		w := q.world
		for row := 0; row < w.index.rowCount(); row++ {
			e := w.index.entityAt(uint32(row))
			if w.liveForQueries(e) && q.matchRow(uint32(row)) {
				out = append(out, e)
			}
		}
		seen := map[*tracker]struct{}{}
		for _, term := range q.plan.tracked {
			if _, ok := seen[term.tracker]; ok {
				continue
			}
			seen[term.tracker] = struct{}{}
			term.tracker.advance(w.masks)
		}
		// consumed trackers match nothing until the next mutation
		q.results = map[types.Entity]struct{}{}
	} else {
		out = make([]types.Entity, 0, len(q.results))
		for e := range q.results {
			out = append(out, e)
		}
		sortEntities(out)
	}
	statsd.EmitOpStat(start, "query")
	return out
}

// Each calls fn for every matching entity in ascending row order, stopping
// early when fn returns false.
func (q *Query) Each(fn func(types.Entity) bool) {
	for _, e := range q.Entities() {
		if !fn(e) {
			return
		}
	}
}

// Count returns the number of matching entities.
func (q *Query) Count() int {
	if q.tracked {
		return len(q.Entities())
	}
	q.ensurePlan()
	return len(q.results)
}

// First returns the matching entity with the lowest row, or ErrNoMatch.
func (q *Query) First() (types.Entity, error) {
	entities := q.Entities()
	if len(entities) == 0 {
		return types.Nil, eris.Wrap(ErrNoMatch, "")
	}
	return entities[0], nil
}

// MustFirst is First for callers that treat an empty result as a bug.
func (q *Query) MustFirst() types.Entity {
	e, err := q.First()
	if err != nil {
		panic(err)
	}
	return e
}

// Subscribe registers a callback fired with (entity, added|removed) whenever
// the entity's membership in this query changes. Callbacks run after the
// mutation that caused the transition settles. The returned function
// unsubscribes.
func (q *Query) Subscribe(cb func(types.Entity, EventKind)) func() {
	q.world.nextSubID++
	sub := &membershipSub{id: q.world.nextSubID, cb: cb}
	q.subs = append(q.subs, sub)
	return func() {
		for i, s := range q.subs {
			if s == sub {
				q.subs = append(q.subs[:i:i], q.subs[i+1:]...)
				return
			}
		}
	}
}

// Params returns the parameter list the query was built from.
func (q *Query) Params() []filter.Param {
	return q.params
}

// Key returns the query's canonical hash.
func (q *Query) Key() uint64 {
	return q.key
}

// queryTraits lists the distinct traits a parameter list references.
func queryTraits(params []filter.Param) []*trait.Trait {
	var out []*trait.Trait
	seen := map[uint64]struct{}{}
	for _, p := range params {
		for _, t := range p.Traits() {
			if _, ok := seen[t.ID()]; !ok {
				seen[t.ID()] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}
