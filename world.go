package weft

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/weftworks/weft/statsd"
	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
)

// excludedTag is carried by every world entity so queries skip it by
// default. It is registered first in every world and therefore always owns
// bit 0.
var excludedTag = trait.NewTag("weft.excluded")

// World is an isolated universe of entities, traits, masks, and queries.
// Worlds are numbered by a process-wide index with a free-list; the id is
// embedded in every entity the world produces.
//
// A world is single-threaded: all operations complete synchronously and
// concurrent use of one world from multiple goroutines is unsupported.
// Distinct worlds are independent.
type World struct {
	id         uint32
	instanceID string
	logger     zerolog.Logger
	cfg        WorldConfig

	index  *entityIndex
	traits *trait.Manager

	// masks[row] holds the presence bitmask of the entity at row. dying
	// marks rows mid-destroy so query refresh treats them as dead while
	// their traits unwind.
	masks     [][]uint32
	dying     []bool
	wordCount int

	worldEntity   types.Entity
	initialTraits []*trait.Trait

	queries      map[uint64]*Query
	queryOrder   []*Query
	traitQueries map[uint64][]*Query
	traitEpoch   int

	trackers map[uint64]*tracker

	changeSubs map[uint64][]*changeSub
	nextSubID  int
	notifying  bool
	pending    []func()

	// targetIndex maps a target entity to the relation traits registered in
	// this world that are parameterized by it. Keys are entity values, not
	// references, so relations never extend entity lifetimes.
	targetIndex map[types.Entity][]*trait.Trait

	destroyed bool
}

// WorldOption augments how a world is created.
type WorldOption func(*World)

// WithConfig overrides the environment-derived config.
func WithConfig(cfg WorldConfig) WorldOption {
	return func(w *World) {
		w.cfg = cfg
	}
}

// WithLogger replaces the base logger the world derives its own from.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

// WithInitialTraits attaches world-level traits to the world entity at
// creation, and again after every Reset.
func WithInitialTraits(traits ...*trait.Trait) WorldOption {
	return func(w *World) {
		w.initialTraits = append(w.initialTraits, traits...)
	}
}

// NewWorld returns a ready-to-use world.
func NewWorld(opts ...WorldOption) (*World, error) {
	w := &World{
		cfg:    GetWorldConfig(),
		logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}

	id, err := acquireWorldID(w)
	if err != nil {
		return nil, err
	}
	w.id = id
	w.instanceID = uuid.New().String()

	level, err := zerolog.ParseLevel(w.cfg.WeftLogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	w.logger = w.logger.Level(level).With().
		Uint32("world_id", w.id).
		Str("instance_id", w.instanceID).
		Logger()

	if w.cfg.WeftStatsdAddress != "" {
		if err := statsd.Init(w.cfg.WeftStatsdAddress, nil); err != nil {
			w.logger.Warn().Err(err).Msg("failed to init statsd client")
		}
	}

	w.initState()
	w.logger.Debug().Int("initial_traits", len(w.initialTraits)).Msg("world created")
	return w, nil
}

// initState builds the empty universe: fresh index, registries, caches, and
// the distinguished world entity carrying the hidden excluded tag plus the
// world's initial traits.
func (w *World) initState() {
	w.index = newEntityIndex(w.id)
	w.traits = trait.NewManager(w.cfg.WeftInitialCapacity)
	w.masks = nil
	w.dying = nil
	w.wordCount = 0
	w.queries = map[uint64]*Query{}
	w.queryOrder = nil
	w.traitQueries = map[uint64][]*Query{}
	w.traitEpoch = 0
	w.trackers = map[uint64]*tracker{}
	w.changeSubs = map[uint64][]*changeSub{}
	w.pending = nil
	w.targetIndex = map[types.Entity][]*trait.Trait{}

	// row 0
	e, err := w.index.allocate()
	if err != nil {
		panic(err)
	}
	w.ensureRow(e.Row())
	w.worldEntity = e
	if err := w.addTrait(e, excludedTag, nil); err != nil {
		panic(err)
	}
	for _, t := range w.initialTraits {
		if err := w.addTrait(e, t, nil); err != nil {
			w.logger.Error().Err(err).Str("trait", t.Name()).Msg("failed to attach initial trait")
		}
	}
	w.flush()
}

// ID returns the world's process-wide id.
func (w *World) ID() uint32 {
	return w.id
}

// Entity returns the distinguished world entity. World-level traits live on
// it; queries exclude it by default.
func (w *World) Entity() types.Entity {
	return w.worldEntity
}

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// Entities returns a snapshot of live entities in ascending row order,
// excluding the world entity.
func (w *World) Entities() []types.Entity {
	all := w.index.aliveEntities()
	out := make([]types.Entity, 0, len(all))
	for _, e := range all {
		if e != w.worldEntity {
			out = append(out, e)
		}
	}
	return out
}

// LiveEntityCount returns the number of live entities, excluding the world
// entity.
func (w *World) LiveEntityCount() int {
	return w.index.liveCount - 1
}

// RegisteredTraits returns every trait registration in bitflag order.
func (w *World) RegisteredTraits() []*trait.Registration {
	return w.traits.Registrations()
}

// TraitInit pairs a trait with the initial record it is spawned with.
type TraitInit struct {
	Trait *trait.Trait
	Init  types.Record
}

// Init builds a TraitInit for SpawnWith.
func Init(t *trait.Trait, init types.Record) TraitInit {
	return TraitInit{Trait: t, Init: init}
}

// Spawn allocates an entity carrying the given traits at their defaults.
func (w *World) Spawn(traits ...*trait.Trait) (types.Entity, error) {
	inits := make([]TraitInit, len(traits))
	for i, t := range traits {
		inits[i] = TraitInit{Trait: t}
	}
	return w.SpawnWith(inits...)
}

// SpawnWith allocates an entity carrying the given traits, each initialized
// with its default record overlaid by the supplied values.
func (w *World) SpawnWith(inits ...TraitInit) (types.Entity, error) {
	start := time.Now()
	if w.destroyed {
		return types.Nil, newError(CodeWrongWorld, ErrWorldDestroyed, "")
	}
	e, err := w.index.allocate()
	if err != nil {
		return types.Nil, err
	}
	w.ensureRow(e.Row())
	for _, ti := range inits {
		if err := w.addTrait(e, ti.Trait, ti.Init); err != nil {
			w.destroyEntity(e)
			w.flush()
			return types.Nil, err
		}
	}
	for _, q := range w.queryOrder {
		q.refresh(e)
	}
	w.flush()
	statsd.EmitOpStat(start, "spawn")
	statsd.EmitEntityCount(w.id, w.LiveEntityCount())
	return e, nil
}

// Destroy removes every trait from the entity, firing relation cascades,
// then frees its row and bumps the generation.
func (w *World) Destroy(e types.Entity) error {
	start := time.Now()
	if err := w.validate(e); err != nil {
		return err
	}
	if e == w.worldEntity {
		return eris.New("the world entity cannot be destroyed")
	}
	w.destroyEntity(e)
	w.flush()
	statsd.EmitOpStat(start, "destroy")
	statsd.EmitEntityCount(w.id, w.LiveEntityCount())
	return nil
}

// Add gives the entity the trait. If the entity already carries it, the
// optional initial record is applied with set semantics and membership is
// unchanged.
func (w *World) Add(e types.Entity, t *trait.Trait, initial ...types.Record) error {
	if err := w.validate(e); err != nil {
		return err
	}
	var init types.Record
	if len(initial) > 0 {
		init = initial[0]
	}
	if err := w.addTrait(e, t, init); err != nil {
		return err
	}
	w.flush()
	return nil
}

// Remove strips the trait from the entity. Removing a trait the entity does
// not carry is a no-op.
func (w *World) Remove(e types.Entity, t *trait.Trait) error {
	if err := w.validate(e); err != nil {
		return err
	}
	w.removeTrait(e, t)
	w.flush()
	return nil
}

// Set assigns the given fields of the trait. When any field actually
// changes value, change trackers and OnChange subscribers observe it.
// Setting a trait the entity does not carry is a no-op.
func (w *World) Set(e types.Entity, t *trait.Trait, partial types.Record) error {
	if err := w.validate(e); err != nil {
		return err
	}
	reg, ok := w.traits.Lookup(t)
	if !ok || !maskHas(w.masks[e.Row()], reg.Bit()) {
		return nil
	}
	if err := w.setTrait(e, t, reg, partial); err != nil {
		return err
	}
	w.flush()
	return nil
}

// Get returns a snapshot record of the trait's fields for the entity.
func (w *World) Get(e types.Entity, t *trait.Trait) (types.Record, error) {
	if err := w.validate(e); err != nil {
		return nil, err
	}
	reg, ok := w.traits.Lookup(t)
	if !ok || !maskHas(w.masks[e.Row()], reg.Bit()) {
		return nil, eris.Wrapf(trait.ErrTraitNotRegistered, "entity does not carry trait %q", t.Name())
	}
	if reg.Store() == nil {
		return types.Record{}, nil
	}
	return reg.Store().Get(e.Row()), nil
}

// Has reports whether the entity carries the trait. Stale or foreign
// entities never carry anything.
func (w *World) Has(e types.Entity, t *trait.Trait) bool {
	if w.validate(e) != nil {
		return false
	}
	reg, ok := w.traits.Lookup(t)
	return ok && maskHas(w.masks[e.Row()], reg.Bit())
}

// Store exposes the trait's column store for hot loops. It is nil until the
// trait is first used in this world, and always nil for tags.
func (w *World) Store(t *trait.Trait) *trait.Store {
	reg, ok := w.traits.Lookup(t)
	if !ok {
		return nil
	}
	return reg.Store()
}

// GetTargets returns the targets T for which the entity carries rel.Of(T),
// in ascending row order.
func (w *World) GetTargets(rel *trait.Relation, e types.Entity) ([]types.Entity, error) {
	if err := w.validate(e); err != nil {
		return nil, err
	}
	traits := w.relationTraitsOn(e, rel)
	out := make([]types.Entity, 0, len(traits))
	for _, rt := range traits {
		out = append(out, rt.Target())
	}
	sortEntities(out)
	return out, nil
}

// Reset clears all state but keeps the world id and its initial traits.
// Cached queries, trackers, and subscriptions are evicted.
func (w *World) Reset() error {
	if w.destroyed {
		return newError(CodeWrongWorld, ErrWorldDestroyed, "")
	}
	w.initState()
	w.logger.Debug().Msg("world reset")
	return nil
}

// DestroyWorld destroys all entities and releases the world id. The world
// must not be used afterwards.
func (w *World) DestroyWorld() error {
	if w.destroyed {
		return newError(CodeWrongWorld, ErrWorldDestroyed, "")
	}
	for _, e := range w.index.aliveEntities() {
		if e != w.worldEntity {
			w.destroyEntity(e)
		}
	}
	w.flush()
	w.destroyed = true
	releaseWorldID(w.id)
	w.logger.Debug().Msg("world destroyed")
	return nil
}

func (w *World) validate(e types.Entity) error {
	if w.destroyed {
		return newError(CodeWrongWorld, ErrWorldDestroyed, "")
	}
	if e.WorldID() != w.id {
		return newError(CodeWrongWorld, ErrWrongWorld, "")
	}
	if !w.index.isAlive(e) {
		return newError(CodeStaleEntity, ErrStaleEntity, "")
	}
	return nil
}

// ensureRow grows per-row state to cover the given row, and column stores
// geometrically past their current capacity.
func (w *World) ensureRow(row uint32) {
	for uint32(len(w.masks)) <= row {
		w.masks = append(w.masks, make([]uint32, w.wordCount))
		w.dying = append(w.dying, false)
	}
	if n := w.index.rowCount(); n > w.cfg.WeftInitialCapacity {
		cap := w.cfg.WeftInitialCapacity
		for cap < n {
			cap *= 2
		}
		w.traits.EnsureCapacity(cap)
	}
}

// register lazily registers the trait in this world, growing mask words and
// wiring relation target indices when the registration is new.
func (w *World) register(t *trait.Trait) (*trait.Registration, error) {
	before := len(w.traits.Registrations())
	reg, err := w.traits.Register(t)
	if err != nil {
		if eris.Is(err, trait.ErrSchemaMismatch) {
			return nil, newError(CodeSchemaMismatch, ErrSchemaMismatch, t.Name())
		}
		return nil, err
	}
	if len(w.traits.Registrations()) == before {
		return reg, nil
	}

	// new registration
	w.traitEpoch++
	if wc := w.traits.WordCount(); wc > w.wordCount {
		for row := range w.masks {
			for len(w.masks[row]) < wc {
				w.masks[row] = append(w.masks[row], 0)
			}
		}
		w.wordCount = wc
	}
	if t.IsRelation() {
		w.targetIndex[t.Target()] = append(w.targetIndex[t.Target()], t)
	}
	w.logger.Debug().Str("trait", t.Name()).Int("bit", reg.Bit()).Msg("trait registered")
	return reg, nil
}

func (w *World) addTrait(e types.Entity, t *trait.Trait, init types.Record) error {
	if t.IsRelation() {
		target := t.Target()
		if target.WorldID() != w.id || !w.index.isAlive(target) {
			return newError(CodeRelationMisuse, ErrRelationMisuse, t.Name())
		}
	}
	reg, err := w.register(t)
	if err != nil {
		return err
	}
	row := e.Row()
	if maskHas(w.masks[row], reg.Bit()) {
		if init != nil {
			return w.setTrait(e, t, reg, init)
		}
		return nil
	}

	if t.IsRelation() && t.Relation().IsExclusive() {
		for _, prior := range w.relationTraitsOn(e, t.Relation()) {
			if prior != t {
				w.removeTrait(e, prior)
			}
		}
	}

	if st := reg.Store(); st != nil {
		if err := st.Set(row, t.Defaults(), false); err != nil {
			return err
		}
		if init != nil {
			if _, err := st.SetDetect(row, init, w.cfg.WeftStrictSchema); err != nil {
				st.Reset(row)
				if eris.Is(err, trait.ErrUnknownField) {
					return newError(CodeSchemaMismatch, ErrSchemaMismatch, t.Name())
				}
				return err
			}
		}
	}

	maskSet(w.masks[row], reg.Bit())
	reg.Add(e)
	for _, tr := range w.trackers {
		tr.markDirty(row, reg.Bit())
	}
	for _, q := range w.traitQueries[t.ID()] {
		q.refresh(e)
	}
	return nil
}

func (w *World) removeTrait(e types.Entity, t *trait.Trait) {
	reg, ok := w.traits.Lookup(t)
	if !ok {
		return
	}
	row := e.Row()
	if !maskHas(w.masks[row], reg.Bit()) {
		return
	}
	maskClear(w.masks[row], reg.Bit())
	reg.Remove(e)
	if st := reg.Store(); st != nil {
		st.Reset(row)
	}
	for _, tr := range w.trackers {
		tr.markDirty(row, reg.Bit())
	}
	for _, q := range w.traitQueries[t.ID()] {
		q.refresh(e)
	}
}

func (w *World) setTrait(e types.Entity, t *trait.Trait, reg *trait.Registration, partial types.Record) error {
	st := reg.Store()
	if st == nil {
		return nil
	}
	row := e.Row()
	changed, err := st.SetDetect(row, partial, w.cfg.WeftStrictSchema)
	if err != nil {
		if eris.Is(err, trait.ErrUnknownField) {
			return newError(CodeSchemaMismatch, ErrSchemaMismatch, t.Name())
		}
		return err
	}
	if !changed {
		return nil
	}
	for _, tr := range w.trackers {
		tr.markChanged(row, reg.Bit())
	}
	for _, sub := range w.changeSubs[t.ID()] {
		cb := sub.cb
		w.dispatch(func() { cb(e) })
	}
	for _, q := range w.traitQueries[t.ID()] {
		q.refresh(e)
	}
	return nil
}

func (w *World) destroyEntity(e types.Entity) {
	row := e.Row()
	w.dying[row] = true

	// cascades for relations targeting the dying entity
	if rts := w.targetIndex[e]; len(rts) > 0 {
		traits := make([]*trait.Trait, len(rts))
		copy(traits, rts)
		for _, rt := range traits {
			reg, ok := w.traits.Lookup(rt)
			if !ok {
				continue
			}
			carriers := make([]types.Entity, 0, len(reg.Entities()))
			for c := range reg.Entities() {
				carriers = append(carriers, c)
			}
			sortEntities(carriers)
			switch rt.Relation().TargetPolicy() {
			case trait.TargetPolicyRemove:
				for _, c := range carriers {
					w.removeTrait(c, rt)
				}
			case trait.TargetPolicyDestroy:
				for _, c := range carriers {
					if w.index.isAlive(c) && !w.dying[c.Row()] {
						w.destroyEntity(c)
					}
				}
			case trait.TargetPolicyNone:
			}
		}
		delete(w.targetIndex, e)
	}

	for _, reg := range w.traits.Registrations() {
		if maskHas(w.masks[row], reg.Bit()) {
			w.removeTrait(e, reg.Trait())
		}
	}
	for _, q := range w.queryOrder {
		q.refresh(e)
	}
	for _, tr := range w.trackers {
		tr.clearRow(row)
	}
	maskZero(w.masks[row])
	w.dying[row] = false
	w.index.free(e)
}

// relationTraitsOn returns the registered traits of rel that the entity
// currently carries.
func (w *World) relationTraitsOn(e types.Entity, rel *trait.Relation) []*trait.Trait {
	var out []*trait.Trait
	for _, target := range rel.Targets() {
		rt := rel.Of(target)
		reg, ok := w.traits.Lookup(rt)
		if ok && maskHas(w.masks[e.Row()], reg.Bit()) {
			out = append(out, rt)
		}
	}
	return out
}

// liveForQueries reports whether the entity should be visible to query
// predicates: live, not mid-destroy, and not the hidden world entity.
func (w *World) liveForQueries(e types.Entity) bool {
	return w.index.isAlive(e) && !w.dying[e.Row()] && e != w.worldEntity
}

func sortEntities(entities []types.Entity) {
	for i := 1; i < len(entities); i++ {
		for j := i; j > 0 && entities[j-1].Row() > entities[j].Row(); j-- {
			entities[j-1], entities[j] = entities[j], entities[j-1]
		}
	}
}
