package trait

import (
	"fmt"
	"sync/atomic"

	"github.com/weftworks/weft/types"
)

var nextRelationID atomic.Uint64

// TargetPolicy selects what happens to entities carrying R(T) when the
// target T is destroyed.
type TargetPolicy int

const (
	// TargetPolicyNone leaves carriers untouched; the relation trait keeps
	// pointing at a dead entity until removed by the caller.
	TargetPolicyNone TargetPolicy = iota
	// TargetPolicyRemove strips R(T) from every carrier.
	TargetPolicyRemove
	// TargetPolicyDestroy destroys every carrier of R(T).
	TargetPolicyDestroy
)

// Relation is a trait factory parameterized by a target entity. Of(T) mints
// a concrete trait distinct from Of(U); the mapping is memoized so the
// returned trait is identity-stable.
type Relation struct {
	id       uint64
	name     string
	schema   types.Schema
	defaults types.Record

	exclusive    bool
	targetPolicy TargetPolicy

	memo map[types.Entity]*Trait
}

type RelationOption func(*Relation)

// WithExclusive makes adding a new target implicitly remove prior targets
// on the same entity.
func WithExclusive() RelationOption {
	return func(r *Relation) {
		r.exclusive = true
	}
}

// WithTargetPolicy sets the cascade behavior on target destruction.
func WithTargetPolicy(p TargetPolicy) RelationOption {
	return func(r *Relation) {
		r.targetPolicy = p
	}
}

// WithRelationDefaults overlays default values on the relation's schema.
func WithRelationDefaults(defaults types.Record) RelationOption {
	return func(r *Relation) {
		r.defaults = defaults
	}
}

// NewRelation creates a relation trait factory. The schema (possibly empty)
// is shared by every trait the relation mints.
func NewRelation(name string, schema types.Schema, opts ...RelationOption) *Relation {
	r := &Relation{
		id:     nextRelationID.Add(1),
		name:   name,
		schema: schema,
		memo:   map[types.Entity]*Trait{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relation) ID() uint64 {
	return r.id
}

func (r *Relation) Name() string {
	return r.name
}

func (r *Relation) IsExclusive() bool {
	return r.exclusive
}

func (r *Relation) TargetPolicy() TargetPolicy {
	return r.targetPolicy
}

// Of returns the concrete trait for the given target. Repeated calls with
// the same target return the same *Trait.
func (r *Relation) Of(target types.Entity) *Trait {
	if t, ok := r.memo[target]; ok {
		return t
	}
	t := &Trait{
		id:       nextTraitID.Add(1),
		name:     fmt.Sprintf("%s(%d)", r.name, uint32(target)),
		schema:   r.schema,
		defaults: r.defaults,
		rel:      r,
		target:   target,
	}
	r.memo[target] = t
	return t
}

// Targets returns every target the relation has minted a trait for, in no
// particular order. Callers filter by world and liveness.
func (r *Relation) Targets() []types.Entity {
	out := make([]types.Entity, 0, len(r.memo))
	for target := range r.memo {
		out = append(out, target)
	}
	return out
}
