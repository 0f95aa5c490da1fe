// Package filter defines the parameter language for trait queries: require,
// any-of, exclude, and the change-tracking modifiers.
package filter

import (
	"github.com/weftworks/weft/trait"
)

type Kind int

const (
	// KindAll requires the trait's bit to be set.
	KindAll Kind = iota
	// KindAny requires at least one of the listed traits' bits.
	KindAny
	// KindNot requires the trait's bit to be unset.
	KindNot
	// KindTracked is a tracker-backed modifier (added/removed/changed).
	KindTracked
)

// Param is one canonical query parameter. Params are plain values; the query
// engine compiles a parameter list into per-word mask predicates.
type Param struct {
	kind        Kind
	traits      []*trait.Trait
	trackerKind TrackerKind
	trackerID   uint64
}

// All requires the entity to carry the trait. This is the default modifier:
// a bare trait name in query text parses to All.
func All(t *trait.Trait) Param {
	return Param{kind: KindAll, traits: []*trait.Trait{t}}
}

// Any requires the entity to carry at least one of the traits. Any with an
// empty list is a static false predicate.
func Any(traits ...*trait.Trait) Param {
	return Param{kind: KindAny, traits: traits}
}

// Not requires the entity to not carry the trait. Not on a trait the world
// has never seen matches every live entity.
func Not(t *trait.Trait) Param {
	return Param{kind: KindNot, traits: []*trait.Trait{t}}
}

func (p Param) Kind() Kind {
	return p.kind
}

// Traits returns the traits the parameter references.
func (p Param) Traits() []*trait.Trait {
	return p.traits
}

// Trait returns the single trait of an All/Not/Tracked parameter.
func (p Param) Trait() *trait.Trait {
	return p.traits[0]
}

// TrackerKind returns which tracker layer a KindTracked parameter reads.
func (p Param) TrackerKind() TrackerKind {
	return p.trackerKind
}

// TrackerID identifies the tracker state the parameter is bound to. Two
// parameters minted by the same modifier share snapshot state; parameters
// from independently created modifiers never do.
func (p Param) TrackerID() uint64 {
	return p.trackerID
}
