package trait

import (
	"fmt"
	"sync/atomic"

	"github.com/weftworks/weft/types"
)

var nextTraitID atomic.Uint64

// Trait is an immutable descriptor for a named field schema with optional
// default values. Traits are global values: the same *Trait may be used with
// any number of worlds, each of which assigns it its own bitflag on first
// use. Identity is the globally unique id assigned at construction.
type Trait struct {
	id       uint64
	name     string
	schema   types.Schema
	defaults types.Record

	// set only for traits minted by Relation.Of
	rel    *Relation
	target types.Entity
}

type Option func(*Trait)

// WithDefaults overlays the given values on the schema's zero values. Every
// add writes these defaults first; an explicit initial record then overrides
// the fields it names.
func WithDefaults(defaults types.Record) Option {
	return func(t *Trait) {
		t.defaults = defaults
	}
}

// New creates a trait with the given field schema.
func New(name string, schema types.Schema, opts ...Option) *Trait {
	t := &Trait{
		id:     nextTraitID.Add(1),
		name:   name,
		schema: schema,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTag creates a trait with an empty schema. Tags occupy a mask bit but no
// column storage.
func NewTag(name string) *Trait {
	return New(name, nil)
}

func (t *Trait) ID() uint64 {
	return t.id
}

func (t *Trait) Name() string {
	return t.name
}

func (t *Trait) Schema() types.Schema {
	return t.schema
}

func (t *Trait) IsTag() bool {
	return len(t.schema) == 0
}

// IsRelation reports whether the trait was minted by a Relation.
func (t *Trait) IsRelation() bool {
	return t.rel != nil
}

// Relation returns the relation that minted this trait, or nil.
func (t *Trait) Relation() *Relation {
	return t.rel
}

// Target returns the relation target this trait is parameterized by. Only
// meaningful when IsRelation is true.
func (t *Trait) Target() types.Entity {
	return t.target
}

// Defaults returns the trait's full default record: one entry per schema
// field, zero-valued for its kind unless overridden at construction.
func (t *Trait) Defaults() types.Record {
	out := make(types.Record, len(t.schema))
	for name, kind := range t.schema {
		switch kind {
		case types.FieldNumber:
			out[name] = float64(0)
		case types.FieldBool:
			out[name] = false
		case types.FieldRef:
			out[name] = types.Nil
		case types.FieldTagged:
			out[name] = nil
		}
	}
	for name, val := range t.defaults {
		if _, ok := t.schema[name]; ok {
			out[name] = val
		}
	}
	return out
}

func (t *Trait) String() string {
	return fmt.Sprintf("trait %q (id=%d)", t.name, t.id)
}
