// Package weft is an entity-trait runtime: worlds hold entities, entities
// carry traits, and cached bitmask queries observe them. The root package is
// the public surface; it re-exports the trait and filter vocabularies so
// most callers import only weft.
package weft

import (
	"github.com/weftworks/weft/filter"
	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
	"github.com/weftworks/weft/wql"
)

type (
	Entity   = types.Entity
	Record   = types.Record
	Schema   = types.Schema
	Trait    = trait.Trait
	Relation = trait.Relation
	Param    = filter.Param
)

const (
	FieldNumber = types.FieldNumber
	FieldBool   = types.FieldBool
	FieldRef    = types.FieldRef
	FieldTagged = types.FieldTagged
)

// Nil is the zero entity. It equals world 0's world entity at generation 0
// and never refers to a spawned entity.
const Nil = types.Nil

// NewTrait declares a trait with the given field schema.
func NewTrait(name string, schema types.Schema, opts ...trait.Option) *trait.Trait {
	return trait.New(name, schema, opts...)
}

// NewTag declares a storage-free marker trait.
func NewTag(name string) *trait.Trait {
	return trait.NewTag(name)
}

// NewRelation declares a relation, a trait factory parameterized by a target
// entity.
func NewRelation(name string, schema types.Schema, opts ...trait.RelationOption) *trait.Relation {
	return trait.NewRelation(name, schema, opts...)
}

// WithDefaults sets the record a trait's fields are initialized from.
func WithDefaults(defaults types.Record) trait.Option {
	return trait.WithDefaults(defaults)
}

// All requires the entity to carry the trait.
func All(t *trait.Trait) filter.Param {
	return filter.All(t)
}

// Any requires the entity to carry at least one of the traits.
func Any(traits ...*trait.Trait) filter.Param {
	return filter.Any(traits...)
}

// Not requires the entity to not carry the trait.
func Not(t *trait.Trait) filter.Param {
	return filter.Not(t)
}

// Added mints an independent added-tracker modifier.
func Added() filter.TrackerMod {
	return filter.NewAdded()
}

// Removed mints an independent removed-tracker modifier.
func Removed() filter.TrackerMod {
	return filter.NewRemoved()
}

// Changed mints an independent changed-tracker modifier.
func Changed() filter.TrackerMod {
	return filter.NewChanged()
}

// QueryText builds a query from query-language text. Trait names resolve
// against this world's registered traits.
func (w *World) QueryText(text string) (*Query, error) {
	params, err := wql.Parse(text, func(name string) (*trait.Trait, error) {
		reg, err := w.traits.LookupName(name)
		if err != nil {
			return nil, err
		}
		return reg.Trait(), nil
	})
	if err != nil {
		return nil, err
	}
	return w.Query(params...), nil
}
