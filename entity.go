package weft

import (
	"github.com/weftworks/weft/trait"
	"github.com/weftworks/weft/types"
)

// Entity-centric operations. Each resolves the entity's world through the
// process-wide index and delegates; they exist so call sites holding only an
// entity value do not need to thread the world through.

func resolve(e types.Entity) (*World, error) {
	w := worldOf(e)
	if w == nil {
		return nil, newError(CodeWrongWorld, ErrWorldDestroyed, "")
	}
	return w, nil
}

// Alive reports whether the entity is live in its world.
func Alive(e types.Entity) bool {
	w := worldOf(e)
	return w != nil && w.validate(e) == nil
}

// Add gives the entity the trait.
func Add(e types.Entity, t *trait.Trait, initial ...types.Record) error {
	w, err := resolve(e)
	if err != nil {
		return err
	}
	return w.Add(e, t, initial...)
}

// Remove strips the trait from the entity.
func Remove(e types.Entity, t *trait.Trait) error {
	w, err := resolve(e)
	if err != nil {
		return err
	}
	return w.Remove(e, t)
}

// Set assigns the given fields of the trait on the entity.
func Set(e types.Entity, t *trait.Trait, partial types.Record) error {
	w, err := resolve(e)
	if err != nil {
		return err
	}
	return w.Set(e, t, partial)
}

// Get returns a snapshot record of the trait's fields on the entity.
func Get(e types.Entity, t *trait.Trait) (types.Record, error) {
	w, err := resolve(e)
	if err != nil {
		return nil, err
	}
	return w.Get(e, t)
}

// Has reports whether the entity carries the trait.
func Has(e types.Entity, t *trait.Trait) bool {
	w := worldOf(e)
	return w != nil && w.Has(e, t)
}

// Destroy removes the entity from its world.
func Destroy(e types.Entity) error {
	w, err := resolve(e)
	if err != nil {
		return err
	}
	return w.Destroy(e)
}

// GetTargets returns the relation targets the entity carries, in ascending
// row order.
func GetTargets(rel *trait.Relation, e types.Entity) ([]types.Entity, error) {
	w, err := resolve(e)
	if err != nil {
		return nil, err
	}
	return w.GetTargets(rel, e)
}
