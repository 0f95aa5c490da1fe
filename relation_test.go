package weft_test

import (
	"testing"

	"github.com/rotisserie/eris"
	"gotest.tools/v3/assert"

	"github.com/weftworks/weft"
	"github.com/weftworks/weft/trait"
)

func TestExclusiveRelationReplacesTarget(t *testing.T) {
	w := newTestWorld(t)
	childOf := weft.NewRelation("ChildOf", nil, trait.WithExclusive())

	p1, err := w.Spawn()
	assert.NilError(t, err)
	p2, err := w.Spawn()
	assert.NilError(t, err)
	c, err := w.Spawn()
	assert.NilError(t, err)

	assert.NilError(t, w.Add(c, childOf.Of(p1)))
	assert.NilError(t, w.Add(c, childOf.Of(p2)))

	targets, err := w.GetTargets(childOf, c)
	assert.NilError(t, err)
	assert.DeepEqual(t, targets, []weft.Entity{p2})
	assert.Assert(t, !w.Has(c, childOf.Of(p1)))
}

func TestRelationTargetsAreDistinctTraits(t *testing.T) {
	w := newTestWorld(t)
	likes := weft.NewRelation("Likes", nil)

	a, err := w.Spawn()
	assert.NilError(t, err)
	b, err := w.Spawn()
	assert.NilError(t, err)
	c, err := w.Spawn()
	assert.NilError(t, err)

	assert.NilError(t, w.Add(c, likes.Of(a)))
	assert.NilError(t, w.Add(c, likes.Of(b)))

	targets, err := w.GetTargets(likes, c)
	assert.NilError(t, err)
	assert.DeepEqual(t, targets, []weft.Entity{a, b})

	assert.Assert(t, likes.Of(a) != likes.Of(b))
	assert.Assert(t, likes.Of(a) == likes.Of(a))
}

func TestRelationWithFields(t *testing.T) {
	w := newTestWorld(t)
	owes := weft.NewRelation("Owes", weft.Schema{"amount": weft.FieldNumber})

	bank, err := w.Spawn()
	assert.NilError(t, err)
	debtor, err := w.Spawn()
	assert.NilError(t, err)

	assert.NilError(t, w.Add(debtor, owes.Of(bank), weft.Record{"amount": 250.0}))
	rec, err := w.Get(debtor, owes.Of(bank))
	assert.NilError(t, err)
	assert.Equal(t, rec["amount"], 250.0)
}

func TestRelationTargetMustBeAlive(t *testing.T) {
	w := newTestWorld(t)
	childOf := weft.NewRelation("ChildOf", nil)

	p, err := w.Spawn()
	assert.NilError(t, err)
	c, err := w.Spawn()
	assert.NilError(t, err)
	assert.NilError(t, w.Destroy(p))

	err = w.Add(c, childOf.Of(p))
	assert.Assert(t, eris.Is(err, weft.ErrRelationMisuse))
}

func TestTargetDestroyRemovesRelation(t *testing.T) {
	w := newTestWorld(t)
	childOf := weft.NewRelation("ChildOf", nil, trait.WithTargetPolicy(trait.TargetPolicyRemove))

	p, err := w.Spawn()
	assert.NilError(t, err)
	c, err := w.Spawn()
	assert.NilError(t, err)
	assert.NilError(t, w.Add(c, childOf.Of(p)))

	assert.NilError(t, w.Destroy(p))

	assert.Assert(t, weft.Alive(c))
	assert.Assert(t, !w.Has(c, childOf.Of(p)))
	targets, err := w.GetTargets(childOf, c)
	assert.NilError(t, err)
	assert.Equal(t, len(targets), 0)
}

func TestTargetDestroyCascades(t *testing.T) {
	w := newTestWorld(t)
	partOf := weft.NewRelation("PartOf", nil, trait.WithTargetPolicy(trait.TargetPolicyDestroy))

	body, err := w.Spawn()
	assert.NilError(t, err)
	arm, err := w.Spawn()
	assert.NilError(t, err)
	hand, err := w.Spawn()
	assert.NilError(t, err)

	assert.NilError(t, w.Add(arm, partOf.Of(body)))
	assert.NilError(t, w.Add(hand, partOf.Of(arm)))

	assert.NilError(t, w.Destroy(body))

	assert.Assert(t, !weft.Alive(arm))
	assert.Assert(t, !weft.Alive(hand))
	assert.Equal(t, w.LiveEntityCount(), 0)
}
