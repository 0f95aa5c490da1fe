package trait

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/weftworks/weft/types"
)

var ErrTraitNotRegistered = eris.New("trait not registered")

// ErrSchemaMismatch is returned when a trait is registered under a name that
// another trait already holds in the same world with a different schema.
var ErrSchemaMismatch = eris.New("trait schema mismatch")

// Registration is one world's record of a trait: the bitflag it was
// assigned, its column store, and the set of entities currently carrying it.
type Registration struct {
	trait    *Trait
	bit      int
	store    *Store
	entities map[types.Entity]struct{}
}

func (r *Registration) Trait() *Trait {
	return r.trait
}

// Bit returns the absolute bit index assigned to the trait in this world.
// The mask word is Bit()/32 and the in-word position is Bit()%32.
func (r *Registration) Bit() int {
	return r.bit
}

// Store returns the column store, or nil for tag traits.
func (r *Registration) Store() *Store {
	return r.store
}

// Entities returns the live membership set. Callers must not mutate it.
func (r *Registration) Entities() map[types.Entity]struct{} {
	return r.entities
}

func (r *Registration) Add(e types.Entity) {
	r.entities[e] = struct{}{}
}

func (r *Registration) Remove(e types.Entity) {
	delete(r.entities, e)
}

func (r *Registration) Contains(e types.Entity) bool {
	_, ok := r.entities[e]
	return ok
}

// Manager assigns bitflags and owns column stores for the traits one world
// has seen. Registration is lazy: a trait gets its bit on first use.
type Manager struct {
	byID     map[uint64]*Registration
	byName   map[string]*Registration
	order    []*Registration
	capacity int
}

// NewManager creates a trait manager whose stores are sized for capacity
// rows.
func NewManager(capacity int) *Manager {
	return &Manager{
		byID:     map[uint64]*Registration{},
		byName:   map[string]*Registration{},
		capacity: capacity,
	}
}

// Register assigns the trait the next free bitflag and allocates its column
// store. Registering an already-registered trait returns the existing
// registration. A distinct trait reusing a registered name fails: with
// ErrSchemaMismatch when the schemas differ, otherwise as a duplicate.
func (m *Manager) Register(t *Trait) (*Registration, error) {
	if reg, ok := m.byID[t.ID()]; ok {
		return reg, nil
	}
	if prior, ok := m.byName[t.Name()]; ok {
		same, err := m.schemasMatch(prior.trait, t)
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, eris.Wrap(ErrSchemaMismatch,
				fmt.Sprintf("trait %q does not match the schema already registered under that name", t.Name()))
		}
		return nil, eris.Errorf("trait %q is already registered", t.Name())
	}

	reg := &Registration{
		trait:    t,
		bit:      len(m.order),
		entities: map[types.Entity]struct{}{},
	}
	if !t.IsTag() {
		reg.store = NewStore(t.Schema(), m.capacity)
	}
	m.byID[t.ID()] = reg
	m.byName[t.Name()] = reg
	m.order = append(m.order, reg)
	return reg, nil
}

func (m *Manager) schemasMatch(a, b *Trait) (bool, error) {
	sa, err := SerializeSchema(a.Schema())
	if err != nil {
		return false, err
	}
	sb, err := SerializeSchema(b.Schema())
	if err != nil {
		return false, err
	}
	return IsSchemaValid(sa, sb)
}

// Lookup returns the registration for a trait, if it has one.
func (m *Manager) Lookup(t *Trait) (*Registration, bool) {
	reg, ok := m.byID[t.ID()]
	return reg, ok
}

// LookupName resolves a registered trait by name.
func (m *Manager) LookupName(name string) (*Registration, error) {
	reg, ok := m.byName[name]
	if !ok {
		return nil, eris.Wrap(ErrTraitNotRegistered, fmt.Sprintf("trait %q is not registered", name))
	}
	return reg, nil
}

// Registrations returns every registration in bitflag order.
func (m *Manager) Registrations() []*Registration {
	return m.order
}

// WordCount returns how many 32-bit mask words the registered bitflags
// span. Zero while no trait is registered.
func (m *Manager) WordCount() int {
	return (len(m.order) + 31) / 32
}

// EnsureCapacity grows every column store to hold at least capacity rows.
func (m *Manager) EnsureCapacity(capacity int) {
	if capacity <= m.capacity {
		return
	}
	m.capacity = capacity
	for _, reg := range m.order {
		if reg.store != nil {
			reg.store.Grow(capacity)
		}
	}
}
