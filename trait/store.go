package trait

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/weftworks/weft/codec"
	"github.com/weftworks/weft/types"
)

// ErrUnknownField is returned by strict-mode writes that name a field the
// trait schema does not contain.
var ErrUnknownField = eris.New("field not in trait schema")

// setter writes one field at a row and reports whether the stored value
// changed. One setter per field is compiled when the store is built, so the
// hot path never switches on field kind.
type setter func(row uint32, val any) (changed bool, err error)

// getter reads one field at a row.
type getter func(row uint32) any

// Store is the structure-of-arrays backing for one trait within one world:
// one dense array per schema field, indexed by entity row.
type Store struct {
	schema     types.Schema
	fieldNames []string

	numbers map[string][]float64
	bools   map[string][]bool
	refs    map[string][]types.Entity
	tagged  map[string][]any

	setters map[string]setter
	getters map[string]getter

	capacity int
}

// NewStore allocates column storage for the given schema, sized for
// capacity rows.
func NewStore(schema types.Schema, capacity int) *Store {
	s := &Store{
		schema:  schema,
		numbers: map[string][]float64{},
		bools:   map[string][]bool{},
		refs:    map[string][]types.Entity{},
		tagged:  map[string][]any{},
		setters: map[string]setter{},
		getters: map[string]getter{},
	}
	for name := range schema {
		s.fieldNames = append(s.fieldNames, name)
	}
	sort.Strings(s.fieldNames)
	for _, name := range s.fieldNames {
		s.compileField(name, schema[name])
	}
	s.Grow(capacity)
	return s
}

func (s *Store) compileField(name string, kind types.FieldKind) {
	switch kind {
	case types.FieldNumber:
		s.numbers[name] = nil
		s.setters[name] = func(row uint32, val any) (bool, error) {
			f, err := toFloat64(val)
			if err != nil {
				return false, eris.Wrapf(err, "field %q", name)
			}
			col := s.numbers[name]
			if col[row] == f {
				return false, nil
			}
			col[row] = f
			return true, nil
		}
		s.getters[name] = func(row uint32) any { return s.numbers[name][row] }
	case types.FieldBool:
		s.bools[name] = nil
		s.setters[name] = func(row uint32, val any) (bool, error) {
			b, ok := val.(bool)
			if !ok {
				return false, eris.Errorf("field %q expects bool, got %T", name, val)
			}
			col := s.bools[name]
			if col[row] == b {
				return false, nil
			}
			col[row] = b
			return true, nil
		}
		s.getters[name] = func(row uint32) any { return s.bools[name][row] }
	case types.FieldRef:
		s.refs[name] = nil
		s.setters[name] = func(row uint32, val any) (bool, error) {
			e, ok := val.(types.Entity)
			if !ok {
				if val == nil {
					e = types.Nil
				} else {
					return false, eris.Errorf("field %q expects an entity ref, got %T", name, val)
				}
			}
			col := s.refs[name]
			if col[row] == e {
				return false, nil
			}
			col[row] = e
			return true, nil
		}
		s.getters[name] = func(row uint32) any { return s.refs[name][row] }
	case types.FieldTagged:
		s.tagged[name] = nil
		s.setters[name] = func(row uint32, val any) (bool, error) {
			col := s.tagged[name]
			same, err := codec.Equal(col[row], val)
			if err != nil {
				return false, eris.Wrapf(err, "field %q", name)
			}
			if same {
				return false, nil
			}
			col[row] = val
			return true, nil
		}
		s.getters[name] = func(row uint32) any {
			val, err := codec.Clone(s.tagged[name][row])
			if err != nil {
				return s.tagged[name][row]
			}
			return val
		}
	}
}

// Grow extends every column to hold at least capacity rows. New rows are
// zero-valued.
func (s *Store) Grow(capacity int) {
	if capacity <= s.capacity {
		return
	}
	for name := range s.numbers {
		s.numbers[name] = append(s.numbers[name], make([]float64, capacity-len(s.numbers[name]))...)
	}
	for name := range s.bools {
		s.bools[name] = append(s.bools[name], make([]bool, capacity-len(s.bools[name]))...)
	}
	for name := range s.refs {
		s.refs[name] = append(s.refs[name], make([]types.Entity, capacity-len(s.refs[name]))...)
	}
	for name := range s.tagged {
		s.tagged[name] = append(s.tagged[name], make([]any, capacity-len(s.tagged[name]))...)
	}
	s.capacity = capacity
}

// Get returns a snapshot record of every field at the given row.
func (s *Store) Get(row uint32) types.Record {
	out := make(types.Record, len(s.fieldNames))
	for _, name := range s.fieldNames {
		out[name] = s.getters[name](row)
	}
	return out
}

// Set writes the given partial record at row. Unknown fields are skipped
// unless strict is set, in which case they fail with ErrUnknownField.
func (s *Store) Set(row uint32, partial types.Record, strict bool) error {
	_, err := s.SetDetect(row, partial, strict)
	return err
}

// SetDetect writes the given partial record at row and reports whether any
// stored field changed value.
func (s *Store) SetDetect(row uint32, partial types.Record, strict bool) (bool, error) {
	changed := false
	for name, val := range partial {
		set, ok := s.setters[name]
		if !ok {
			if strict {
				return changed, eris.Wrapf(ErrUnknownField, "field %q", name)
			}
			continue
		}
		fieldChanged, err := set(row, val)
		if err != nil {
			return changed, err
		}
		changed = changed || fieldChanged
	}
	return changed, nil
}

// Reset zeroes every field at row. Called when the row is vacated so
// recycled rows start from a clean slate.
func (s *Store) Reset(row uint32) {
	for name := range s.numbers {
		s.numbers[name][row] = 0
	}
	for name := range s.bools {
		s.bools[name][row] = false
	}
	for name := range s.refs {
		s.refs[name][row] = types.Nil
	}
	for name := range s.tagged {
		s.tagged[name][row] = nil
	}
}

// FieldNames returns the schema's field names in sorted order.
func (s *Store) FieldNames() []string {
	return s.fieldNames
}

// NumberColumn exposes the raw float64 array for a number field. The slice
// aliases live storage; hot loops may read and write it directly.
func (s *Store) NumberColumn(name string) []float64 {
	return s.numbers[name]
}

// BoolColumn exposes the raw bool array for a bool field.
func (s *Store) BoolColumn(name string) []bool {
	return s.bools[name]
}

// RefColumn exposes the raw entity array for a ref field.
func (s *Store) RefColumn(name string) []types.Entity {
	return s.refs[name]
}

// TaggedColumn exposes the raw array for a tagged field.
func (s *Store) TaggedColumn(name string) []any {
	return s.tagged[name]
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, eris.Errorf("expected a number, got %T", val)
}
