package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Decode[T any](bz []byte) (T, error) {
	val := new(T)
	err := json.Unmarshal(bz, val)
	if err != nil {
		return *val, eris.Wrap(err, "")
	}
	return *val, nil
}

func Encode(val any) ([]byte, error) {
	bz, err := json.Marshal(val)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

// Clone deep-copies a JSON-serializable value by round-tripping it through
// the codec. Used for tagged field snapshots, where handing out the stored
// value directly would alias internal state.
func Clone[T any](val T) (T, error) {
	bz, err := Encode(val)
	if err != nil {
		return val, err
	}
	return Decode[T](bz)
}

// Equal reports whether two values have identical JSON encodings.
func Equal(a, b any) (bool, error) {
	ba, err := Encode(a)
	if err != nil {
		return false, err
	}
	bb, err := Encode(b)
	if err != nil {
		return false, err
	}
	return string(ba) == string(bb), nil
}
