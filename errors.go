package weft

import (
	"github.com/rotisserie/eris"
)

// ErrorCode discriminates the programmer errors the core raises. Malformed
// but harmless operations (double remove, set on a missing trait, querying
// an unregistered trait) no-op instead.
type ErrorCode int

const (
	// CodeStaleEntity marks operations on an entity whose generation no
	// longer matches its row.
	CodeStaleEntity ErrorCode = iota
	// CodeWrongWorld marks an entity used with a world that did not issue
	// it.
	CodeWrongWorld
	// CodeSchemaMismatch marks a strict-mode write containing fields not in
	// the trait schema, or a trait name reused with a different schema.
	CodeSchemaMismatch
	// CodeRelationMisuse marks a relation instantiated against a target
	// that is not a live entity.
	CodeRelationMisuse
)

func (c ErrorCode) String() string {
	switch c {
	case CodeStaleEntity:
		return "stale entity"
	case CodeWrongWorld:
		return "wrong world"
	case CodeSchemaMismatch:
		return "schema mismatch"
	case CodeRelationMisuse:
		return "relation misuse"
	}
	return "unknown"
}

var (
	ErrStaleEntity    = eris.New("operation on stale entity")
	ErrWrongWorld     = eris.New("entity does not belong to this world")
	ErrSchemaMismatch = eris.New("value does not match trait schema")
	ErrRelationMisuse = eris.New("relation target is not a live entity")

	ErrWorldDestroyed  = eris.New("world has been destroyed")
	ErrRowsExhausted   = eris.New("world row capacity exhausted")
	ErrWorldsExhausted = eris.New("no free world ids")
)

// Error is the single error kind the core raises for misuse. Use eris.Is
// against the sentinel vars, or unwrap to read the code.
type Error struct {
	Code ErrorCode
	err  error
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(code ErrorCode, sentinel error, msg string) error {
	if msg == "" {
		return &Error{Code: code, err: sentinel}
	}
	return &Error{Code: code, err: eris.Wrap(sentinel, msg)}
}
