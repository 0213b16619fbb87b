package tst

import "errors"

var (
	// ErrNotFound is returned when a key has no value of its own in the trie.
	ErrNotFound = errors.New("key not found")

	// ErrEmptyKey is returned when an operation is given a zero-length key.
	ErrEmptyKey = errors.New("empty key")

	// ErrOutOfMemory is returned when the node arena cannot grow any further.
	ErrOutOfMemory = errors.New("node arena exhausted")

	// ErrStalePosition is the panic value cause when a Position is used after
	// the trie was structurally modified.
	ErrStalePosition = errors.New("stale position")

	// ErrMutatedDuringWalk is the panic value cause when Insert, Remove or
	// Destroy is called from inside a walk over the same trie.
	ErrMutatedDuringWalk = errors.New("trie mutated during walk")

	// ErrCorrupt is returned by Validate when an invariant does not hold.
	ErrCorrupt = errors.New("trie invariant violated")
)
