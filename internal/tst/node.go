// Package tst implements a ternary search trie mapping byte-string keys to
// values of any type.
//
// Each node holds a single byte of some key and three links: less and
// greater lead to nodes holding other bytes at the same position, equal
// continues with the next byte. Nodes live in an arena and refer to each
// other by index, so the parent back-links never form owning cycles.
//
// A Trie is not safe for concurrent use. Lookups and walks may run in
// parallel on a trie nobody modifies; everything else must be serialized by
// the caller.
package tst

import (
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// nodeID indexes the arena. The zero index is reserved and means "no node".
type nodeID uint32

const nilNode nodeID = 0

// maxNodes is the largest number of live nodes the arena can address.
const maxNodes = math.MaxUint32 - 1

// node represents one byte at one position of one or more keys
type node[V any] struct {
	// splitChar is the byte this node discriminates on
	splitChar byte

	// hasValue marks the last byte of an inserted key
	hasValue bool
	value    V

	// storedKey is the full key, kept only while hasValue is set
	storedKey string

	less    nodeID
	equal   nodeID
	greater nodeID
	parent  nodeID
}

// Trie represents a ternary search trie.
type Trie[V any] struct {
	nodes []node[V]
	free  []nodeID
	root  nodeID
	size  int

	// epoch advances on every structural mutation; positions carry the
	// epoch they were issued in.
	epoch uint64

	// walking counts the walks in progress on this trie. It is atomic so
	// that walks may run side by side with lookups.
	walking atomic.Int32

	limit  uint32
	logger zerolog.Logger
}

// Option configures a Trie.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	limit  uint32
}

// WithLogger makes the trie report structural changes made during removal
// at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// withNodeLimit caps the arena below its addressable size.
func withNodeLimit(n uint32) Option {
	return func(o *options) {
		o.limit = n
	}
}

// New creates a new empty trie
func New[V any](opts ...Option) *Trie[V] {
	o := options{
		logger: zerolog.Nop(),
		limit:  maxNodes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Trie[V]{
		nodes:  make([]node[V], 1, 64),
		limit:  o.limit,
		logger: o.logger,
	}
}

// Size returns the number of keys in the trie.
func (t *Trie[V]) Size() int {
	return t.size
}

// alloc takes a node from the free list or grows the arena.
func (t *Trie[V]) alloc(c byte, parent nodeID) (nodeID, error) {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[id] = node[V]{splitChar: c, parent: parent}
		return id, nil
	}
	if len(t.nodes) == 0 {
		t.nodes = make([]node[V], 1, 64)
	}
	limit := t.limit
	if limit == 0 {
		limit = maxNodes
	}
	if uint64(len(t.nodes)-1) >= uint64(limit) {
		return nilNode, ErrOutOfMemory
	}
	t.nodes = append(t.nodes, node[V]{splitChar: c, parent: parent})
	return nodeID(len(t.nodes) - 1), nil
}

// release clears a node so its value can be collected and recycles its index.
func (t *Trie[V]) release(id nodeID) {
	t.nodes[id] = node[V]{}
	t.free = append(t.free, id)
}

// replaceChild makes the slot of parent that names old point at repl
// instead. A nil parent means old is the root.
func (t *Trie[V]) replaceChild(parent, old, repl nodeID) {
	if parent == nilNode {
		t.root = repl
	} else {
		p := &t.nodes[parent]
		switch old {
		case p.less:
			p.less = repl
		case p.equal:
			p.equal = repl
		case p.greater:
			p.greater = repl
		}
	}
	if repl != nilNode {
		t.nodes[repl].parent = parent
	}
}

// nodeCount is the number of nodes currently in use.
func (t *Trie[V]) nodeCount() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return len(t.nodes) - 1 - len(t.free)
}
