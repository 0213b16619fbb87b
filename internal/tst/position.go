package tst

import "fmt"

// Position refers to the node holding one key's value.
//
// A position is only valid until the next Insert, Remove or Destroy on the
// trie that issued it. Using it afterwards is a programming error and
// Value, SetValue and Key panic with an error wrapping ErrStalePosition.
type Position struct {
	id    nodeID
	epoch uint64
}

// IsZero reports whether p is the zero Position, which never refers to a key.
func (p Position) IsZero() bool {
	return p.id == nilNode
}

func (t *Trie[V]) position(id nodeID) Position {
	return Position{id: id, epoch: t.epoch}
}

// terminal resolves pos to its node, panicking if pos is stale.
func (t *Trie[V]) terminal(pos Position) *node[V] {
	if pos.id == nilNode || pos.epoch != t.epoch || int(pos.id) >= len(t.nodes) || !t.nodes[pos.id].hasValue {
		panic(fmt.Errorf("tst: position %d@%d used at epoch %d: %w", pos.id, pos.epoch, t.epoch, ErrStalePosition))
	}
	return &t.nodes[pos.id]
}

// Value returns the value stored at pos.
func (t *Trie[V]) Value(pos Position) V {
	return t.terminal(pos).value
}

// SetValue replaces the value stored at pos. It is not a structural change,
// so pos and every other live position stay valid.
func (t *Trie[V]) SetValue(pos Position, value V) {
	t.terminal(pos).value = value
}

// Key returns the full key stored at pos.
func (t *Trie[V]) Key(pos Position) string {
	return t.terminal(pos).storedKey
}
