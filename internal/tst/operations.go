package tst

import "fmt"

// link names the slot of a parent a node hangs from.
type link uint8

const (
	linkRoot link = iota
	linkLess
	linkEqual
	linkGreater
)

// attach stores child in the given slot of parent.
func (t *Trie[V]) attach(parent nodeID, l link, child nodeID) {
	switch l {
	case linkRoot:
		t.root = child
	case linkLess:
		t.nodes[parent].less = child
	case linkEqual:
		t.nodes[parent].equal = child
	case linkGreater:
		t.nodes[parent].greater = child
	}
}

// mustNotWalk panics when a structural change is attempted from a walk
// visitor.
func (t *Trie[V]) mustNotWalk(op string) {
	if t.walking.Load() > 0 {
		panic(fmt.Errorf("tst: %s: %w", op, ErrMutatedDuringWalk))
	}
}

// Insert adds key to the trie with the given value.
//
// If key is already present its value is left untouched and created is
// false. In both cases pos refers to the key's node. Inserting a key
// invalidates every previously returned Position.
func (t *Trie[V]) Insert(key string, value V) (created bool, pos Position, err error) {
	if key == "" {
		return false, Position{}, ErrEmptyKey
	}
	t.mustNotWalk("insert")

	var (
		cur    = t.root
		parent = nilNode
		slot   = linkRoot
		last   = nilNode // deepest node allocated by this call
	)
	for i := 0; ; {
		c := key[i]
		if cur == nilNode {
			id, err := t.alloc(c, parent)
			if err != nil {
				if last != nilNode {
					t.prune(last)
					t.epoch++
				}
				return false, Position{}, fmt.Errorf("insert %d byte key: %w", len(key), err)
			}
			t.attach(parent, slot, id)
			cur, last = id, id
		}

		n := &t.nodes[cur]
		switch {
		case c < n.splitChar:
			parent, slot, cur = cur, linkLess, n.less
		case c > n.splitChar:
			parent, slot, cur = cur, linkGreater, n.greater
		case i+1 < len(key):
			i++
			parent, slot, cur = cur, linkEqual, n.equal
		default:
			if n.hasValue {
				return false, t.position(cur), nil
			}
			n.hasValue = true
			n.value = value
			n.storedKey = key
			t.size++
			t.epoch++
			return true, t.position(cur), nil
		}
	}
}

// locate returns the node reached by consuming all of key, whether or not it
// holds a value.
func (t *Trie[V]) locate(key string) nodeID {
	if key == "" {
		return nilNode
	}
	cur := t.root
	for i := 0; cur != nilNode; {
		n := &t.nodes[cur]
		c := key[i]
		switch {
		case c < n.splitChar:
			cur = n.less
		case c > n.splitChar:
			cur = n.greater
		case i+1 < len(key):
			i++
			cur = n.equal
		default:
			return cur
		}
	}
	return nilNode
}

// Find returns the position of key, or ErrNotFound if the key was never
// inserted or is only a prefix of other keys.
func (t *Trie[V]) Find(key string) (Position, error) {
	id := t.locate(key)
	if id == nilNode || !t.nodes[id].hasValue {
		return Position{}, ErrNotFound
	}
	return t.position(id), nil
}

// Get returns the value stored for key.
func (t *Trie[V]) Get(key string) (V, bool) {
	pos, err := t.Find(key)
	if err != nil {
		var zero V
		return zero, false
	}
	return t.nodes[pos.id].value, true
}

// Contains reports whether key has a value in the trie.
func (t *Trie[V]) Contains(key string) bool {
	_, err := t.Find(key)
	return err == nil
}
