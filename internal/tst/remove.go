package tst

// Remove deletes key from the trie and returns the value it held.
//
// Only the key's own terminal marking is guaranteed to go away; nodes that
// still lead to other keys stay in place. Removing a key invalidates every
// previously returned Position.
func (t *Trie[V]) Remove(key string) (V, error) {
	var zero V
	if key == "" {
		return zero, ErrEmptyKey
	}
	t.mustNotWalk("remove")

	id := t.locate(key)
	if id == nilNode || !t.nodes[id].hasValue {
		return zero, ErrNotFound
	}

	n := &t.nodes[id]
	old := n.value
	n.value = zero
	n.hasValue = false
	n.storedKey = ""
	t.size--
	t.epoch++

	t.prune(id)
	return old, nil
}

// prune walks upward from id releasing nodes that no longer hold a value and
// no longer continue any key. Sibling subtrees of a released node are
// re-linked into the released node's slot.
func (t *Trie[V]) prune(id nodeID) {
	for id != nilNode {
		n := t.nodes[id]
		if n.hasValue || n.equal != nilNode {
			return
		}
		parent := n.parent

		switch {
		case n.less == nilNode && n.greater == nilNode:
			t.replaceChild(parent, id, nilNode)
			t.logger.Debug().
				Uint32("node", uint32(id)).
				Hex("char", []byte{n.splitChar}).
				Msg("released dead splitter")

		case n.greater == nilNode:
			t.replaceChild(parent, id, n.less)
			t.logger.Debug().
				Uint32("node", uint32(id)).
				Uint32("promoted", uint32(n.less)).
				Msg("promoted less branch")

		case n.less == nilNode:
			t.replaceChild(parent, id, n.greater)
			t.logger.Debug().
				Uint32("node", uint32(id)).
				Uint32("promoted", uint32(n.greater)).
				Msg("promoted greater branch")

		default:
			// The slot stays occupied, so nothing above can have died.
			t.replaceChild(parent, id, n.greater)
			at := t.graft(n.greater, n.less)
			t.logger.Debug().
				Uint32("node", uint32(id)).
				Uint32("promoted", uint32(n.greater)).
				Uint32("grafted", uint32(n.less)).
				Uint32("under", uint32(at)).
				Msg("promoted greater branch and grafted less branch")
			t.release(id)
			return
		}

		t.release(id)
		id = parent
	}
}

// graft hangs the subtree sub below the subtree rooted at top, descending
// through less and greater links the way a lookup for sub's byte would until
// it reaches an empty slot. It returns the node sub was attached to.
//
// Every byte on sub's level sorts below every byte on top's level, so in
// practice the descent only ever follows less links.
func (t *Trie[V]) graft(top, sub nodeID) nodeID {
	c := t.nodes[sub].splitChar
	at := top
	for {
		n := &t.nodes[at]
		if c < n.splitChar {
			if n.less == nilNode {
				n.less = sub
				break
			}
			at = n.less
		} else {
			if n.greater == nilNode {
				n.greater = sub
				break
			}
			at = n.greater
		}
	}
	t.nodes[sub].parent = at
	return at
}
