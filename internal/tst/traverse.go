package tst

// WalkFunc is the type of the function called for each key in the trie.
// If the function returns false, the walk stops.
//
// The function may read values and call SetValue, but it must not insert
// into, remove from or destroy the trie being walked.
type WalkFunc[V any] func(t *Trie[V], pos Position, key string) bool

// Walk calls fn for every key in the trie. Keys are visited in a fixed order
// (a node, then its equal subtree, then less, then greater) which is
// deterministic but not sorted.
//
// It returns true if every key was visited, including when the trie is
// empty, and false if fn stopped the walk.
func (t *Trie[V]) Walk(fn WalkFunc[V]) bool {
	return t.walkFrom(t.root, fn)
}

// WalkPrefix is like Walk but only visits keys starting with prefix.
func (t *Trie[V]) WalkPrefix(prefix string, fn WalkFunc[V]) bool {
	if prefix == "" {
		return t.Walk(fn)
	}
	id := t.locate(prefix)
	if id == nilNode {
		return true
	}

	t.walking.Add(1)
	defer t.walking.Add(-1)

	if n := &t.nodes[id]; n.hasValue {
		if !fn(t, t.position(id), n.storedKey) {
			return false
		}
	}
	return t.walkFrom(t.nodes[id].equal, fn)
}

// KeysWithPrefix returns all keys in the trie that have the given prefix
func (t *Trie[V]) KeysWithPrefix(prefix string) []string {
	var results []string
	t.WalkPrefix(prefix, func(_ *Trie[V], _ Position, key string) bool {
		results = append(results, key)
		return true
	})
	return results
}

// walkFrom visits the subtree rooted at start with an explicit stack, so
// deep tries do not grow the goroutine stack.
func (t *Trie[V]) walkFrom(start nodeID, fn WalkFunc[V]) bool {
	if start == nilNode {
		return true
	}
	t.walking.Add(1)
	defer t.walking.Add(-1)

	stack := []nodeID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n := &t.nodes[id]; n.hasValue {
			if !fn(t, t.position(id), n.storedKey) {
				return false
			}
		}

		// pushed in reverse of the visiting order
		n := &t.nodes[id]
		if n.greater != nilNode {
			stack = append(stack, n.greater)
		}
		if n.less != nilNode {
			stack = append(stack, n.less)
		}
		if n.equal != nilNode {
			stack = append(stack, n.equal)
		}
	}
	return true
}

// Destroy empties the trie. If dispose is not nil it is called once for
// every value still in the trie, children before their parents. The trie
// can be reused afterwards.
func (t *Trie[V]) Destroy(dispose func(V)) {
	t.mustNotWalk("destroy")

	if dispose != nil && t.root != nilNode {
		// dispose runs under the same guard as a walk visitor
		t.walking.Add(1)
		defer t.walking.Add(-1)

		type frame struct {
			id       nodeID
			expanded bool
		}
		stack := []frame{{id: t.root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n := &t.nodes[f.id]
			if f.expanded {
				if n.hasValue {
					dispose(n.value)
				}
				continue
			}
			stack = append(stack, frame{id: f.id, expanded: true})
			if n.greater != nilNode {
				stack = append(stack, frame{id: n.greater})
			}
			if n.less != nilNode {
				stack = append(stack, frame{id: n.less})
			}
			if n.equal != nilNode {
				stack = append(stack, frame{id: n.equal})
			}
		}
	}

	t.nodes = make([]node[V], 1, 64)
	t.free = nil
	t.root = nilNode
	t.size = 0
	t.epoch++
}
