package tst

import "fmt"

// Validate checks the structural invariants of the trie and returns an error
// wrapping ErrCorrupt describing the first violation found.
//
// It visits every node, so it costs as much as a full walk plus the length
// of every stored key.
func (t *Trie[V]) Validate() error {
	type frame struct {
		id     nodeID
		parent nodeID
		// exclusive byte bounds for this node's level
		lo, hi int
		prefix string
	}

	if t.root != nilNode && t.nodes[t.root].parent != nilNode {
		return fmt.Errorf("%w: root %d has parent %d", ErrCorrupt, t.root, t.nodes[t.root].parent)
	}

	var (
		visited int
		values  int
		limit   = t.nodeCount()
		stack   []frame
	)
	if t.root != nilNode {
		stack = append(stack, frame{id: t.root, lo: -1, hi: 256})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > limit {
			return fmt.Errorf("%w: more reachable nodes than allocated (%d), links form a cycle", ErrCorrupt, limit)
		}

		n := &t.nodes[f.id]
		c := int(n.splitChar)
		switch {
		case n.parent != f.parent:
			return fmt.Errorf("%w: node %d has parent %d, reached from %d", ErrCorrupt, f.id, n.parent, f.parent)
		case c <= f.lo || c >= f.hi:
			return fmt.Errorf("%w: node %d byte %#x outside (%d, %d)", ErrCorrupt, f.id, c, f.lo, f.hi)
		case n.hasValue != (n.storedKey != ""):
			return fmt.Errorf("%w: node %d value flag %t with stored key %q", ErrCorrupt, f.id, n.hasValue, n.storedKey)
		case !n.hasValue && n.equal == nilNode:
			return fmt.Errorf("%w: node %d neither holds a value nor continues a key", ErrCorrupt, f.id)
		}

		path := f.prefix + string([]byte{n.splitChar})
		if n.hasValue {
			values++
			if n.storedKey != path {
				return fmt.Errorf("%w: node %d stores key %q but sits at %q", ErrCorrupt, f.id, n.storedKey, path)
			}
		}

		if n.less != nilNode {
			stack = append(stack, frame{id: n.less, parent: f.id, lo: f.lo, hi: c, prefix: f.prefix})
		}
		if n.greater != nilNode {
			stack = append(stack, frame{id: n.greater, parent: f.id, lo: c, hi: f.hi, prefix: f.prefix})
		}
		if n.equal != nilNode {
			stack = append(stack, frame{id: n.equal, parent: f.id, lo: -1, hi: 256, prefix: path})
		}
	}

	if visited != limit {
		return fmt.Errorf("%w: %d nodes reachable, %d allocated", ErrCorrupt, visited, limit)
	}
	if values != t.size {
		return fmt.Errorf("%w: %d values found, size is %d", ErrCorrupt, values, t.size)
	}
	return nil
}
