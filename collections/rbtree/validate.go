package rbtree

import "fmt"

// Validate walks the whole tree and returns the first structural violation
// it finds, or nil. It is O(n) and meant for tests and debugging.
func (t *Tree[K, V]) Validate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()

	if isRed(t.root) {
		return fmt.Errorf("rbtree: root is red")
	}
	n, _, err := t.check(t.root, nil, nil)
	if err != nil {
		return err
	}
	if n != t.count {
		return fmt.Errorf("rbtree: count %d but %d nodes reachable", t.count, n)
	}
	return nil
}

// check returns the node count and black height of h, verifying that every
// key lies strictly between lo and hi.
func (t *Tree[K, V]) check(h *node[K, V], lo, hi *K) (int, int, error) {
	if h == nil {
		return 0, 1, nil
	}
	if lo != nil && t.cmp(h.key, *lo) <= 0 {
		return 0, 0, fmt.Errorf("rbtree: key %v not above %v", h.key, *lo)
	}
	if hi != nil && t.cmp(h.key, *hi) >= 0 {
		return 0, 0, fmt.Errorf("rbtree: key %v not below %v", h.key, *hi)
	}
	if isRed(h.right) {
		return 0, 0, fmt.Errorf("rbtree: right-leaning red link at %v", h.key)
	}
	if isRed(h) && isRed(h.left) {
		return 0, 0, fmt.Errorf("rbtree: consecutive red links at %v", h.key)
	}

	ln, lb, err := t.check(h.left, lo, &h.key)
	if err != nil {
		return 0, 0, err
	}
	rn, rb, err := t.check(h.right, &h.key, hi)
	if err != nil {
		return 0, 0, err
	}
	if lb != rb {
		return 0, 0, fmt.Errorf("rbtree: black height %d != %d below %v", lb, rb, h.key)
	}
	if !isRed(h) {
		lb++
	}
	return ln + rn + 1, lb, nil
}
