package rbtree

type color bool

const (
	red   color = true
	black color = false
)

type node[K, V any] struct {
	key   K
	value V
	left  *node[K, V]
	right *node[K, V]
	color color
}

func isRed[K, V any](n *node[K, V]) bool {
	return n != nil && n.color == red
}

func rotateLeft[K, V any](h *node[K, V]) *node[K, V] {
	x := h.right
	h.right = x.left
	x.left = h
	x.color = h.color
	h.color = red
	return x
}

func rotateRight[K, V any](h *node[K, V]) *node[K, V] {
	x := h.left
	h.left = x.right
	x.right = h
	x.color = h.color
	h.color = red
	return x
}

// flipColors pushes a red link up (insert) or down (delete) one level.
func flipColors[K, V any](h *node[K, V]) {
	h.color = !h.color
	h.left.color = !h.left.color
	h.right.color = !h.right.color
}

// fixUp restores the left-leaning, no-double-red shape at h.
func fixUp[K, V any](h *node[K, V]) *node[K, V] {
	if isRed(h.right) && !isRed(h.left) {
		h = rotateLeft(h)
	}
	if isRed(h.left) && isRed(h.left.left) {
		h = rotateRight(h)
	}
	if isRed(h.left) && isRed(h.right) {
		flipColors(h)
	}
	return h
}

// moveRedLeft makes h.left or one of its children red, assuming h is red
// and both h.left and h.left.left are black.
func moveRedLeft[K, V any](h *node[K, V]) *node[K, V] {
	flipColors(h)
	if isRed(h.right.left) {
		h.right = rotateRight(h.right)
		h = rotateLeft(h)
		flipColors(h)
	}
	return h
}

// moveRedRight makes h.right or one of its children red, assuming h is red
// and both h.right and h.right.left are black.
func moveRedRight[K, V any](h *node[K, V]) *node[K, V] {
	flipColors(h)
	if isRed(h.left.left) {
		h = rotateRight(h)
		flipColors(h)
	}
	return h
}

// putResult reports what a put did so the caller can pick the hook.
type putResult[V any] struct {
	added bool
	old   V
}

func (t *Tree[K, V]) put(h *node[K, V], key K, value V, res *putResult[V]) *node[K, V] {
	if h == nil {
		res.added = true
		return &node[K, V]{key: key, value: value, color: red}
	}

	switch c := t.cmp(key, h.key); {
	case c < 0:
		h.left = t.put(h.left, key, value, res)
	case c > 0:
		h.right = t.put(h.right, key, value, res)
	default:
		res.old = h.value
		h.value = value
	}

	return fixUp(h)
}

func minNode[K, V any](h *node[K, V]) *node[K, V] {
	for h.left != nil {
		h = h.left
	}
	return h
}

func maxNode[K, V any](h *node[K, V]) *node[K, V] {
	for h.right != nil {
		h = h.right
	}
	return h
}

func deleteMin[K, V any](h *node[K, V]) *node[K, V] {
	if h.left == nil {
		return nil
	}
	if !isRed(h.left) && !isRed(h.left.left) {
		h = moveRedLeft(h)
	}
	h.left = deleteMin(h.left)
	return fixUp(h)
}

// del removes key from the subtree at h. key must be present.
func (t *Tree[K, V]) del(h *node[K, V], key K) *node[K, V] {
	if t.cmp(key, h.key) < 0 {
		if !isRed(h.left) && !isRed(h.left.left) {
			h = moveRedLeft(h)
		}
		h.left = t.del(h.left, key)
		return fixUp(h)
	}

	if isRed(h.left) {
		h = rotateRight(h)
	}
	if t.cmp(key, h.key) == 0 && h.right == nil {
		return nil
	}
	if !isRed(h.right) && !isRed(h.right.left) {
		h = moveRedRight(h)
	}
	if t.cmp(key, h.key) == 0 {
		succ := minNode(h.right)
		h.key = succ.key
		h.value = succ.value
		h.right = deleteMin(h.right)
	} else {
		h.right = t.del(h.right, key)
	}
	return fixUp(h)
}

// find is the iterative lookup every read goes through.
func (t *Tree[K, V]) find(key K) *node[K, V] {
	n := t.root
	for n != nil {
		switch c := t.cmp(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// inOrder appends every node of h in ascending key order using an explicit
// stack.
func inOrder[K, V any](h *node[K, V], visit func(*node[K, V])) {
	var stack []*node[K, V]
	for n := h; n != nil || len(stack) > 0; {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		n = n.right
	}
}

func height[K, V any](h *node[K, V]) int {
	if h == nil {
		return 0
	}
	return 1 + max(height(h.left), height(h.right))
}
