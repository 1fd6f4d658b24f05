package treeiter

// Node is a plain binary tree node the iterator walks. It is unrelated to the
// ordered map's internal nodes.
type Node[T any] struct {
	Value  T
	Left   *Node[T]
	Right  *Node[T]
	Parent *Node[T]

	// Visited is set by an iterator when it yields the node and cleared by
	// that iterator's Reset.
	Visited bool
}

// NewNode returns a detached node holding v.
func NewNode[T any](v T) *Node[T] {
	return &Node[T]{Value: v}
}

// SetLeft attaches child as n's left subtree and returns child.
func (n *Node[T]) SetLeft(child *Node[T]) *Node[T] {
	n.Left = child
	if child != nil {
		child.Parent = n
	}
	return child
}

// SetRight attaches child as n's right subtree and returns child.
func (n *Node[T]) SetRight(child *Node[T]) *Node[T] {
	n.Right = child
	if child != nil {
		child.Parent = n
	}
	return child
}
