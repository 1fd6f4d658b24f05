// Package treeiter provides a restartable cursor over a binary tree in
// in-order, pre-order, post-order or level order.
//
// Depth-first walks use an explicit stack and level order an explicit queue,
// so deep or degenerate trees do not grow the goroutine stack. An Iterator is
// not safe for concurrent use.
package treeiter

import (
	"fmt"

	"github.com/joshuapare/memkit/hooking"
)

// Mode selects the traversal order.
type Mode int

const (
	InOrder Mode = iota
	PreOrder
	PostOrder
	LevelOrder
)

func (m Mode) String() string {
	switch m {
	case InOrder:
		return "in-order"
	case PreOrder:
		return "pre-order"
	case PostOrder:
		return "post-order"
	case LevelOrder:
		return "level-order"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// HookPosVisited fires on every successful MoveNext. Item is the node's value
// and Detail the *Node.
var HookPosVisited = &hooking.HookPos{Name: "Node Visited"}

// Iterator walks the tree rooted at a fixed node.
type Iterator[T any] struct {
	hooking.HookableBase

	root    *Node[T]
	mode    Mode
	started bool
	current *Node[T]

	stack []*Node[T]
	queue []*Node[T]
	// next and last drive post-order: next is the subtree still to descend
	// into, last the node yielded most recently.
	next *Node[T]
	last *Node[T]
	// marked holds every node this iterator flagged Visited since the last Reset.
	marked []*Node[T]
}

// New returns an iterator over root in the given mode. A nil root yields
// nothing.
func New[T any](root *Node[T], mode Mode) *Iterator[T] {
	return &Iterator[T]{root: root, mode: mode}
}

// Mode returns the current traversal order.
func (it *Iterator[T]) Mode() Mode { return it.mode }

// SetTraversalMode switches the order and resets the cursor.
func (it *Iterator[T]) SetTraversalMode(mode Mode) {
	it.mode = mode
	it.Reset()
}

// Reset rewinds the cursor and clears the Visited flags it set.
func (it *Iterator[T]) Reset() {
	for _, n := range it.marked {
		n.Visited = false
	}
	it.marked = it.marked[:0]
	it.stack = it.stack[:0]
	it.queue = it.queue[:0]
	it.current = nil
	it.next = nil
	it.last = nil
	it.started = false
}

// Current returns the value at the cursor, or the zero value before the first
// MoveNext and after the walk ends.
func (it *Iterator[T]) Current() T {
	if it.current == nil {
		var zero T
		return zero
	}
	return it.current.Value
}

// CurrentNode returns the node at the cursor, or nil.
func (it *Iterator[T]) CurrentNode() *Node[T] { return it.current }

// MoveNext advances to the next node and reports whether there was one.
func (it *Iterator[T]) MoveNext() bool {
	if !it.started {
		it.start()
	}

	var next *Node[T]
	switch it.mode {
	case InOrder:
		next = it.nextInOrder()
	case PreOrder:
		next = it.nextPreOrder()
	case PostOrder:
		next = it.nextPostOrder()
	case LevelOrder:
		next = it.nextLevelOrder()
	}

	it.current = next
	if next == nil {
		return false
	}
	next.Visited = true
	it.marked = append(it.marked, next)

	if it.NumHooks() > 0 {
		it.InvokeHook(hooking.HookCtx{Domain: it, Pos: HookPosVisited, Item: next.Value, Detail: next})
	}
	return true
}

func (it *Iterator[T]) start() {
	it.started = true
	if it.root == nil {
		return
	}
	switch it.mode {
	case InOrder:
		it.pushLeft(it.root)
	case PreOrder:
		it.stack = append(it.stack, it.root)
	case PostOrder:
		it.next = it.root
	case LevelOrder:
		it.queue = append(it.queue, it.root)
	}
}

func (it *Iterator[T]) pop() *Node[T] {
	n := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	return n
}

func (it *Iterator[T]) pushLeft(n *Node[T]) {
	for ; n != nil; n = n.Left {
		it.stack = append(it.stack, n)
	}
}

func (it *Iterator[T]) nextInOrder() *Node[T] {
	if len(it.stack) == 0 {
		return nil
	}
	n := it.pop()
	it.pushLeft(n.Right)
	return n
}

func (it *Iterator[T]) nextPreOrder() *Node[T] {
	if len(it.stack) == 0 {
		return nil
	}
	n := it.pop()
	if n.Right != nil {
		it.stack = append(it.stack, n.Right)
	}
	if n.Left != nil {
		it.stack = append(it.stack, n.Left)
	}
	return n
}

// nextPostOrder yields a node once its right subtree is done, which is the
// case when it has none or that child was the last node yielded.
func (it *Iterator[T]) nextPostOrder() *Node[T] {
	for {
		if it.next != nil {
			it.pushLeft(it.next)
			it.next = nil
		}
		if len(it.stack) == 0 {
			return nil
		}
		top := it.stack[len(it.stack)-1]
		if top.Right != nil && top.Right != it.last {
			it.next = top.Right
			continue
		}
		it.last = it.pop()
		return it.last
	}
}

func (it *Iterator[T]) nextLevelOrder() *Node[T] {
	if len(it.queue) == 0 {
		return nil
	}
	n := it.queue[0]
	it.queue[0] = nil
	it.queue = it.queue[1:]
	if n.Left != nil {
		it.queue = append(it.queue, n.Left)
	}
	if n.Right != nil {
		it.queue = append(it.queue, n.Right)
	}
	return n
}
