package rbtree

import (
	"cmp"
	"iter"
	"reflect"
	"sync"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/pkg/types"
)

// HookPosAdded fires after Put inserts a new key. Item is the key, Detail the value.
var HookPosAdded = &hooking.HookPos{Name: "Tree Added"}

// HookPosUpdated fires after Put overwrites an existing key. Item is the key,
// Detail the new value.
var HookPosUpdated = &hooking.HookPos{Name: "Tree Updated"}

// HookPosRemoved fires after Delete removes a key. Item is the key, Detail the
// removed value.
var HookPosRemoved = &hooking.HookPos{Name: "Tree Removed"}

// HookPosCleared fires after Clear. Item is the number of keys dropped.
var HookPosCleared = &hooking.HookPos{Name: "Tree Cleared"}

// Tree is an ordered map backed by a left-leaning red-black tree.
type Tree[K, V any] struct {
	hooking.HookableBase

	mu       sync.Mutex
	cmp      func(a, b K) int
	root     *node[K, V]
	count    int
	nillable bool
	closed   bool
}

// New returns an empty tree ordered by cmp, which must return a negative
// number, zero or a positive number as a sorts before, equal to or after b.
func New[K, V any](cmp func(a, b K) int) *Tree[K, V] {
	var zero K
	return &Tree[K, V]{
		cmp:      cmp,
		nillable: isNillable(reflect.TypeOf(&zero).Elem()),
	}
}

// NewOrdered returns an empty tree ordered by cmp.Compare.
func NewOrdered[K cmp.Ordered, V any]() *Tree[K, V] {
	return New[K, V](cmp.Compare[K])
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func (t *Tree[K, V]) isNil(key K) bool {
	return t.nillable && reflect.ValueOf(&key).Elem().IsNil()
}

// mustOpen panics with a Disposed error when the tree is closed. Callers hold mu.
func (t *Tree[K, V]) mustOpen() {
	if t.closed {
		panic(types.Disposed("rbtree"))
	}
}

// Put inserts key or overwrites its value.
func (t *Tree[K, V]) Put(key K, value V) error {
	if t.isNil(key) {
		return types.Errorf(types.ErrKindInvalidArgument, "rbtree: nil key")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return types.Disposed("rbtree")
	}
	var res putResult[V]
	t.root = t.put(t.root, key, value, &res)
	t.root.color = black
	if res.added {
		t.count++
	}
	t.mu.Unlock()

	if t.NumHooks() > 0 {
		pos := HookPosUpdated
		if res.added {
			pos = HookPosAdded
		}
		t.InvokeHook(hooking.HookCtx{Domain: t, Pos: pos, Item: key, Detail: value})
	}
	return nil
}

// Get returns the value stored under key, or an ErrNotFound error.
func (t *Tree[K, V]) Get(key K) (V, error) {
	var zero V
	if t.isNil(key) {
		return zero, types.Errorf(types.ErrKindInvalidArgument, "rbtree: nil key")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return zero, types.Disposed("rbtree")
	}
	n := t.find(key)
	if n == nil {
		return zero, types.Errorf(types.ErrKindNotFound, "rbtree: key %v not found", key)
	}
	return n.value, nil
}

// TryGet returns the value stored under key and whether it was present.
// A nil key is never present.
func (t *Tree[K, V]) TryGet(key K) (V, bool) {
	var zero V
	if t.isNil(key) {
		return zero, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	n := t.find(key)
	if n == nil {
		return zero, false
	}
	return n.value, true
}

// ContainsKey reports whether key is present.
func (t *Tree[K, V]) ContainsKey(key K) bool {
	_, ok := t.TryGet(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (t *Tree[K, V]) Delete(key K) (bool, error) {
	if t.isNil(key) {
		return false, types.Errorf(types.ErrKindInvalidArgument, "rbtree: nil key")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false, types.Disposed("rbtree")
	}
	n := t.find(key)
	if n == nil {
		t.mu.Unlock()
		return false, nil
	}
	removed := n.value

	if !isRed(t.root.left) && !isRed(t.root.right) {
		t.root.color = red
	}
	t.root = t.del(t.root, key)
	if t.root != nil {
		t.root.color = black
	}
	t.count--
	t.mu.Unlock()

	if t.NumHooks() > 0 {
		t.InvokeHook(hooking.HookCtx{Domain: t, Pos: HookPosRemoved, Item: key, Detail: removed})
	}
	return true, nil
}

// Min returns the smallest key, or an ErrNotFound error on an empty tree.
func (t *Tree[K, V]) Min() (K, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero K
	if t.closed {
		return zero, types.Disposed("rbtree")
	}
	if t.root == nil {
		return zero, types.Errorf(types.ErrKindNotFound, "rbtree: min of empty tree")
	}
	return minNode(t.root).key, nil
}

// Max returns the largest key, or an ErrNotFound error on an empty tree.
func (t *Tree[K, V]) Max() (K, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero K
	if t.closed {
		return zero, types.Disposed("rbtree")
	}
	if t.root == nil {
		return zero, types.Errorf(types.ErrKindNotFound, "rbtree: max of empty tree")
	}
	return maxNode(t.root).key, nil
}

// Floor returns the largest key less than or equal to key.
func (t *Tree[K, V]) Floor(key K) (K, V, bool) {
	var (
		zk K
		zv V
	)
	if t.isNil(key) {
		return zk, zv, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	var best *node[K, V]
	for n := t.root; n != nil; {
		switch c := t.cmp(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			best = n
			n = n.right
		default:
			return n.key, n.value, true
		}
	}
	if best == nil {
		return zk, zv, false
	}
	return best.key, best.value, true
}

// Ceiling returns the smallest key greater than or equal to key.
func (t *Tree[K, V]) Ceiling(key K) (K, V, bool) {
	var (
		zk K
		zv V
	)
	if t.isNil(key) {
		return zk, zv, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	var best *node[K, V]
	for n := t.root; n != nil; {
		switch c := t.cmp(key, n.key); {
		case c < 0:
			best = n
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n.key, n.value, true
		}
	}
	if best == nil {
		return zk, zv, false
	}
	return best.key, best.value, true
}

// Len returns the number of keys.
func (t *Tree[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	return t.count
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[K, V]) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	return height(t.root)
}

// Keys returns every key in ascending order.
func (t *Tree[K, V]) Keys() []K {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	keys := make([]K, 0, t.count)
	inOrder(t.root, func(n *node[K, V]) { keys = append(keys, n.key) })
	return keys
}

// Values returns every value in ascending key order.
func (t *Tree[K, V]) Values() []V {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	values := make([]V, 0, t.count)
	inOrder(t.root, func(n *node[K, V]) { values = append(values, n.value) })
	return values
}

type pair[K, V any] struct {
	key   K
	value V
}

func (t *Tree[K, V]) snapshot(keep func(K) bool) []pair[K, V] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mustOpen()
	out := make([]pair[K, V], 0, t.count)
	inOrder(t.root, func(n *node[K, V]) {
		if keep == nil || keep(n.key) {
			out = append(out, pair[K, V]{n.key, n.value})
		}
	})
	return out
}

// All returns an iterator over a snapshot of the entries in ascending key
// order. Each call to the returned sequence takes a fresh snapshot.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, p := range t.snapshot(nil) {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

// Range calls fn for every entry with lo <= key <= hi in ascending order,
// stopping early when fn returns false.
func (t *Tree[K, V]) Range(lo, hi K, fn func(K, V) bool) {
	within := func(k K) bool {
		return t.cmp(k, lo) >= 0 && t.cmp(k, hi) <= 0
	}
	for _, p := range t.snapshot(within) {
		if !fn(p.key, p.value) {
			return
		}
	}
}

// Clear removes every key.
func (t *Tree[K, V]) Clear() {
	t.mu.Lock()
	t.mustOpen()
	n := t.count
	t.root = nil
	t.count = 0
	t.mu.Unlock()

	if t.NumHooks() > 0 {
		t.InvokeHook(hooking.HookCtx{Domain: t, Pos: HookPosCleared, Item: n})
	}
}

// Close drops every key and makes the tree unusable.
func (t *Tree[K, V]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = nil
	t.count = 0
	t.closed = true
	return nil
}
