package treeiter

// The helpers below always Reset first and leave the cursor wherever they
// stopped, so they cannot be mixed with a walk in progress.

// ToList returns every value in traversal order.
func (it *Iterator[T]) ToList() []T {
	it.Reset()
	var out []T
	for it.MoveNext() {
		out = append(out, it.Current())
	}
	return out
}

// ForEach calls fn for every value in traversal order.
func (it *Iterator[T]) ForEach(fn func(T)) {
	it.Reset()
	for it.MoveNext() {
		fn(it.Current())
	}
}

// Any reports whether pred holds for some value, stopping at the first match.
func (it *Iterator[T]) Any(pred func(T) bool) bool {
	_, ok := it.FirstOrDefault(pred)
	return ok
}

// FirstOrDefault returns the first value satisfying pred in traversal order,
// or the zero value and false.
func (it *Iterator[T]) FirstOrDefault(pred func(T) bool) (T, bool) {
	it.Reset()
	for it.MoveNext() {
		if v := it.Current(); pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Count returns the number of nodes in the tree.
func (it *Iterator[T]) Count() int {
	it.Reset()
	n := 0
	for it.MoveNext() {
		n++
	}
	return n
}
