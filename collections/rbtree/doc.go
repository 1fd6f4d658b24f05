// Package rbtree implements an ordered map on a left-leaning red-black tree.
//
// Keys are ordered by an injected comparator. Lookups are iterative O(log n)
// descents; Put and Delete are recursive and restore the LLRB invariants on
// the way back up:
//
//   - the root is black
//   - red links lean left
//   - no node has two red links in a row
//   - every root-to-leaf path crosses the same number of black links
//
// Every method takes the tree's mutex, reads included. Keys, Values, All and
// Range work on a snapshot taken under the lock, so callbacks may use the
// tree freely.
package rbtree
