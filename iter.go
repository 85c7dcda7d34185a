// Copyright (c) 2026 Sebastian Waisbrot. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package rehashinghashmap

import "iter"

// Iterator is instantiated by a call to Iter. It allows iterating over a
// Map.
type Iterator[K, E any] struct {
	// cur is the cursor currently being consumed: the receiving table's
	// first, then the draining table's if a migration is in flight.
	// Since a key lives in exactly one table, chaining the two yields
	// every entry exactly once.
	cur  Cursor[K, E]
	old  Cursor[K, E]
	key  K
	elem E
}

// Iter instantiates an Iterator to explore the elements of the Map.
// Ordering is undefined. Mutating the map while an Iterator is live is
// undefined behavior, matching the backing table's own iteration
// contract; this includes the migration steps performed by write calls.
func (m *Map[K, E]) Iter() *Iterator[K, E] {
	if m == nil || m.table == nil {
		return &Iterator[K, E]{}
	}
	it := &Iterator[K, E]{cur: m.table.Iter()}
	if m.old != nil {
		it.old = m.old.Iter()
	}
	return it
}

// Next moves the iterator to the next element. Next returns false when
// the iterator is complete.
func (it *Iterator[K, E]) Next() bool {
	for it.cur != nil {
		if it.cur.Next() {
			it.key, it.elem = it.cur.Key(), it.cur.Elem()
			return true
		}
		it.cur, it.old = it.old, nil
	}
	var (
		zeroK K
		zeroE E
	)
	it.key, it.elem = zeroK, zeroE
	return false
}

// Key returns the key at the iterator's current position. This is only
// valid after a call to Next() that returns true.
func (it *Iterator[K, E]) Key() K {
	return it.key
}

// Elem returns the element at the iterator's current position. This is
// only valid after a call to Next() that returns true.
func (it *Iterator[K, E]) Elem() E {
	return it.elem
}

// All returns an iterator over key-value pairs from m.
func (m *Map[K, E]) All() iter.Seq2[K, E] {
	return func(yield func(K, E) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Key(), it.Elem()) {
				return
			}
		}
	}
}

// Keys returns an iterator over keys in m.
func (m *Map[K, E]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

// Values returns an iterator over values in m.
func (m *Map[K, E]) Values() iter.Seq[E] {
	return func(yield func(E) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Elem()) {
				return
			}
		}
	}
}
