// Copyright (c) 2026 Sebastian Waisbrot. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package rehashinghashmap

import (
	"hash/maphash"
	"iter"
	"maps"

	"github.com/aristanetworks/gomap"
)

// Cursor is a resumable position over a Table's entries. The entry at the
// current position is available through Key and Elem after a call to Next
// that returned true. A cursor only moves forward: every entry live when
// the cursor was opened is yielded at most once, entries deleted from the
// table before the cursor reaches them are not yielded at all, and
// deleting entries the cursor has already yielded does not disturb it.
// Inserting into a table with an open cursor is not supported.
type Cursor[K, E any] interface {
	Next() bool
	Key() K
	Elem() E
	// Stop releases anything the cursor holds. It is safe to call more
	// than once, and after Next has returned false.
	Stop()
}

// Table is the contract a backing hash table must satisfy to sit under a
// Map. It is deliberately small: a mapping with unique keys, no ordering
// guarantee, and a resumable iteration handle.
type Table[K, E any] interface {
	// Len returns the number of live entries.
	Len() int
	// Cap returns a conservative estimate of the table's allocated
	// capacity: at least the hint it was created with and at least the
	// largest Len it has reached. Shrinking only ever starts when Cap
	// exceeds Len, so an estimate that never overstates reclaimable
	// space is enough.
	Cap() int
	Get(key K) (E, bool)
	Set(key K, elem E) (prev E, replaced bool)
	Delete(key K) (prev E, deleted bool)
	Iter() Cursor[K, E]
	// Clear removes every entry, retaining the allocation.
	Clear()
}

// TableMaker allocates a Table sized for about hint entries.
type TableMaker[K, E any] func(hint int) Table[K, E]

// GomapTable returns a TableMaker backed by
// [github.com/aristanetworks/gomap]. This is the default backing table
// for maps built with New and NewHint. The equal and hash arguments
// follow the gomap contract; see [New].
func GomapTable[K, E any](
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64) TableMaker[K, E] {

	return func(hint int) Table[K, E] {
		return &gomapTable[K, E]{
			m:        gomap.NewHint[K, E](hint, equal, hash),
			capacity: hint,
		}
	}
}

type gomapTable[K, E any] struct {
	m *gomap.Map[K, E]
	// capacity is the creation hint raised to the high-water Len; gomap
	// does not expose its bucket count.
	capacity int
}

func (t *gomapTable[K, E]) Len() int { return t.m.Len() }

func (t *gomapTable[K, E]) Cap() int { return t.capacity }

func (t *gomapTable[K, E]) Get(key K) (E, bool) { return t.m.Get(key) }

func (t *gomapTable[K, E]) Set(key K, elem E) (E, bool) {
	prev, replaced := t.m.Get(key)
	t.m.Set(key, elem)
	if n := t.m.Len(); n > t.capacity {
		t.capacity = n
	}
	return prev, replaced
}

func (t *gomapTable[K, E]) Delete(key K) (E, bool) {
	prev, ok := t.m.Get(key)
	if ok {
		t.m.Delete(key)
	}
	return prev, ok
}

func (t *gomapTable[K, E]) Iter() Cursor[K, E] {
	return gomapCursor[K, E]{t.m.Iter()}
}

func (t *gomapTable[K, E]) Clear() { t.m.Clear() }

// gomapCursor adapts gomap's iterator handle, which already has the right
// Next/Key/Elem shape and skips entries deleted underneath it.
type gomapCursor[K, E any] struct {
	*gomap.Iterator[K, E]
}

func (gomapCursor[K, E]) Stop() {}

// MapTable returns a TableMaker backed by Go's builtin map, usable
// whenever K is comparable.
func MapTable[K comparable, E any]() TableMaker[K, E] {
	return func(hint int) Table[K, E] {
		return &builtinTable[K, E]{
			m:        make(map[K]E, hint),
			capacity: hint,
		}
	}
}

type builtinTable[K comparable, E any] struct {
	m        map[K]E
	capacity int
}

func (t *builtinTable[K, E]) Len() int { return len(t.m) }

func (t *builtinTable[K, E]) Cap() int { return t.capacity }

func (t *builtinTable[K, E]) Get(key K) (E, bool) {
	e, ok := t.m[key]
	return e, ok
}

func (t *builtinTable[K, E]) Set(key K, elem E) (E, bool) {
	prev, replaced := t.m[key]
	t.m[key] = elem
	if n := len(t.m); n > t.capacity {
		t.capacity = n
	}
	return prev, replaced
}

func (t *builtinTable[K, E]) Delete(key K) (E, bool) {
	prev, ok := t.m[key]
	if ok {
		delete(t.m, key)
	}
	return prev, ok
}

func (t *builtinTable[K, E]) Iter() Cursor[K, E] {
	next, stop := iter.Pull2(maps.All(t.m))
	return &pullCursor[K, E]{next: next, stop: stop}
}

func (t *builtinTable[K, E]) Clear() { clear(t.m) }

// pullCursor drives a paused range loop over the builtin map. Deleting
// entries between calls to Next follows the language's usual rule for
// deletion during map iteration: entries removed before they are reached
// are not produced.
type pullCursor[K, E any] struct {
	next func() (K, E, bool)
	stop func()
	key  K
	elem E
}

func (c *pullCursor[K, E]) Next() bool {
	k, e, ok := c.next()
	if !ok {
		c.stop()
		return false
	}
	c.key, c.elem = k, e
	return true
}

func (c *pullCursor[K, E]) Key() K { return c.key }

func (c *pullCursor[K, E]) Elem() E { return c.elem }

func (c *pullCursor[K, E]) Stop() { c.stop() }
