// Copyright (c) 2026 Sebastian Waisbrot. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

// Package rehashinghashmap provides the Map type, a hash map that never
// rehashes all of its entries at once. A plain hash map reclaims the
// memory left behind by many deletions with a shrink-to-fit that rehashes
// every remaining entry in one O(n) pass; Map instead allocates a smaller
// receiving table and moves entries into it a few at a time, inside the
// caller's own subsequent write calls. The price is a second live table
// (and a little work per write) while the move is in flight; the gain is
// that no single call ever pauses for the whole table.
//
// Map sits on top of an ordinary single hash table, described by the
// Table interface. github.com/aristanetworks/gomap is the default; any
// hash map with insert/get/remove/len/iterate and a capacity hint can be
// plugged in through NewCustom.
//
// Map is not safe for concurrent use. Callers that share a Map across
// goroutines must serialize every call, reads included: reads route
// between tables using state that writes move underneath them.
package rehashinghashmap

// A Map is in one of two states. Stable: table is the only live table and
// old is nil. Migrating: old still holds entries that have not been moved
// yet, table is the smaller receiving table, and cursor marks how far the
// drain has advanced through old. Writes drive the drain: each write call
// first performs Policy.StepsPerWrite migration steps, each moving one
// live entry from old to table, and then does its own work. Writing a key
// that still lives in old pulls it into table immediately, whatever the
// cursor position, so a key is only ever in one table at a time. When the
// cursor runs out, or old runs dry early, the state collapses back to
// Stable and old is discarded.

import "hash/maphash"

// Policy decides how much migration work each call performs.
type Policy struct {
	// StepsPerWrite is the number of migration steps performed at the
	// start of each write call (Set, Update, Delete). Values below zero
	// are treated as zero. The default of one bounds the extra work per
	// write to O(1); the migration then takes as many write calls as
	// the draining table had entries.
	StepsPerWrite int

	// MigrateOnRead additionally performs steps at the start of Get
	// calls, trading read latency for faster convergence.
	MigrateOnRead bool
}

// DefaultPolicy returns the policy new maps start with: one migration
// step per write call, none on reads.
func DefaultPolicy() Policy {
	return Policy{StepsPerWrite: 1}
}

// Map implements a hashmap whose shrink-to-fit is spread over many calls.
// The zero Map is not ready for use; construct with New, NewHint,
// NewComparable or NewCustom.
type Map[K, E any] struct {
	// table is the receiving table. All writes land here and, outside a
	// migration, it is the only table.
	table Table[K, E]

	// old is the table being drained. It is non-nil exactly while a
	// migration is in flight; cursor is its drain position and is nil
	// otherwise.
	old    Table[K, E]
	cursor Cursor[K, E]

	newTable TableMaker[K, E]
	policy   Policy
}

// KeyElem contains a Key and Elem.
type KeyElem[K, E any] struct {
	Key  K
	Elem E
}

// New instantiates a new Map initialized with any KeyElems passed, backed
// by gomap. The equal func must return true for two values of K that are
// equal and false otherwise. The hash func should return a uniformly
// distributed hash value. If equal(a, b) then hash(a) == hash(b). The
// hash function is passed a [hash/maphash.Seed], this is meant to be used
// with functions and types in the [hash/maphash] package, though can be
// ignored.
func New[K, E any](
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64,
	kes ...KeyElem[K, E]) *Map[K, E] {

	m := NewCustom(len(kes), GomapTable[K, E](equal, hash))
	for _, ke := range kes {
		m.Set(ke.Key, ke.Elem)
	}
	return m
}

// NewHint instantiates a new Map with a hint as to how many elements will
// be inserted. See [New] for discussion of the equal and hash arguments.
func NewHint[K, E any](
	hint int,
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64) *Map[K, E] {

	return NewCustom(hint, GomapTable[K, E](equal, hash))
}

// NewComparable instantiates a new Map backed by Go's builtin map. No
// equal or hash functions are needed; K's == is used.
func NewComparable[K comparable, E any](hint int) *Map[K, E] {
	return NewCustom(hint, MapTable[K, E]())
}

// NewCustom instantiates a new Map on top of a caller-supplied backing
// table. newTable is called once here and once per shrink request, to
// allocate the receiving table.
func NewCustom[K, E any](hint int, newTable TableMaker[K, E]) *Map[K, E] {
	return &Map[K, E]{
		table:    newTable(hint),
		newTable: newTable,
		policy:   DefaultPolicy(),
	}
}

// Policy returns the map's current migration policy.
func (m *Map[K, E]) Policy() Policy {
	return m.policy
}

// SetPolicy replaces the map's migration policy. It may be called at any
// time, including mid-migration; it only changes how fast subsequent
// calls drain.
func (m *Map[K, E]) SetPolicy(p Policy) {
	if p.StepsPerWrite < 0 {
		p.StepsPerWrite = 0
	}
	m.policy = p
}

// Rehashing reports whether a shrink migration is in flight.
func (m *Map[K, E]) Rehashing() bool {
	return m != nil && m.old != nil
}

// Len returns the count of occupied elements in m. While migrating this
// is the live total across both tables; either way it is O(1).
func (m *Map[K, E]) Len() int {
	if m == nil || m.table == nil {
		return 0
	}
	n := m.table.Len()
	if m.old != nil {
		n += m.old.Len()
	}
	return n
}

// Cap returns the receiving table's capacity estimate. See Table.Cap for
// what "estimate" means here.
func (m *Map[K, E]) Cap() int {
	if m == nil || m.table == nil {
		return 0
	}
	return m.table.Cap()
}

// Get returns the element associated with key and true if that key is in
// the Map, otherwise it returns the zero value of E and false. The
// receiving table is checked first: recently written entries concentrate
// there. Get performs no migration work unless Policy.MigrateOnRead is
// set.
func (m *Map[K, E]) Get(key K) (E, bool) {
	if m == nil || m.table == nil {
		var zero E
		return zero, false
	}
	if m.policy.MigrateOnRead {
		m.advance(m.policy.StepsPerWrite)
	}
	return m.lookup(key)
}

func (m *Map[K, E]) lookup(key K) (E, bool) {
	if e, ok := m.table.Get(key); ok {
		return e, true
	}
	if m.old != nil {
		return m.old.Get(key)
	}
	var zero E
	return zero, false
}

// Set associates key with elem in m. It returns the element previously
// associated with key, if any. While migrating, a key that still lives in
// the draining table is pulled into the receiving table right here,
// independent of the cursor: an explicit write never leaves its key
// behind in the old table.
func (m *Map[K, E]) Set(key K, elem E) (prev E, replaced bool) {
	if m == nil || m.table == nil {
		// We have to panic here rather than initialize an empty map
		// because we need the user to pass in a table constructor.
		panic("Set called on nil map")
	}
	m.advance(m.policy.StepsPerWrite)
	return m.put(key, elem)
}

func (m *Map[K, E]) put(key K, elem E) (prev E, replaced bool) {
	if m.old != nil {
		if e, ok := m.old.Delete(key); ok {
			// The key was still in the draining table: this write
			// doubles as its migration step.
			m.table.Set(key, elem)
			if m.old.Len() == 0 {
				m.collapse()
			}
			return e, true
		}
	}
	return m.table.Set(key, elem)
}

// Update associates key with f(cur), where cur is the element currently
// associated with key, or the zero value of E if there is none. It counts
// as a single write call for the Policy.
func (m *Map[K, E]) Update(key K, f func(cur E) E) {
	if m == nil || m.table == nil {
		panic("Update called on nil map")
	}
	m.advance(m.policy.StepsPerWrite)
	cur, _ := m.lookup(key)
	m.put(key, f(cur))
}

// Delete removes key and its associated element from the map, returning
// the removed element, if any.
func (m *Map[K, E]) Delete(key K) (E, bool) {
	if m == nil || m.table == nil {
		var zero E
		return zero, false
	}
	m.advance(m.policy.StepsPerWrite)
	if e, ok := m.table.Delete(key); ok {
		return e, true
	}
	if m.old != nil {
		if e, ok := m.old.Delete(key); ok {
			// Deleting straight out of the draining table leaves no
			// tombstone for the cursor to trip on: the cursor simply
			// never sees the entry.
			if m.old.Len() == 0 {
				m.collapse()
			}
			return e, true
		}
	}
	var zero E
	return zero, false
}

// ShrinkToFit requests that the map be rehashed down to fit its current
// number of entries. The rehash does not happen here: a receiving table
// sized for Len() entries is allocated and subsequent calls move entries
// into it per the Policy. Requesting a shrink while one is already in
// flight does nothing, and neither does requesting one when there is no
// capacity to reclaim; in particular a fresh empty map never allocates a
// second table.
func (m *Map[K, E]) ShrinkToFit() {
	if m == nil || m.table == nil || m.old != nil {
		return
	}
	n := m.table.Len()
	if m.table.Cap() <= n {
		return
	}
	old := m.table
	m.table = m.newTable(n)
	m.old = old
	m.cursor = old.Iter()
	if n == 0 {
		// Nothing to drain; complete immediately.
		m.collapse()
	}
}

// Rehash performs a single migration step by hand, independent of the
// Policy. It is a no-op when no migration is in flight.
func (m *Map[K, E]) Rehash() {
	if m == nil || m.table == nil {
		return
	}
	m.step()
}

// Clear deletes all keys from m. Any in-flight migration ends; the
// receiving table keeps its allocation.
func (m *Map[K, E]) Clear() {
	if m == nil || m.table == nil {
		return
	}
	if m.old != nil {
		m.collapse()
	}
	m.table.Clear()
}

func (m *Map[K, E]) advance(steps int) {
	for i := 0; i < steps && m.old != nil; i++ {
		m.step()
	}
}

// step moves the next live entry at or after the cursor from old into the
// receiving table. Entries deleted from old since the migration began are
// never yielded by the cursor, so runs of removed entries cost nothing.
func (m *Map[K, E]) step() {
	if m.old == nil {
		return
	}
	if !m.cursor.Next() {
		m.collapse()
		return
	}
	key, elem := m.cursor.Key(), m.cursor.Elem()
	m.old.Delete(key)
	m.table.Set(key, elem)
	if m.old.Len() == 0 {
		m.collapse()
	}
}

// collapse ends the migration: the receiving table becomes the sole table
// and the drained one is discarded.
func (m *Map[K, E]) collapse() {
	m.cursor.Stop()
	m.cursor = nil
	m.old = nil
}
