// Copyright 2025 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package robinhood is a Go implementation of a Robin Hood hash table. If
// you're not familiar with open-addressing see
// https://en.wikipedia.org/wiki/Open_addressing; for Robin Hood hashing
// specifically see https://en.wikipedia.org/wiki/Hash_table#Robin_Hood_hashing.
//
// # Robin Hood hashing
//
// The problem with plain linear probing is that an unlucky key can end up a
// long way from the bucket its hash selected, and lookups for it (or for
// absent keys that share its bucket) have to wade through the whole run.
// Robin Hood hashing keeps those runs fair. Each occupied slot records its
// DIB (distance to initial bucket): the number of probe steps from the
// key's ideal bucket, hash & (N-1), to the slot it actually occupies.
// During insertion the incoming entry walks its probe sequence and, on
// meeting a resident that sits closer to its own ideal bucket than the
// incoming entry currently is (resident DIB < incoming DIB), the two swap:
// the rich resident is evicted and carries on down the sequence looking for
// a new home. Taking from slots that have it good and giving to the probe
// sequence's poor keeps the variance of probe lengths low, which lets the
// table run fuller than a plain linear-probing table before resizing pays
// off.
//
// The same invariant gives lookups an early exit: if the walk reaches a
// resident whose DIB is smaller than the current probe distance, the
// searched-for key cannot be in the table, because inserting it would have
// displaced that resident.
//
// # Deletion
//
// Deletion uses backward shifting rather than tombstones. After the removed
// slot is vacated, each following slot in the probe sequence shifts back by
// one position with its DIB decremented, stopping at the first empty slot
// or at a resident that is already in its ideal bucket (DIB 0). Deletion
// therefore lowers the average DIB and the table never accumulates
// tombstone debris that would degrade probing.
//
// # Resizing
//
// There is no incremental rehashing. Once an insert would bring the table
// to 60% full, a new slot array of double the size is allocated and every
// entry is migrated using its stored hash (keys are never re-hashed). The
// table only ever grows; a caller wanting to reclaim space should build a
// fresh map from All.
//
// # Usage
//
// A Map hashes keys with the runtime's hasher for comparable types by
// default; WithHash substitutes any 64-bit digest function. The slot memory
// is obtained through an Allocator which can be substituted with
// WithAllocator, in which case Close must be called to return the slot
// memory when the map is discarded.
//
// A Map is NOT goroutine-safe: mutating operations require exclusive
// access, and concurrent readers are safe only in the absence of any
// writer.
package robinhood

import (
	"fmt"
	"hash/maphash"
)

const (
	debug = false

	// defaultSize is the backing array size used by New. Sizes are always
	// powers of two.
	defaultSize = 16

	// loadFactorPercent is the resize trigger: an insert that would bring
	// the table to this percentage of its backing size grows it first.
	loadFactorPercent = 60
)

// threshold returns the entry count at which a table of the given backing
// size must grow.
func threshold(size int) int {
	return size * loadFactorPercent / 100
}

// Map is an unordered map from keys to values with Put, Get, Delete, Entry
// and iteration operations, implemented with Robin Hood hashing over a
// power-of-two slot array. See the package documentation for the design.
// The zero value for a Map is not usable; construct with New, NewWithSize
// or NewWithCapacity.
type Map[K comparable, V any] struct {
	// The function producing the 64-bit digest of a key. The digest is
	// folded and avalanche-mixed by finalizeHash before any bucket math.
	hash hashFn[K]
	seed maphash.Seed
	// The allocator to use for the slot array.
	allocator Allocator[K, V]
	store     store[K, V]
}

// New constructs a Map with the default backing size of 16 slots.
func New[K comparable, V any](opts ...option[K, V]) *Map[K, V] {
	return NewWithSize[K, V](defaultSize, opts...)
}

// NewWithSize constructs a Map with the specified backing size, which must
// be a power of two. NewWithSize panics otherwise: a non-power-of-two size
// is a programming error, not an input error.
func NewWithSize[K comparable, V any](size int, opts ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		hash:      defaultHash[K],
		seed:      maphash.MakeSeed(),
		allocator: defaultAllocator[K, V]{},
	}
	for _, op := range opts {
		op.apply(m)
	}
	m.store = newStore[K, V](size, m.allocator)
	m.store.checkInvariants()
	return m
}

// NewWithCapacity constructs a Map that can hold at least capacity entries
// before growing, by selecting the smallest power-of-two backing size whose
// growth threshold exceeds capacity. It panics if no representable size
// satisfies the request.
func NewWithCapacity[K comparable, V any](capacity int, opts ...option[K, V]) *Map[K, V] {
	for size := 1; size > 0; size <<= 1 {
		if threshold(size) > capacity {
			return NewWithSize[K, V](size, opts...)
		}
	}
	panic(fmt.Sprintf("robinhood: no power-of-two size satisfies capacity %d", capacity))
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.store.len()
}

// Capacity returns the backing slot count. The map grows once Len would
// reach 60% of Capacity.
func (m *Map[K, V]) Capacity() int {
	return m.store.capacity()
}

// Empty reports whether the map contains no entries.
func (m *Map[K, V]) Empty() bool {
	return m.store.len() == 0
}

// Put inserts an entry into the map, overwriting the value if an entry with
// the same key already exists. It returns the previous value and whether an
// overwrite occurred. On overwrite the stored key is left untouched.
func (m *Map[K, V]) Put(key K, value V) (old V, replaced bool) {
	h := m.hashKey(&key)
	if loc := m.store.lookup(key, h); loc != noLocation {
		sl := m.store.at(loc)
		old, sl.value = sl.value, value
		m.store.checkInvariants()
		return old, true
	}
	m.putNew(key, value, h)
	return old, false
}

// Get retrieves the value for the specified key, returning ok=false if the
// key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	h := m.hashKey(&key)
	loc := m.store.lookup(key, h)
	if loc == noLocation {
		return value, false
	}
	return m.store.at(loc).value, true
}

// GetMut returns a pointer to the value for the specified key, or nil if
// the key is not present. The pointer is invalidated by any subsequent
// mutation of the map.
func (m *Map[K, V]) GetMut(key K) *V {
	h := m.hashKey(&key)
	loc := m.store.lookup(key, h)
	if loc == noLocation {
		return nil
	}
	return &m.store.at(loc).value
}

// GetKeyValue retrieves the stored key and value for the specified key.
// The stored key can matter to callers that rely on it being the one from
// the original insert rather than the equal key passed here.
func (m *Map[K, V]) GetKeyValue(key K) (storedKey K, value V, ok bool) {
	h := m.hashKey(&key)
	loc := m.store.lookup(key, h)
	if loc == noLocation {
		return storedKey, value, false
	}
	sl := m.store.at(loc)
	return sl.key, sl.value, true
}

// Contains reports whether the map contains the specified key.
func (m *Map[K, V]) Contains(key K) bool {
	h := m.hashKey(&key)
	return m.store.lookup(key, h) != noLocation
}

// MustGet returns the value for the specified key, panicking if the key is
// not present.
func (m *Map[K, V]) MustGet(key K) V {
	value, ok := m.Get(key)
	if !ok {
		panic(fmt.Sprintf("robinhood: no entry found for key %v", key))
	}
	return value
}

// Delete removes the entry for the specified key, returning the removed
// value and whether the key was present.
func (m *Map[K, V]) Delete(key K) (value V, ok bool) {
	h := m.hashKey(&key)
	loc := m.store.lookup(key, h)
	if loc == noLocation {
		return value, false
	}
	_, value = m.store.removeFromLocation(loc)
	m.store.checkInvariants()
	return value, true
}

// Retain removes every entry for which pred returns false. pred may mutate
// the value in place through the pointer; it is called exactly once per
// entry. Removals are applied by marking and rebuilding rather than by
// repeated backward-shift deletion, which would risk revisiting entries
// shifted across the table's wrap-around point.
func (m *Map[K, V]) Retain(pred func(key K, value *V) bool) {
	removed := 0
	for i := range m.store.slots {
		sl := &m.store.slots[i]
		if !sl.occupied() {
			continue
		}
		if !pred(sl.key, &sl.value) {
			*sl = Slot[K, V]{}
			m.store.occupied--
			removed++
		}
	}
	if removed == 0 {
		return
	}
	// The holes left above break the probe chains, so rebuild the
	// survivors into a fresh store of the same size.
	m.rebuild(m.store.capacity())
	m.store.checkInvariants()
}

// Clear removes all entries, keeping the current allocation.
func (m *Map[K, V]) Clear() {
	m.store.clear()
	m.store.checkInvariants()
}

// Close closes the map, releasing the slot memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator.
// It is invalid to use a Map after it has been closed, though Close itself
// is idempotent.
func (m *Map[K, V]) Close() {
	if m.store.slots != nil {
		m.allocator.FreeSlots(m.store.slots)
		m.store = store[K, V]{}
	}
	m.allocator = nil
}

// Clone returns an independent copy of the map sharing the same hasher,
// seed and allocator.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := &Map[K, V]{
		hash:      m.hash,
		seed:      m.seed,
		allocator: m.allocator,
	}
	c.store = newStore[K, V](m.store.capacity(), c.allocator)
	copy(c.store.slots, m.store.slots)
	c.store.occupied = m.store.occupied
	c.store.checkInvariants()
	return c
}

func (m *Map[K, V]) hashKey(key *K) hashValue {
	return finalizeHash(m.hash(key, m.seed))
}

// putNew inserts an entry known not to be in the table, growing first if
// needed, and returns a pointer to the inserted value.
func (m *Map[K, V]) putNew(key K, value V, hash hashValue) *V {
	m.reserve()
	loc := m.store.insertNew(key, value, hash)
	m.store.checkInvariants()
	return &m.store.at(loc).value
}

// reserve grows the backing store if one more insert would reach the
// load-factor threshold: a size-16 table holds 8 entries and grows on its
// 9th insert (threshold(16) == 9).
func (m *Map[K, V]) reserve() {
	if m.store.occupied+1 < threshold(m.store.capacity()) {
		return
	}
	m.rebuild(2 * m.store.capacity())
}

// rebuild replaces the backing store with one of newSize slots, reinserting
// every entry with its stored hash. The new store is fully built before the
// old one is freed, so an allocator failure mid-growth leaves the map in
// its pre-growth state.
func (m *Map[K, V]) rebuild(newSize int) {
	old := m.store
	m.store = old.resizedTo(newSize, m.allocator)
	m.allocator.FreeSlots(old.slots)
	if debug {
		fmt.Printf("rebuild: capacity=%d->%d occupied=%d\n",
			old.capacity(), newSize, m.store.occupied)
	}
}
