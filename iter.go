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

package robinhood

import (
	"fmt"
	"iter"
	"strings"
)

// All returns an iterator over the map's entries in backing-array order,
// which is neither insertion order nor stable across growth. The slot array
// is snapshotted up front, so entries inserted during iteration may or may
// not be visited, and growing the map mid-iteration does not invalidate the
// walk.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		slots := m.store.slots
		for i := range slots {
			sl := &slots[i]
			if sl.occupied() && !yield(sl.key, sl.value) {
				return
			}
		}
	}
}

// AllMut returns an iterator yielding each key together with a pointer to
// its value for in-place mutation. Keys are never exposed mutably: changing
// a key in place would corrupt the probe chains.
func (m *Map[K, V]) AllMut() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		slots := m.store.slots
		for i := range slots {
			sl := &slots[i]
			if sl.occupied() && !yield(sl.key, &sl.value) {
				return
			}
		}
	}
}

// Keys returns an iterator over the map's keys in backing-array order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over the map's values in backing-array order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// ValuesMut returns an iterator over pointers to the map's values for
// in-place mutation.
func (m *Map[K, V]) ValuesMut() iter.Seq[*V] {
	return func(yield func(*V) bool) {
		for _, v := range m.AllMut() {
			if !yield(v) {
				return
			}
		}
	}
}

// Drain returns a consuming iterator: each yielded entry is removed from
// the map, and a fully consumed sequence leaves the map empty. Stopping
// early keeps the entries not yet yielded.
func (m *Map[K, V]) Drain() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		slots := m.store.slots
		for i := range slots {
			sl := &slots[i]
			if !sl.occupied() {
				continue
			}
			key, value := sl.key, sl.value
			*sl = Slot[K, V]{}
			m.store.occupied--
			if !yield(key, value) {
				// The vacated slots violate the probe chains for whatever
				// remains; rebuild the survivors before handing the map
				// back.
				m.rebuild(m.store.capacity())
				m.store.checkInvariants()
				return
			}
		}
		m.store.checkInvariants()
	}
}

// InsertAll inserts every pair produced by seq, overwriting existing keys.
func (m *Map[K, V]) InsertAll(seq iter.Seq2[K, V]) {
	for k, v := range seq {
		m.Put(k, v)
	}
}

// Collect constructs a Map from an iterator of key-value pairs. Later pairs
// overwrite earlier ones with equal keys.
func Collect[K comparable, V any](seq iter.Seq2[K, V], opts ...option[K, V]) *Map[K, V] {
	m := New[K, V](opts...)
	m.InsertAll(seq)
	return m
}

// Equal reports whether two maps contain the same set of keys with equal
// values. Iteration order plays no part.
func Equal[K, V comparable](a, b *Map[K, V]) bool {
	if a.Len() != b.Len() {
		return false
	}
	for k, v := range a.All() {
		if bv, ok := b.Get(k); !ok || bv != v {
			return false
		}
	}
	return true
}

// EqualFunc is Equal with a caller-supplied value comparison, allowing the
// two maps to hold different value types.
func EqualFunc[K comparable, V1, V2 any](a *Map[K, V1], b *Map[K, V2], eq func(V1, V2) bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	for k, v := range a.All() {
		if bv, ok := b.Get(k); !ok || !eq(v, bv) {
			return false
		}
	}
	return true
}

// String formats the map as an unordered literal, e.g. "Map[1:2 3:4]".
func (m *Map[K, V]) String() string {
	var buf strings.Builder
	buf.WriteString("Map[")
	first := true
	for k, v := range m.All() {
		if !first {
			buf.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&buf, "%v:%v", k, v)
	}
	buf.WriteByte(']')
	return buf.String()
}
