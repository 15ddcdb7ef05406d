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

// Entry is a view into a single map slot for a given key, either occupied
// or vacant, produced by Map.Entry. It carries the already-computed hash,
// so read-modify-write sequences never re-hash the key.
//
// An Entry is a short-lived handle: it is consumed by exactly one of Set,
// Remove, RemoveEntry or the OrInsert family, and is invalidated by any
// other mutation of the map.
type Entry[K comparable, V any] struct {
	m    *Map[K, V]
	key  K
	hash hashValue
	loc  location // noLocation while vacant
}

// Entry returns the entry for the given key for in-place manipulation.
func (m *Map[K, V]) Entry(key K) Entry[K, V] {
	h := m.hashKey(&key)
	return Entry[K, V]{m: m, key: key, hash: h, loc: m.store.lookup(key, h)}
}

// Key returns the key the entry was created for.
func (e Entry[K, V]) Key() K {
	return e.key
}

// Present reports whether the entry is occupied.
func (e Entry[K, V]) Present() bool {
	return e.loc != noLocation
}

// Get returns the entry's current value, with ok=false if the entry is
// vacant.
func (e Entry[K, V]) Get() (value V, ok bool) {
	if e.loc == noLocation {
		return value, false
	}
	return e.m.store.at(e.loc).value, true
}

// Ptr returns a pointer to the entry's value, or nil if the entry is
// vacant. The pointer is invalidated by any subsequent mutation of the map.
func (e Entry[K, V]) Ptr() *V {
	if e.loc == noLocation {
		return nil
	}
	return &e.m.store.at(e.loc).value
}

// Set stores value for the entry's key, returning the previous value and
// whether an overwrite occurred. A vacant entry inserts using the hash
// computed when the entry was created. On overwrite the stored key is left
// untouched.
func (e Entry[K, V]) Set(value V) (old V, replaced bool) {
	if e.loc != noLocation {
		sl := e.m.store.at(e.loc)
		old, sl.value = sl.value, value
		e.m.store.checkInvariants()
		return old, true
	}
	e.m.putNew(e.key, value, e.hash)
	return old, false
}

// Remove removes the entry from the map, returning its value and whether
// the entry was occupied.
func (e Entry[K, V]) Remove() (V, bool) {
	_, value, ok := e.RemoveEntry()
	return value, ok
}

// RemoveEntry removes the entry from the map, returning the stored key and
// value and whether the entry was occupied.
func (e Entry[K, V]) RemoveEntry() (key K, value V, ok bool) {
	if e.loc == noLocation {
		return e.key, value, false
	}
	key, value = e.m.store.removeFromLocation(e.loc)
	e.m.store.checkInvariants()
	return key, value, true
}

// OrInsert ensures a value is present by inserting the given value if the
// entry is vacant, and returns a pointer to the entry's value.
func (e Entry[K, V]) OrInsert(value V) *V {
	if e.loc != noLocation {
		return &e.m.store.at(e.loc).value
	}
	return e.m.putNew(e.key, value, e.hash)
}

// OrInsertWith ensures a value is present by inserting the result of f if
// the entry is vacant, and returns a pointer to the entry's value. f is
// not called for an occupied entry.
func (e Entry[K, V]) OrInsertWith(f func() V) *V {
	if e.loc != noLocation {
		return &e.m.store.at(e.loc).value
	}
	return e.m.putNew(e.key, f(), e.hash)
}

// OrInsertWithKey is OrInsertWith for value derivations that need the key.
func (e Entry[K, V]) OrInsertWithKey(f func(K) V) *V {
	if e.loc != noLocation {
		return &e.m.store.at(e.loc).value
	}
	return e.m.putNew(e.key, f(e.key), e.hash)
}

// AndModify applies f to the value of an occupied entry before any
// potential insert, and returns the entry for chaining. f is not called for
// a vacant entry.
func (e Entry[K, V]) AndModify(f func(value *V)) Entry[K, V] {
	if e.loc != noLocation {
		f(&e.m.store.at(e.loc).value)
	}
	return e
}

// OrDefault ensures a value is present by inserting the zero value if the
// entry is vacant, and returns a pointer to the entry's value.
func (e Entry[K, V]) OrDefault() *V {
	var zero V
	return e.OrInsert(zero)
}
