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

import "fmt"

// Slot is the physical storage cell of the table: either empty, or holding
// a key, its value, the key's finalized hash, and the slot's probe length.
// The zero Slot is an empty slot, which is why Allocator.AllocSlots must
// return zero-filled memory.
type Slot[K comparable, V any] struct {
	hash hashValue
	// probe is dib+1, where dib (distance to initial bucket) counts the
	// probe steps from the key's ideal bucket to this slot. probe == 0
	// marks the slot empty.
	probe uint32
	key   K
	value V
}

func (s *Slot[K, V]) occupied() bool {
	return s.probe != 0
}

func (s *Slot[K, V]) dib() uint32 {
	return s.probe - 1
}

// location is a validated index into a store's slot array. Occupied
// locations are only ever minted by lookup and insertNew, so slot access
// through a location cannot be reached without first proving the index
// valid.
type location int

const noLocation location = -1

// store is a fixed-capacity, power-of-two-sized array of slots plus an
// occupied count. It implements the probing algorithm; the load-factor
// policy lives in Map.
type store[K comparable, V any] struct {
	slots    []Slot[K, V]
	occupied int
}

func newStore[K comparable, V any](size int, allocator Allocator[K, V]) store[K, V] {
	if size <= 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("robinhood: size %d is not a power of two", size))
	}
	return store[K, V]{slots: allocator.AllocSlots(size)}
}

func (s *store[K, V]) len() int {
	return s.occupied
}

func (s *store[K, V]) capacity() int {
	return len(s.slots)
}

func (s *store[K, V]) at(loc location) *Slot[K, V] {
	return &s.slots[loc]
}

// lookup returns the location holding key, or noLocation if the key is
// absent. The walk can stop as soon as it sees a resident whose dib is
// smaller than the current probe distance: had the key been inserted, it
// would have displaced that resident, so no matching key can sit further
// along the probe sequence.
func (s *store[K, V]) lookup(key K, hash hashValue) location {
	mask := uint32(len(s.slots) - 1)
	idx := uint32(hash) & mask
	if debug {
		fmt.Printf("lookup(%v): hash=%08x ideal=%d\n", key, uint32(hash), idx)
	}

	for probe := uint32(1); ; probe++ {
		sl := &s.slots[idx]
		if !sl.occupied() {
			return noLocation
		}
		if sl.hash == hash && sl.key == key {
			return location(idx)
		}
		if sl.probe < probe {
			return noLocation
		}
		idx = (idx + 1) & mask
	}
}

// insertNew inserts an entry known not to be in the table and returns the
// location where the requested key landed. Walking from the key's ideal
// bucket, whenever the carried entry is further from its ideal bucket than
// the resident it collides with, the two swap and the displaced resident is
// carried forward; the first placement event is always the requested key
// finding its slot, so that index is the result even when displaced
// residents keep moving afterwards.
//
// The caller is responsible for ensuring there is room (the load-factor
// policy in Map guarantees an empty slot exists, which bounds the walk).
func (s *store[K, V]) insertNew(key K, value V, hash hashValue) location {
	mask := uint32(len(s.slots) - 1)
	idx := uint32(hash) & mask
	carry := Slot[K, V]{hash: hash, probe: 1, key: key, value: value}
	result := noLocation

	if debug {
		fmt.Printf("insert(%v): hash=%08x ideal=%d\n", key, uint32(hash), idx)
	}

	for {
		sl := &s.slots[idx]
		if !sl.occupied() {
			*sl = carry
			if result == noLocation {
				result = location(idx)
			}
			break
		}
		if sl.probe < carry.probe {
			if debug {
				fmt.Printf("insert(displacing): index=%d resident=%v dib=%d->%d\n",
					idx, sl.key, sl.dib(), carry.dib())
			}
			carry, *sl = *sl, carry
			if result == noLocation {
				result = location(idx)
			}
		}
		idx = (idx + 1) & mask
		carry.probe++
	}

	s.occupied++
	return result
}

// removeFromLocation takes the key and value out of the slot at loc and
// repairs the probe chain behind it with backward shifting: each successor
// slot moves back one position with its dib decremented, until an empty
// slot or a dib-0 resident is reached. No tombstones are ever created.
func (s *store[K, V]) removeFromLocation(loc location) (K, V) {
	mask := uint32(len(s.slots) - 1)
	cur := uint32(loc)

	sl := &s.slots[cur]
	key, value := sl.key, sl.value
	*sl = Slot[K, V]{}
	s.occupied--

	for {
		next := (cur + 1) & mask
		ns := &s.slots[next]
		// probe <= 1 covers both terminators: empty (0) and dib 0 (1).
		if ns.probe <= 1 {
			break
		}
		s.slots[cur] = *ns
		s.slots[cur].probe--
		*ns = Slot[K, V]{}
		cur = next
	}

	if debug {
		fmt.Printf("remove(%v): index=%d occupied=%d\n", key, loc, s.occupied)
	}
	return key, value
}

// resizedTo builds a fresh store of newSize slots and reinserts every
// occupied slot in physical index order using its stored hash. Keys are
// never re-hashed on growth. The receiver is left untouched; the caller
// frees it once the new store is fully built.
func (s *store[K, V]) resizedTo(newSize int, allocator Allocator[K, V]) store[K, V] {
	next := newStore[K, V](newSize, allocator)
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.occupied() {
			next.insertNew(sl.key, sl.value, sl.hash)
		}
	}
	return next
}

// clear resets every slot to empty, keeping the allocation.
func (s *store[K, V]) clear() {
	clear(s.slots)
	s.occupied = 0
}

func (s *store[K, V]) checkInvariants() {
	if !invariants {
		return
	}

	n := len(s.slots)
	if n&(n-1) != 0 {
		panic(fmt.Sprintf("invariant failed: size %d is not a power of two", n))
	}

	occupied := 0
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.occupied() {
			continue
		}
		occupied++

		ideal := sl.hash.bucketIndex(n)
		dib := uint32((i - ideal + n) & (n - 1))
		if dib != sl.dib() {
			panic(fmt.Sprintf("invariant failed: slot(%d): %v has dib %d, expected %d\n%s",
				i, sl.key, sl.dib(), dib, s.debugString()))
		}

		// lookup returns the first match along the probe sequence, so this
		// also catches duplicate keys: the later duplicate would not find
		// itself.
		if loc := s.lookup(sl.key, sl.hash); loc != location(i) {
			panic(fmt.Sprintf("invariant failed: slot(%d): %v found at %d\n%s",
				i, sl.key, loc, s.debugString()))
		}
	}

	if occupied != s.occupied {
		panic(fmt.Sprintf("invariant failed: found %d occupied slots, but count is %d\n%s",
			occupied, s.occupied, s.debugString()))
	}
}

func (s *store[K, V]) debugString() string {
	var buf []byte
	buf = fmt.Appendf(buf, "capacity=%d occupied=%d\n", len(s.slots), s.occupied)
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.occupied() {
			buf = fmt.Appendf(buf, "  %4d: %v [hash=%08x dib=%d]\n", i, sl.key, uint32(sl.hash), sl.dib())
		} else {
			buf = fmt.Appendf(buf, "  %4d: empty\n", i)
		}
	}
	return string(buf)
}
