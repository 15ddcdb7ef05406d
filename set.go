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

// Set is an unordered set of keys, implemented as a Map from keys to
// struct{}. It shares the Map's hashing, allocator and growth behavior,
// including the option values, which are typed against the underlying
// Map[K, struct{}].
//
// A Set is NOT goroutine-safe.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet constructs a Set with the default backing size.
func NewSet[K comparable](opts ...option[K, struct{}]) *Set[K] {
	return &Set[K]{m: New[K, struct{}](opts...)}
}

// NewSetWithSize constructs a Set with the specified power-of-two backing
// size, panicking otherwise.
func NewSetWithSize[K comparable](size int, opts ...option[K, struct{}]) *Set[K] {
	return &Set[K]{m: NewWithSize[K, struct{}](size, opts...)}
}

// NewSetWithCapacity constructs a Set that can hold at least capacity keys
// before growing.
func NewSetWithCapacity[K comparable](capacity int, opts ...option[K, struct{}]) *Set[K] {
	return &Set[K]{m: NewWithCapacity[K, struct{}](capacity, opts...)}
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.m.Len()
}

// Capacity returns the backing slot count.
func (s *Set[K]) Capacity() int {
	return s.m.Capacity()
}

// Empty reports whether the set contains no keys.
func (s *Set[K]) Empty() bool {
	return s.m.Empty()
}

// Insert adds the key to the set, reporting whether it was newly added.
func (s *Set[K]) Insert(key K) bool {
	_, replaced := s.m.Put(key, struct{}{})
	return !replaced
}

// Contains reports whether the set contains the key.
func (s *Set[K]) Contains(key K) bool {
	return s.m.Contains(key)
}

// Remove removes the key from the set, reporting whether it was present.
func (s *Set[K]) Remove(key K) bool {
	_, ok := s.m.Delete(key)
	return ok
}

// Retain removes every key for which pred returns false.
func (s *Set[K]) Retain(pred func(key K) bool) {
	s.m.Retain(func(key K, _ *struct{}) bool {
		return pred(key)
	})
}

// Clear removes all keys, keeping the current allocation.
func (s *Set[K]) Clear() {
	s.m.Clear()
}

// Close releases the slot memory back to the configured allocator.
func (s *Set[K]) Close() {
	s.m.Close()
}

// Clone returns an independent copy of the set.
func (s *Set[K]) Clone() *Set[K] {
	return &Set[K]{m: s.m.Clone()}
}

// All returns an iterator over the set's keys in backing-array order.
func (s *Set[K]) All() iter.Seq[K] {
	return s.m.Keys()
}

// Drain returns a consuming iterator over the set's keys; a fully consumed
// sequence leaves the set empty.
func (s *Set[K]) Drain() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.m.Drain() {
			if !yield(k) {
				return
			}
		}
	}
}

// InsertAll adds every key produced by seq.
func (s *Set[K]) InsertAll(seq iter.Seq[K]) {
	for k := range seq {
		s.Insert(k)
	}
}

// CollectSet constructs a Set from an iterator of keys.
func CollectSet[K comparable](seq iter.Seq[K], opts ...option[K, struct{}]) *Set[K] {
	s := NewSet[K](opts...)
	s.InsertAll(seq)
	return s
}

// Union returns an iterator over the keys in either set. Each key is
// yielded once.
func (s *Set[K]) Union(other *Set[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.All() {
			if !yield(k) {
				return
			}
		}
		for k := range other.All() {
			if !s.Contains(k) && !yield(k) {
				return
			}
		}
	}
}

// Intersection returns an iterator over the keys present in both sets.
func (s *Set[K]) Intersection(other *Set[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.All() {
			if other.Contains(k) && !yield(k) {
				return
			}
		}
	}
}

// Difference returns an iterator over the keys in s that are not in other.
func (s *Set[K]) Difference(other *Set[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.All() {
			if !other.Contains(k) && !yield(k) {
				return
			}
		}
	}
}

// SymmetricDifference returns an iterator over the keys present in exactly
// one of the two sets.
func (s *Set[K]) SymmetricDifference(other *Set[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.Difference(other) {
			if !yield(k) {
				return
			}
		}
		for k := range other.Difference(s) {
			if !yield(k) {
				return
			}
		}
	}
}

// Equal reports whether the two sets contain the same keys.
func (s *Set[K]) Equal(other *Set[K]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for k := range s.All() {
		if !other.Contains(k) {
			return false
		}
	}
	return true
}

// String formats the set as an unordered literal, e.g. "Set[1 2 3]".
func (s *Set[K]) String() string {
	var buf strings.Builder
	buf.WriteString("Set[")
	first := true
	for k := range s.All() {
		if !first {
			buf.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&buf, "%v", k)
	}
	buf.WriteByte(']')
	return buf.String()
}
