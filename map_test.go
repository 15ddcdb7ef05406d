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
	"hash/maphash"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// toBuiltinMap returns the elements as a map[K]V. Useful for testing.
func (m *Map[K, V]) toBuiltinMap() map[K]V {
	r := make(map[K]V, m.Len())
	for k, v := range m.All() {
		r[k] = v
	}
	return r
}

// constHash sends every key to the same bucket, degenerating the table into
// a single probe run.
func constHash[K comparable](h uint64) func(key *K, seed maphash.Seed) uint64 {
	return func(key *K, seed maphash.Seed) uint64 {
		return h
	}
}

func TestBasic(t *testing.T) {
	test := func(t *testing.T, m *Map[int, int]) {
		const count = 100

		e := make(map[int]int)
		require.EqualValues(t, 0, m.Len())
		require.True(t, m.Empty())

		// Non-existent.
		for i := 0; i < count; i++ {
			_, ok := m.Get(i)
			require.False(t, ok)
			require.False(t, m.Contains(i))
		}

		// Insert.
		for i := 0; i < count; i++ {
			_, replaced := m.Put(i, i+count)
			require.False(t, replaced)
			v, ok := m.Get(i)
			require.True(t, ok)
			require.EqualValues(t, i+count, v)
			require.EqualValues(t, i+1, m.Len())
			e[i] = i + count
			require.Equal(t, e, m.toBuiltinMap())
		}
		require.False(t, m.Empty())

		// Update.
		for i := 0; i < count; i++ {
			old, replaced := m.Put(i, i+2*count)
			require.True(t, replaced)
			require.EqualValues(t, i+count, old)
			v, ok := m.Get(i)
			require.True(t, ok)
			require.EqualValues(t, i+2*count, v)
			require.EqualValues(t, count, m.Len())
			e[i] = i + 2*count
			require.Equal(t, e, m.toBuiltinMap())
		}

		// Delete.
		for i := 0; i < count; i++ {
			v, ok := m.Delete(i)
			require.True(t, ok)
			require.EqualValues(t, i+2*count, v)
			require.EqualValues(t, count-i-1, m.Len())
			_, ok = m.Get(i)
			require.False(t, ok)
			delete(e, i)
			require.Equal(t, e, m.toBuiltinMap())
		}

		// Delete of an absent key is a no-op.
		_, ok := m.Delete(0)
		require.False(t, ok)
		require.True(t, m.Empty())
	}

	t.Run("normal", func(t *testing.T) {
		test(t, New[int, int]())
	})

	t.Run("degenerate", func(t *testing.T) {
		for _, v := range []uint64{0, ^uint64(0)} {
			t.Run(fmt.Sprintf("%016x", v), func(t *testing.T) {
				test(t, New[int, int](WithHash[int, int](constHash[int](v))))
			})
		}
		for i := 0; i < 10; i++ {
			v := rand.Uint64()
			t.Run(fmt.Sprintf("%016x", v), func(t *testing.T) {
				test(t, New[int, int](WithHash[int, int](constHash[int](v))))
			})
		}
	})
}

func TestGetMut(t *testing.T) {
	m := New[string, int]()
	require.Nil(t, m.GetMut("a"))

	m.Put("a", 1)
	p := m.GetMut("a")
	require.NotNil(t, p)
	*p = 10

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)
}

func TestGetKeyValue(t *testing.T) {
	m := New[string, int]()
	_, _, ok := m.GetKeyValue("a")
	require.False(t, ok)

	m.Put("a", 1)
	k, v, ok := m.GetKeyValue("a")
	require.True(t, ok)
	require.Equal(t, "a", k)
	require.Equal(t, 1, v)
}

func TestMustGet(t *testing.T) {
	m := New[int, string]()
	m.Put(1, "one")
	require.Equal(t, "one", m.MustGet(1))
	require.Panics(t, func() {
		m.MustGet(2)
	})
}

func TestLoadFactorTrigger(t *testing.T) {
	// threshold(16) == 9: a size-16 table holds 8 entries and grows on the
	// 9th insert.
	m := NewWithSize[int, int](16)
	for i := 0; i < 8; i++ {
		m.Put(i, i)
	}
	require.Equal(t, 16, m.Capacity())
	m.Put(8, 8)
	require.Equal(t, 32, m.Capacity())
	require.Equal(t, 9, m.Len())
	for i := 0; i < 9; i++ {
		require.Equal(t, i, m.MustGet(i))
	}
}

func TestSmallValueRange(t *testing.T) {
	// Values i%4 collide heavily; every key must still resolve to its own
	// value, under both the real hash and a degenerate one.
	for _, degenerate := range []bool{false, true} {
		t.Run(fmt.Sprintf("degenerate=%t", degenerate), func(t *testing.T) {
			var opts []option[int, int]
			if degenerate {
				opts = append(opts, WithHash[int, int](constHash[int](0)))
			}
			m := New[int, int](opts...)
			for i := 0; i < 8; i++ {
				m.Put(i, i%4)
			}
			for i := 0; i < 8; i++ {
				v, ok := m.Get(i)
				require.True(t, ok, "key %d", i)
				require.Equal(t, i%4, v)
			}
		})
	}
}

func TestDeleteHalf(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 8; i++ {
		m.Put(i, i%3)
	}
	for i := 0; i < 4; i++ {
		_, ok := m.Delete(i)
		require.True(t, ok, "key %d", i)
	}
	require.Equal(t, 4, m.Len())
	_, ok := m.Get(3)
	require.False(t, ok)
	v, ok := m.Get(7)
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestNewWithSizePanicsOnNonPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, -1, 3, 12, 100} {
		require.Panics(t, func() {
			NewWithSize[int, int](size)
		}, "size %d", size)
	}
}

func TestNewWithCapacity(t *testing.T) {
	testCases := []struct {
		capacity     int
		expectedSize int
	}{
		{0, 2},
		{1, 4},
		{8, 16},
		{9, 32},
		{18, 32},
		{19, 64},
		{1000, 2048},
	}
	for _, c := range testCases {
		t.Run(fmt.Sprintf("capacity=%d", c.capacity), func(t *testing.T) {
			m := NewWithCapacity[int, int](c.capacity)
			require.Equal(t, c.expectedSize, m.Capacity())

			// The requested count of inserts must not trigger growth.
			for i := 0; i < c.capacity; i++ {
				m.Put(i, i)
			}
			require.Equal(t, c.expectedSize, m.Capacity())
		})
	}
}

func TestRetain(t *testing.T) {
	t.Run("keep-some", func(t *testing.T) {
		m := New[int, int]()
		for i := 0; i < 100; i++ {
			m.Put(i, i)
		}
		m.Retain(func(key int, value *int) bool {
			return key%3 == 0
		})
		require.Equal(t, 34, m.Len())
		for i := 0; i < 100; i++ {
			_, ok := m.Get(i)
			require.Equal(t, i%3 == 0, ok, "key %d", i)
		}
	})

	t.Run("mutate-in-place", func(t *testing.T) {
		m := New[int, int]()
		for i := 0; i < 10; i++ {
			m.Put(i, i)
		}
		m.Retain(func(key int, value *int) bool {
			*value *= 2
			return true
		})
		require.Equal(t, 10, m.Len())
		for i := 0; i < 10; i++ {
			require.Equal(t, 2*i, m.MustGet(i))
		}
	})

	t.Run("keep-none", func(t *testing.T) {
		m := New[int, int]()
		for i := 0; i < 10; i++ {
			m.Put(i, i)
		}
		m.Retain(func(key int, value *int) bool {
			return false
		})
		require.True(t, m.Empty())
	})

	t.Run("called-once-per-entry", func(t *testing.T) {
		// A degenerate hash maximizes backward shifting, the case where a
		// naive remove-while-iterating would revisit shifted entries.
		m := New[int, int](WithHash[int, int](constHash[int](0)))
		for i := 0; i < 8; i++ {
			m.Put(i, i)
		}
		calls := make(map[int]int)
		m.Retain(func(key int, value *int) bool {
			calls[key]++
			return key%2 == 0
		})
		require.Len(t, calls, 8)
		for k, n := range calls {
			require.Equal(t, 1, n, "key %d", k)
		}
		require.Equal(t, 4, m.Len())
	})
}

func TestClear(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 1000; i++ {
		m.Put(i, i)
	}

	capacity := m.Capacity()
	m.Clear()
	require.EqualValues(t, 0, m.Len())
	require.EqualValues(t, capacity, m.Capacity())
	for range m.All() {
		require.Fail(t, "should not iterate")
	}

	// The table is still usable after Clear.
	m.Put(1, 2)
	require.Equal(t, 2, m.MustGet(1))
}

func TestClone(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 50; i++ {
		m.Put(i, i)
	}
	c := m.Clone()
	require.Equal(t, m.toBuiltinMap(), c.toBuiltinMap())

	// Mutations do not leak between the copies.
	c.Put(100, 100)
	m.Delete(0)
	require.True(t, c.Contains(0))
	require.False(t, m.Contains(100))
}

type countingAllocator[K comparable, V any] struct {
	alloc int
	free  int
}

func (a *countingAllocator[K, V]) AllocSlots(n int) []Slot[K, V] {
	a.alloc++
	return make([]Slot[K, V], n)
}

func (a *countingAllocator[K, V]) FreeSlots(_ []Slot[K, V]) {
	a.free++
}

func TestAllocator(t *testing.T) {
	a := &countingAllocator[int, int]{}
	m := New[int, int](WithAllocator[int, int](a))

	for i := 0; i < 100; i++ {
		m.Put(i, i)
	}

	// 16 -> 32 -> 64 -> 128 -> 256
	const expected = 5
	require.Equal(t, 256, m.Capacity())
	require.EqualValues(t, expected, a.alloc)
	require.EqualValues(t, expected-1, a.free)

	m.Close()
	require.EqualValues(t, expected, a.free)

	// Close is idempotent.
	m.Close()
	require.EqualValues(t, expected, a.free)
}

type failingAllocator[K comparable, V any] struct {
	remaining int
}

func (a *failingAllocator[K, V]) AllocSlots(n int) []Slot[K, V] {
	if a.remaining == 0 {
		panic("robinhood: allocation failure")
	}
	a.remaining--
	return make([]Slot[K, V], n)
}

func (a *failingAllocator[K, V]) FreeSlots(_ []Slot[K, V]) {
}

func TestAllocationFailureDuringGrowth(t *testing.T) {
	a := &failingAllocator[int, int]{remaining: 1}
	m := NewWithSize[int, int](16, WithAllocator[int, int](a))
	for i := 0; i < 8; i++ {
		m.Put(i, i)
	}

	// The 9th insert needs a new slot array and the allocator refuses. The
	// map must come out of the panic in its pre-growth state.
	require.Panics(t, func() {
		m.Put(8, 8)
	})
	require.Equal(t, 8, m.Len())
	require.Equal(t, 16, m.Capacity())
	for i := 0; i < 8; i++ {
		require.Equal(t, i, m.MustGet(i))
	}
	require.False(t, m.Contains(8))
}

func TestSlotsZeroedAfterDelete(t *testing.T) {
	// Vacated slots must not pin deleted keys or values for the GC.
	m := NewWithSize[string, *int](16)
	for i := 0; i < 8; i++ {
		v := i
		m.Put(fmt.Sprintf("key-%d", i), &v)
	}
	for i := 0; i < 8; i++ {
		_, ok := m.Delete(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
	}
	for i := range m.store.slots {
		require.Equal(t, Slot[string, *int]{}, m.store.slots[i], "slot %d", i)
	}
}

func TestRandom(t *testing.T) {
	test := func(t *testing.T, m *Map[int, int]) {
		rng := rand.New(rand.NewSource(1337))
		e := make(map[int]int)
		for i := 0; i < 10000; i++ {
			key := rng.Intn(2048)
			switch r := rng.Float64(); {
			case r < 0.25: // 25% deletes
				v, ok := m.Delete(key)
				ev, eok := e[key]
				require.Equal(t, eok, ok, "delete %d", key)
				require.Equal(t, ev, v)
				delete(e, key)
			case r < 0.30: // 5% same-size rebuild and compare
				m.rebuild(m.store.capacity())
				require.Equal(t, e, m.toBuiltinMap())
			case r < 0.45: // 15% lookups
				v, ok := m.Get(key)
				ev, eok := e[key]
				require.Equal(t, eok, ok, "get %d", key)
				require.Equal(t, ev, v)
			default: // 55% inserts and updates
				value := rng.Intn(1 << 20)
				_, replaced := m.Put(key, value)
				_, eok := e[key]
				require.Equal(t, eok, replaced, "put %d", key)
				e[key] = value
			}
			require.Equal(t, len(e), m.Len())
		}
		require.Equal(t, e, m.toBuiltinMap())
	}

	t.Run("normal", func(t *testing.T) {
		test(t, New[int, int]())
	})

	t.Run("degenerate", func(t *testing.T) {
		// Fold the key into a handful of buckets rather than one so the test
		// stays fast while still forcing long probe runs.
		m := New[int, int](WithHash[int, int](func(key *int, seed maphash.Seed) uint64 {
			return uint64(*key % 13)
		}))
		test(t, m)
	})
}
