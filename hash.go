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
)

// hashValue is the finalized 32-bit hash stored alongside each occupied
// slot. All bucket math is performed on this value, never on the raw
// 64-bit digest.
type hashValue uint32

// hashFn produces a 64-bit digest for a key. Equal keys must produce equal
// digests. The digest does not need good low-bit distribution; finalizeHash
// takes care of that.
type hashFn[K comparable] func(key *K, seed maphash.Seed) uint64

// defaultHash hashes a key using the runtime's collision-resistant hasher
// for comparable types.
func defaultHash[K comparable](key *K, seed maphash.Seed) uint64 {
	return maphash.Comparable(seed, *key)
}

// finalizeHash folds a 64-bit digest down to 32 bits and then runs it
// through an integer avalanche finalizer (the hash-prospector "lowbias32"
// mix). The avalanche step matters: buckets are selected from the low bits
// of the result, so every input bit has to influence them.
func finalizeHash(digest uint64) hashValue {
	x := uint32(digest) ^ uint32(digest>>32)
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return hashValue(x)
}

// bucketIndex returns the ideal bucket for h in a table of n slots. n must
// be a power of two.
func (h hashValue) bucketIndex(n int) int {
	if invariants && n&(n-1) != 0 {
		panic(fmt.Sprintf("robinhood: table size %d is not a power of two", n))
	}
	return int(uint32(h) & uint32(n-1))
}
