// Package featured holds the set of record ids a user has marked.
//
// The set is independent of query evaluation: it never filters or reorders
// results, it only annotates them.
package featured

import (
	"encoding/json"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// signBit flips int64 ordering onto uint64 ordering, so negative ids are
// representable and iteration stays in ascending id order.
const signBit = uint64(1) << 63

func toKey(id int64) uint64  { return uint64(id) ^ signBit }
func fromKey(k uint64) int64 { return int64(k ^ signBit) }

// Set is a set of record ids. The zero value is not usable; call New.
// A Set is not safe for concurrent mutation.
type Set struct {
	rb *roaring64.Bitmap
}

// New returns a set holding ids.
func New(ids ...int64) *Set {
	s := &Set{rb: roaring64.New()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add marks id.
func (s *Set) Add(id int64) { s.rb.Add(toKey(id)) }

// Remove unmarks id.
func (s *Set) Remove(id int64) { s.rb.Remove(toKey(id)) }

// Has reports whether id is marked.
func (s *Set) Has(id int64) bool { return s.rb.Contains(toKey(id)) }

// Toggle flips id and reports whether it is marked afterwards.
func (s *Set) Toggle(id int64) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Len returns the number of marked ids.
func (s *Set) Len() int { return int(s.rb.GetCardinality()) }

// IDs returns the marked ids in ascending order.
func (s *Set) IDs() []int64 {
	ids := make([]int64, 0, s.Len())
	it := s.rb.Iterator()
	for it.HasNext() {
		ids = append(ids, fromKey(it.Next()))
	}
	return ids
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{rb: s.rb.Clone()}
}

// MarshalJSON encodes the set as an ascending JSON array of ids.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON replaces the set with the ids of a JSON array.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("decode featured ids: %w", err)
	}
	*s = *New(ids...)
	return nil
}
