// Package deferred parks commands under a numeric key until an Execute for
// that key replays the whole batch.
package deferred

import (
	"sort"

	"github.com/hami-sh/2310ass4/internal/protocol"
)

// Record is one parked command. Raw is the command as it arrived, without
// the Defer prefix.
type Record struct {
	Key     uint64
	Command protocol.Command
	Raw     string
}

// Store is not safe for concurrent use; the depot worker owns it.
type Store struct {
	records []Record
}

func New() *Store {
	return &Store{}
}

// Add appends rec to the end of its batch.
func (s *Store) Add(rec Record) {
	s.records = append(s.records, rec)
}

// ExecuteAndPurge passes every record with key to apply in the order they
// were added, then removes them all. Records of other keys keep their
// relative order. It returns the number of records applied.
func (s *Store) ExecuteAndPurge(key uint64, apply func(Record)) int {
	n := 0
	for _, rec := range s.records {
		if rec.Key == key {
			apply(rec)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.Key != key {
			kept = append(kept, rec)
		}
	}
	clear(s.records[len(kept):])
	s.records = kept
	return n
}

func (s *Store) Len() int { return len(s.records) }

// CountKey returns the size of the batch under key.
func (s *Store) CountKey(key uint64) int {
	n := 0
	for _, rec := range s.records {
		if rec.Key == key {
			n++
		}
	}
	return n
}

// Keys returns the distinct keys with parked records, ascending.
func (s *Store) Keys() []uint64 {
	seen := make(map[uint64]struct{})
	var keys []uint64
	for _, rec := range s.records {
		if _, ok := seen[rec.Key]; !ok {
			seen[rec.Key] = struct{}{}
			keys = append(keys, rec.Key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Records returns a copy of every parked record in insertion order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
