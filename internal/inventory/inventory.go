// Package inventory holds a depot's item counts.
//
// Counts are plain signed integers. Removing more than is held, or removing an
// item that was never delivered, leaves a negative count recording the debt.
// Entries are never deleted; an entry at zero stays but is left out of
// Snapshot.
package inventory

import (
	"sort"
)

// Item is a named count.
type Item struct {
	Name  string
	Count int
}

// Store is not safe for concurrent use; the depot worker owns it.
type Store struct {
	items []Item
}

// New returns a store seeded with items. Duplicate names are merged.
func New(items ...Item) *Store {
	s := &Store{items: make([]Item, 0, len(items))}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add increments the entry named it.Name, inserting it if absent.
func (s *Store) Add(it Item) {
	if i := s.index(it.Name); i >= 0 {
		s.items[i].Count += it.Count
		return
	}
	s.items = append(s.items, it)
}

// Remove decrements the entry named it.Name. An unknown name is inserted with
// count -it.Count.
func (s *Store) Remove(it Item) {
	if i := s.index(it.Name); i >= 0 {
		s.items[i].Count -= it.Count
		return
	}
	s.items = append(s.items, Item{Name: it.Name, Count: -it.Count})
}

// Count reports the stored count for name.
func (s *Store) Count(name string) (int, bool) {
	if i := s.index(name); i >= 0 {
		return s.items[i].Count, true
	}
	return 0, false
}

// Len returns the number of entries, zero counts included.
func (s *Store) Len() int { return len(s.items) }

// Items returns a copy of every entry in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Snapshot returns the non-zero entries sorted by name.
func (s *Store) Snapshot() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if it.Count != 0 {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) index(name string) int {
	for i := range s.items {
		if s.items[i].Name == name {
			return i
		}
	}
	return -1
}
