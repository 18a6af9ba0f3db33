package ledger

import "sort"

// Store owns the ledgers for all known list ids. Lists are created empty on
// first reference and live for the process lifetime; lists never interact, so
// no cross-list coordination exists.
type Store struct {
	lists map[int64]*List
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{lists: make(map[int64]*List)}
}

// List returns the ledger for the given id, creating it on first use.
func (s *Store) List(id int64) *List {
	l, ok := s.lists[id]
	if !ok {
		l = NewList(id)
		s.lists[id] = l
	}
	return l
}

// IDs returns the known list ids in ascending order.
func (s *Store) IDs() []int64 {
	ids := make([]int64, 0, len(s.lists))
	for id := range s.lists {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
