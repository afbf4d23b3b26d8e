package services

import "sync"

// ListingLocks serializes mutating operations per listing id: bid acceptance,
// close, delete and payment reconciliation for one listing never interleave
// their read-modify-write sequences, while different listings proceed in
// parallel. Entries are reference-counted and removed when idle.
type ListingLocks struct {
	mu    sync.Mutex
	locks map[string]*listingLock
}

type listingLock struct {
	mu   sync.Mutex
	refs int
}

func NewListingLocks() *ListingLocks {
	return &ListingLocks{locks: make(map[string]*listingLock)}
}

// Lock acquires the listing's lock and returns the release function.
func (l *ListingLocks) Lock(listingID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[listingID]
	if !ok {
		entry = &listingLock{}
		l.locks[listingID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, listingID)
		}
		l.mu.Unlock()
	}
}
