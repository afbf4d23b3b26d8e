package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListingLocks_SerializesSameListing(t *testing.T) {
	locks := NewListingLocks()

	const workers = 100
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := locks.Lock("listing-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, workers, counter)
}

func TestListingLocks_DifferentListingsDoNotBlock(t *testing.T) {
	locks := NewListingLocks()

	unlockA := locks.Lock("listing-a")

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("listing-b")
		unlockB()
		close(done)
	}()

	<-done // would deadlock if listing-b waited on listing-a
	unlockA()
}

func TestListingLocks_EntriesRemovedWhenIdle(t *testing.T) {
	locks := NewListingLocks()

	unlock := locks.Lock("listing-1")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	require.Empty(t, locks.locks)
}

func TestListingLocks_Reentry(t *testing.T) {
	locks := NewListingLocks()

	for i := 0; i < 10; i++ {
		unlock := locks.Lock("listing-1")
		unlock()
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	require.Empty(t, locks.locks)
}
