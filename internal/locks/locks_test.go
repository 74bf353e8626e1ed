package locks

import (
	"sync"
	"testing"
)

func TestLockSerializesSameSection(t *testing.T) {
	km := NewKeyedMutex()

	const goroutines = 16
	const iterations = 100

	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := km.Lock("ranking")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("counter = %d, want %d", counter, goroutines*iterations)
	}
}

func TestDifferentSectionsDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("aliases")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("raw_results")
		unlockB()
		close(done)
	}()

	// Must complete while "aliases" is still held.
	<-done
}

func TestLockReusableAfterUnlock(t *testing.T) {
	km := NewKeyedMutex()
	for i := 0; i < 3; i++ {
		unlock := km.Lock("ranking")
		unlock()
	}
}
