// Package locks provides named exclusive sections. Components share one
// KeyedMutex handle and serialize on resource names instead of holding
// their own lock fields, so an operation spanning several resources can
// take a single coarse section.
package locks

import "sync"

// KeyedMutex hands out one mutex per section name.
type KeyedMutex struct {
	mu       sync.Mutex
	sections map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{sections: make(map[string]*sync.Mutex)}
}

// Lock acquires the section with the given name, creating it on first use.
// It returns the function that releases the section.
func (k *KeyedMutex) Lock(name string) func() {
	k.mu.Lock()
	m, ok := k.sections[name]
	if !ok {
		m = &sync.Mutex{}
		k.sections[name] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
