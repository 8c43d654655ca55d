package db

import (
	"strings"
	"sync"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// RoleLockKey identifies one role on one mass. Writers of the same key are serialized.
func RoleLockKey(ministry model.Ministry, date, massLabel string, role model.RoleKey) string {
	return strings.Join([]string{string(ministry), date, massLabel, string(role)}, "|")
}

// KeyedMutex is a set of mutexes created on demand, one per key.
// Entries are released once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the function releasing it
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size returns the number of live entries
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
