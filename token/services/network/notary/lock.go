/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"slices"
	"sync"
)

// keyedMutex hands out one mutex per key.
// Entries are dropped once no goroutine holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

// Lock acquires the locks of all the passed keys, in a global order, and returns the function releasing them
func (k *keyedMutex) Lock(keys ...string) func() {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	acquired := make([]*refMutex, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		l, ok := k.locks[key]
		if !ok {
			l = &refMutex{}
			k.locks[key] = l
		}
		l.refs++
		k.mu.Unlock()

		l.Lock()
		acquired = append(acquired, l)
	}

	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
			k.mu.Lock()
			acquired[i].refs--
			if acquired[i].refs == 0 {
				delete(k.locks, keys[i])
			}
			k.mu.Unlock()
		}
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
