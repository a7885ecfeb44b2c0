/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

// Cache stores values by key. Implementations are safe for concurrent use.
type Cache[T any] interface {
	// Get returns the value stored under key, if any
	Get(key string) (T, bool)
	// Add stores value under key. The value is visible to Get once Add returns.
	Add(key string, value T)
	// Delete removes key
	Delete(key string)
	// GetOrLoad returns the value stored under key or, when missing, the value returned by loader.
	// Concurrent loads of the same key run loader once.
	// The boolean reports whether the value was found in the cache.
	GetOrLoad(key string, loader Loader[T]) (T, bool, error)
}

// Loader loads the value of a key missing from a cache.
// When keep is false the value is returned to the caller but not stored.
type Loader[T any] func() (value T, keep bool, err error)
