/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

import (
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// ZeroCost with this ristretto uses the Cost function defined in its configuration
	ZeroCost = 0

	DefaultNumCounters = 1e5
	DefaultMaxCost     = 1e4
	DefaultBufferItems = 64
)

// Config is a shortcut for the ristretto Configuration.
type Config[K ristretto.Key, V any] = ristretto.Config[K, V]

// Ristretto is a Cache backed by Ristretto v2. Every entry costs one unit.
type Ristretto[T any] struct {
	cache *ristretto.Cache[string, T]
	sfg   singleflight.Group
}

func NewRistretto[T any](config *Config[string, T]) (*Ristretto[T], error) {
	rCache, err := ristretto.NewCache[string, T](config)
	if err != nil {
		return nil, err
	}
	return &Ristretto[T]{cache: rCache}, nil
}

// NewRistrettoWithSize returns a cache holding about maxEntries values
func NewRistrettoWithSize[T any](maxEntries int64) (*Ristretto[T], error) {
	return NewRistretto[T](&Config[string, T]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: DefaultBufferItems,
		Cost: func(value T) int64 {
			return 1
		},
	})
}

func NewDefaultRistretto[T any]() (*Ristretto[T], error) {
	return NewRistrettoWithSize[T](DefaultMaxCost)
}

func (c *Ristretto[T]) Get(key string) (T, bool) {
	return c.cache.Get(key)
}

func (c *Ristretto[T]) Add(key string, value T) {
	c.cache.Set(key, value, ZeroCost)
	c.cache.Wait()
}

func (c *Ristretto[T]) Delete(key string) {
	c.cache.Del(key)
	c.cache.Wait()
}

func (c *Ristretto[T]) GetOrLoad(key string, loader Loader[T]) (T, bool, error) {
	if value, found := c.Get(key); found {
		return value, true, nil
	}

	res, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		value, keep, err := loader()
		if err != nil {
			return nil, err
		}
		if keep {
			c.Add(key, value)
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), false, nil
}

// Close stops the cache's background goroutines
func (c *Ristretto[T]) Close() {
	c.cache.Close()
}
