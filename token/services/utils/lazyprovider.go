/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"sync"
)

// LazyProvider creates values on first use and returns the same value afterwards
type LazyProvider[I any, V any] interface {
	Get(I) (V, error)
	Peek(input I) (V, bool)
	Delete(I) (V, bool)
	Length() int
}

func NewLazyProvider[K comparable, V any](provider func(K) (V, error)) *lazyProvider[K, K, V] {
	return NewLazyProviderWithKeyMapper[K, K, V](func(k K) K { return k }, provider)
}

func NewLazyProviderWithKeyMapper[I any, K comparable, V any](keyMapper func(I) K, provider func(I) (V, error)) *lazyProvider[I, K, V] {
	return &lazyProvider[I, K, V]{
		cache:     make(map[K]V),
		provider:  provider,
		keyMapper: keyMapper,
	}
}

type lazyProvider[I any, K comparable, V any] struct {
	cache     map[K]V
	cacheLock sync.RWMutex
	keyMapper func(I) K
	provider  func(I) (V, error)
}

func (v *lazyProvider[I, K, V]) Get(input I) (V, error) {
	key := v.keyMapper(input)
	if res, ok := v.peek(key); ok {
		return res, nil
	}

	v.cacheLock.Lock()
	defer v.cacheLock.Unlock()

	// check again, another caller might have created it
	if res, ok := v.cache[key]; ok {
		return res, nil
	}

	res, err := v.provider(input)
	if err != nil {
		var zero V
		return zero, err
	}
	v.cache[key] = res
	return res, nil
}

func (v *lazyProvider[I, K, V]) Peek(input I) (V, bool) {
	return v.peek(v.keyMapper(input))
}

func (v *lazyProvider[I, K, V]) peek(key K) (V, bool) {
	v.cacheLock.RLock()
	defer v.cacheLock.RUnlock()
	res, ok := v.cache[key]
	return res, ok
}

func (v *lazyProvider[I, K, V]) Delete(input I) (V, bool) {
	key := v.keyMapper(input)

	v.cacheLock.Lock()
	defer v.cacheLock.Unlock()
	res, ok := v.cache[key]
	if ok {
		delete(v.cache, key)
	}
	return res, ok
}

func (v *lazyProvider[I, K, V]) Length() int {
	v.cacheLock.RLock()
	defer v.cacheLock.RUnlock()
	return len(v.cache)
}
