/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

// NoCache implements a dummy cache that does nothing
type NoCache[T any] struct{}

// NewNoCache returns a new instance of NoCache
func NewNoCache[T any]() *NoCache[T] {
	return &NoCache[T]{}
}

func (n *NoCache[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (n *NoCache[T]) GetOrLoad(_ string, loader Loader[T]) (T, bool, error) {
	v, _, err := loader()
	return v, false, err
}

func (n *NoCache[T]) Add(string, T) {}

func (n *NoCache[T]) Delete(string) {}
