/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cmap provides a string-keyed concurrent map split into shards so
// that lookups for unrelated documents rarely contend on the same lock.
package cmap

import (
	"hash/maphash"
	"sync"
)

const numShards = 32

var seed = maphash.MakeSeed()

type shard[V any] struct {
	sync.RWMutex
	items map[string]V
}

// Map is a concurrent map keyed by string.
type Map[V any] struct {
	shards [numShards]shard[V]
}

// New creates a new Map.
func New[V any]() *Map[V] {
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return &m.shards[maphash.String(seed, key)%numShards]
}

// Set stores value under key.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	s.items[key] = value
}

// UpsertFunc computes the value to store from the current one.
type UpsertFunc[V any] func(value V, exists bool) V

// Upsert atomically replaces the value under key with the result of fn and
// returns it. fn runs with the shard locked and must not call back into the map.
func (m *Map[V]) Upsert(key string, fn UpsertFunc[V]) V {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	v, exists := s.items[key]
	res := fn(v, exists)
	s.items[key] = res
	return res
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.RLock()
	defer s.RUnlock()

	v, exists := s.items[key]
	return v, exists
}

// DeleteFunc decides whether the current value should be removed.
type DeleteFunc[V any] func(value V, exists bool) bool

// Delete removes key if fn returns true. It reports whether an entry was
// removed.
func (m *Map[V]) Delete(key string, fn DeleteFunc[V]) bool {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	v, exists := s.items[key]
	if !fn(v, exists) || !exists {
		return false
	}
	delete(s.items, key)
	return true
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		n += len(s.items)
		s.RUnlock()
	}
	return n
}

// Keys returns a snapshot of all keys.
func (m *Map[V]) Keys() []string {
	var keys []string
	m.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns a snapshot of all values.
func (m *Map[V]) Values() []V {
	var values []V
	m.Range(func(_ string, v V) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Range calls fn for each entry until fn returns false. Entries of a shard
// are copied before fn is called, so fn may use the map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	type entry struct {
		key   string
		value V
	}

	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		entries := make([]entry, 0, len(s.items))
		for k, v := range s.items {
			entries = append(entries, entry{k, v})
		}
		s.RUnlock()

		for _, e := range entries {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}
