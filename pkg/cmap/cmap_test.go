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

package cmap_test

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/canvas/pkg/cmap"
)

func TestMap(t *testing.T) {
	t.Run("set and get test", func(t *testing.T) {
		m := cmap.New[int]()

		m.Set("a", 1)
		v, exists := m.Get("a")
		assert.True(t, exists)
		assert.Equal(t, 1, v)

		v, exists = m.Get("b")
		assert.False(t, exists)
		assert.Equal(t, 0, v)
		assert.True(t, m.Has("a"))
	})

	t.Run("upsert test", func(t *testing.T) {
		m := cmap.New[int]()
		inc := func(val int, exists bool) int {
			if exists {
				return val + 1
			}
			return 1
		}

		assert.Equal(t, 1, m.Upsert("a", inc))
		assert.Equal(t, 2, m.Upsert("a", inc))
	})

	t.Run("delete test", func(t *testing.T) {
		m := cmap.New[int]()
		m.Set("a", 1)

		assert.False(t, m.Delete("a", func(val int, exists bool) bool {
			return val == 2
		}))
		assert.True(t, m.Has("a"))

		assert.True(t, m.Delete("a", func(val int, exists bool) bool {
			return exists
		}))
		assert.False(t, m.Has("a"))
		assert.False(t, m.Delete("a", func(int, bool) bool { return true }))
	})

	t.Run("keys values and range test", func(t *testing.T) {
		m := cmap.New[int]()
		for i := 0; i < 100; i++ {
			m.Set(fmt.Sprintf("doc-%d", i), i)
		}

		assert.Equal(t, 100, m.Len())
		assert.Len(t, m.Keys(), 100)

		values := m.Values()
		sort.Ints(values)
		assert.Equal(t, 0, values[0])
		assert.Equal(t, 99, values[99])

		visited := 0
		m.Range(func(key string, value int) bool {
			visited++
			m.Set(key, value+1)
			return visited < 10
		})
		assert.Equal(t, 10, visited)
	})

	t.Run("concurrent upsert test", func(t *testing.T) {
		m := cmap.New[int]()
		var wg sync.WaitGroup
		for i := 0; i < 1000; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.Upsert("counter", func(val int, _ bool) int { return val + 1 })
			}()
		}
		wg.Wait()

		v, _ := m.Get("counter")
		assert.Equal(t, 1000, v)
	})
}
