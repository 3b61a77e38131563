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

package pubsub_test

import (
	"context"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
)

func ackEvent(docID string, version int64) events.DocEvent {
	return events.DocEvent{
		Type:    events.DocAckEvent,
		DocID:   docID,
		Version: version,
	}
}

func TestPubSub(t *testing.T) {
	ctx := context.Background()

	t.Run("publish subscribe test", func(t *testing.T) {
		pubSub := pubsub.New(pubsub.Options{}, nil)

		subA, err := pubSub.Subscribe(ctx, "editor", "doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, subA)

		subB, err := pubSub.Subscribe(ctx, "agent", "doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, subB)

		other, err := pubSub.Subscribe(ctx, "editor", "other-doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, other)

		var wg gosync.WaitGroup
		for _, sub := range []*pubsub.Subscription{subA, subB} {
			wg.Add(1)
			go func(sub *pubsub.Subscription) {
				defer wg.Done()
				e := <-sub.Events()
				assert.Equal(t, ackEvent("doc", 1), e)
			}(sub)
		}

		pubSub.Publish(ctx, ackEvent("doc", 1))
		wg.Wait()

		assert.Len(t, other.Events(), 0)
		assert.Equal(t, 2, pubSub.Count("doc"))
	})

	t.Run("events keep publish order test", func(t *testing.T) {
		pubSub := pubsub.New(pubsub.Options{BufferSize: 100}, nil)
		sub, err := pubSub.Subscribe(ctx, "editor", "doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, sub)

		for v := int64(1); v <= 50; v++ {
			pubSub.Publish(ctx, ackEvent("doc", v))
		}
		for v := int64(1); v <= 50; v++ {
			e := <-sub.Events()
			assert.Equal(t, v, e.Version)
		}
	})

	t.Run("slow subscriber is dropped without blocking others test", func(t *testing.T) {
		pubSub := pubsub.New(pubsub.Options{BufferSize: 2}, nil)

		slow, err := pubSub.Subscribe(ctx, "slow", "doc")
		require.NoError(t, err)
		fast, err := pubSub.Subscribe(ctx, "fast", "doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, fast)

		received := make(chan int64, 10)
		go func() {
			for e := range fast.Events() {
				received <- e.Version
			}
			close(received)
		}()

		for v := int64(1); v <= 3; v++ {
			pubSub.Publish(ctx, ackEvent("doc", v))
			assert.Equal(t, v, <-received)
		}

		assert.True(t, slow.Dropped())
		assert.Equal(t, 1, pubSub.Count("doc"))

		var versions []int64
		for e := range slow.Events() {
			versions = append(versions, e.Version)
		}
		assert.Equal(t, []int64{1, 2}, versions)

		// unsubscribing a dropped subscription is harmless
		pubSub.Unsubscribe(ctx, slow)
		assert.Equal(t, 1, pubSub.Count("doc"))
	})

	t.Run("unsubscribe during publish test", func(t *testing.T) {
		pubSub := pubsub.New(pubsub.Options{BufferSize: 1024}, nil)

		var wg gosync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sub, err := pubSub.Subscribe(ctx, fmt.Sprintf("listener-%d", i), "doc")
				assert.NoError(t, err)
				pubSub.Unsubscribe(ctx, sub)
			}(i)
		}
		for v := int64(1); v <= 100; v++ {
			pubSub.Publish(ctx, ackEvent("doc", v))
		}
		wg.Wait()

		assert.Equal(t, 0, pubSub.Count("doc"))
	})

	t.Run("max subscribers per document limit exceeded test", func(t *testing.T) {
		limit := 2
		pubSub := pubsub.New(pubsub.Options{MaxSubscribersPerDocument: limit}, nil)

		subA, err := pubSub.Subscribe(ctx, "a", "doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, subA)

		subB, err := pubSub.Subscribe(ctx, "b", "doc")
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, subB)

		_, err = pubSub.Subscribe(ctx, "c", "doc")
		assert.ErrorIs(t, err, pubsub.ErrTooManySubscribers)
		assert.Equal(t, fmt.Sprintf("%d subscribers allowed per document: subscription limit exceeded", limit), err.Error())

		_, err = pubSub.Subscribe(ctx, "c", "other-doc")
		assert.NoError(t, err)
	})

	t.Run("max subscribers concurrent test", func(t *testing.T) {
		limit := 100
		pubSub := pubsub.New(pubsub.Options{MaxSubscribersPerDocument: limit}, nil)

		var successCount, failCount atomic.Int32
		var wg gosync.WaitGroup
		for i := 0; i < limit*2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := pubSub.Subscribe(ctx, fmt.Sprintf("l-%d", i), "doc"); err != nil {
					failCount.Add(1)
					return
				}
				successCount.Add(1)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(limit), successCount.Load())
		assert.Equal(t, int32(limit), failCount.Load())
		assert.Equal(t, limit, pubSub.Count("doc"))
	})

	t.Run("close closes every subscription test", func(t *testing.T) {
		pubSub := pubsub.New(pubsub.Options{}, nil)
		sub, err := pubSub.Subscribe(ctx, "a", "doc")
		require.NoError(t, err)

		pubSub.Close()
		_, ok := <-sub.Events()
		assert.False(t, ok)
		assert.False(t, sub.Dropped())
		assert.Equal(t, 0, pubSub.Count("doc"))
	})
}
