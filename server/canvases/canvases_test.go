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

package canvases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/pkg/canvas"
	pkgerrors "github.com/yorkie-team/canvas/pkg/errors"
	"github.com/yorkie-team/canvas/server/backend/background"
	"github.com/yorkie-team/canvas/server/backend/checkpoint"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/backend/store/memory"
)

type flakyStore struct {
	store.Store
	fail atomic.Bool
}

func (s *flakyStore) Persist(ctx context.Context, cp *types.Checkpoint) error {
	if s.fail.Load() {
		return errors.New("connection refused")
	}
	return s.Store.Persist(ctx, cp)
}

func newTestConfig() *Config {
	return &Config{
		LockTimeout:        "50ms",
		MaxContentLength:   100,
		SeenOperationsSize: 16,
		CloseRetries:       1,
	}
}

func newTestManager(t *testing.T, st store.Store, policy checkpoint.Policy) (*Manager, *pubsub.PubSub) {
	ps := pubsub.New(pubsub.Options{}, nil)
	bg := background.New(nil)
	t.Cleanup(bg.Close)

	m, err := New(newTestConfig(), checkpoint.Options{Policy: policy}, st, ps, bg, nil)
	require.NoError(t, err)
	return m, ps
}

func newMemoryStore(t *testing.T) store.Store {
	st, err := memory.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// lazyPolicy never fires on its own during a test.
var lazyPolicy = checkpoint.Policy{Interval: time.Hour, Threshold: 1000}

func insert(base int64, pos int, content string) types.Operation {
	return types.Operation{BaseVersion: base, Kind: types.OpInsert, Position: pos, Content: content}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("ack advances version test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)

		res, err := m.Submit(ctx, "doc", insert(0, 0, "hello"))
		require.NoError(t, err)
		assert.Equal(t, types.StatusAck, res.Status)
		assert.Equal(t, int64(1), res.Version)

		res, err = m.Submit(ctx, "doc", types.Operation{
			BaseVersion: 1, Kind: types.OpReplace, Position: 0, Length: 1, Content: "J",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Version)

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, "Jello", snap.Content)
		assert.Equal(t, res.Fingerprint, snap.Fingerprint)

		stats, ok := m.Stats("doc")
		assert.True(t, ok)
		assert.Equal(t, int64(2), stats.PendingOperations())
		assert.True(t, stats.Dirty())
	})

	t.Run("conflicts leave the document unchanged test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		_, err := m.Submit(ctx, "doc", insert(0, 0, "abc"))
		require.NoError(t, err)

		res, err := m.Submit(ctx, "doc", insert(0, 0, "x"))
		require.NoError(t, err)
		assert.Equal(t, types.StatusConflict, res.Status)
		assert.Equal(t, types.ReasonStaleBaseVersion, res.Reason)
		assert.Equal(t, int64(1), res.Version)

		res, err = m.Submit(ctx, "doc", types.Operation{BaseVersion: 1, Kind: types.OpDelete, Position: 2, Length: 5})
		require.NoError(t, err)
		assert.Equal(t, types.ReasonOutOfBounds, res.Reason)

		res, err = m.Submit(ctx, "doc", types.Operation{BaseVersion: 1, Kind: "move", Position: 0})
		require.NoError(t, err)
		assert.Equal(t, types.ReasonUnknownKind, res.Reason)

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, "abc", snap.Content)
		assert.Equal(t, int64(1), snap.Version)
	})

	t.Run("malformed operation is rejected test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)

		res, err := m.Submit(ctx, "doc", insert(0, 0, ""))
		require.NoError(t, err)
		assert.Equal(t, types.StatusRejected, res.Status)
		assert.NotEmpty(t, res.Message)

		res, err = m.Submit(ctx, "doc", insert(0, 0, string(make([]byte, 101))))
		require.NoError(t, err)
		assert.Equal(t, types.StatusRejected, res.Status)

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, int64(0), snap.Version)
	})

	t.Run("invalid document id test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)

		_, err := m.Submit(ctx, "bad id/with slash", insert(0, 0, "x"))
		assert.ErrorIs(t, err, ErrInvalidDocID)
		assert.Equal(t, pkgerrors.ErrCodeInvalidArgument, pkgerrors.StatusOf(err))
	})

	t.Run("resubmitted operation id is acknowledged once test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)

		op := insert(0, 0, "a")
		op.OpID = "op-1"
		first, err := m.Submit(ctx, "doc", op)
		require.NoError(t, err)
		assert.False(t, first.Duplicate)

		again, err := m.Submit(ctx, "doc", op)
		require.NoError(t, err)
		assert.Equal(t, types.StatusAck, again.Status)
		assert.True(t, again.Duplicate)
		assert.Equal(t, first.Version, again.Version)

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, "a", snap.Content)
	})

	t.Run("busy document fails fast test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		_, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)

		require.NoError(t, m.locker.Lock(ctx, "doc"))
		_, err = m.Submit(ctx, "doc", insert(0, 0, "x"))
		assert.ErrorIs(t, err, ErrDocumentBusy)
		assert.True(t, pkgerrors.IsRetryable(err))
		require.NoError(t, m.locker.Unlock("doc"))

		// other documents are not affected by the held lock
		require.NoError(t, m.locker.Lock(ctx, "doc"))
		res, err := m.Submit(ctx, "other", insert(0, 0, "x"))
		assert.NoError(t, err)
		assert.True(t, res.Acked())
		require.NoError(t, m.locker.Unlock("doc"))
	})

	t.Run("results are broadcast in version order test", func(t *testing.T) {
		m, ps := newTestManager(t, newMemoryStore(t), lazyPolicy)
		sub, err := ps.Subscribe(ctx, "listener", "doc")
		require.NoError(t, err)

		for i := int64(0); i < 5; i++ {
			_, err := m.Submit(ctx, "doc", insert(i, 0, "x"))
			require.NoError(t, err)
		}
		_, err = m.Submit(ctx, "doc", insert(0, 0, "late"))
		require.NoError(t, err)

		for i := int64(1); i <= 5; i++ {
			evt := <-sub.Events()
			assert.Equal(t, events.DocAckEvent, evt.Type)
			assert.Equal(t, i, evt.Version)
			require.NotNil(t, evt.Operation)
		}
		evt := <-sub.Events()
		assert.Equal(t, events.DocConflictEvent, evt.Type)
		assert.Equal(t, types.ReasonStaleBaseVersion, evt.Reason)
	})

	t.Run("apply fault leaves the document unchanged test", func(t *testing.T) {
		m, ps := newTestManager(t, newMemoryStore(t), lazyPolicy)
		m.apply = faultyApply
		_, err := m.Submit(ctx, "doc", insert(0, 0, "abc"))
		require.NoError(t, err)
		before, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)

		sub, err := ps.Subscribe(ctx, "listener", "doc")
		require.NoError(t, err)

		_, err = m.Submit(ctx, "doc", insert(1, 0, "boom"))
		assert.ErrorIs(t, err, ErrApplyFault)
		assert.False(t, pkgerrors.IsRetryable(err))

		after, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, before, after)

		select {
		case evt := <-sub.Events():
			assert.Fail(t, "unexpected event", "%v", evt.Type)
		default:
		}

		res, err := m.Submit(ctx, "doc", insert(1, 3, "d"))
		require.NoError(t, err)
		assert.True(t, res.Acked())
		assert.Equal(t, int64(2), res.Version)

		evt := <-sub.Events()
		assert.Equal(t, events.DocAckEvent, evt.Type)
		assert.Equal(t, int64(2), evt.Version)
	})

	t.Run("applier panic becomes an apply fault test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		m.apply = func(types.Operation, string) (string, error) {
			panic("index out of range")
		}

		_, err := m.Submit(ctx, "doc", insert(0, 0, "x"))
		assert.ErrorIs(t, err, ErrApplyFault)

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, int64(0), snap.Version)
	})
}

// faultyApply fails every operation that inserts "boom".
func faultyApply(op types.Operation, content string) (string, error) {
	if op.Content == "boom" {
		return "", errors.New("applier broke")
	}
	return canvas.Apply(op, content)
}

func TestSubmitBatch(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)

	results, err := m.SubmitBatch(ctx, "doc", []types.Operation{
		insert(0, 0, "a"),
		insert(0, 0, "b"),
		{OpID: "third", BaseVersion: 2, Kind: types.OpInsert, Content: "c"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, types.StatusAck, results[0].Status)
	assert.Equal(t, types.StatusConflict, results[1].Status)
	assert.Equal(t, types.StatusSkipped, results[2].Status)
	assert.Equal(t, "third", results[2].OpID)

	_, err = m.SubmitBatch(ctx, "doc", nil)
	assert.ErrorIs(t, err, ErrInvalidBatch)

	_, err = m.SubmitBatch(ctx, "doc", make([]types.Operation, MaxBatchSize+1))
	assert.ErrorIs(t, err, ErrInvalidBatch)

	t.Run("failure after an ack keeps the ack test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		m.apply = faultyApply

		results, err := m.SubmitBatch(ctx, "doc", []types.Operation{
			{OpID: "first", BaseVersion: 0, Kind: types.OpInsert, Content: "a"},
			{OpID: "second", BaseVersion: 1, Kind: types.OpInsert, Content: "boom"},
			{OpID: "third", BaseVersion: 1, Kind: types.OpInsert, Content: "c"},
		})
		assert.ErrorIs(t, err, ErrApplyFault)
		require.Len(t, results, 3)

		assert.Equal(t, types.StatusAck, results[0].Status)
		assert.Equal(t, int64(1), results[0].Version)

		assert.Equal(t, types.StatusFault, results[1].Status)
		assert.Equal(t, "second", results[1].OpID)
		assert.Equal(t, "ErrApplyFault", results[1].Code)
		assert.False(t, results[1].Retryable)
		assert.Equal(t, int64(1), results[1].Version)
		assert.Equal(t, results[0].Fingerprint, results[1].Fingerprint)

		assert.Equal(t, types.StatusSkipped, results[2].Status)
		assert.Equal(t, "third", results[2].OpID)

		// resubmitting the acked operation is recognized instead of conflicting
		res, err := m.Submit(ctx, "doc", types.Operation{OpID: "first", BaseVersion: 0, Kind: types.OpInsert, Content: "a"})
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Equal(t, int64(1), res.Version)
	})

	t.Run("failure on the first operation returns no results test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		_, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)

		require.NoError(t, m.locker.Lock(ctx, "doc"))
		results, err := m.SubmitBatch(ctx, "doc", []types.Operation{insert(0, 0, "a")})
		require.NoError(t, m.locker.Unlock("doc"))

		assert.ErrorIs(t, err, ErrDocumentBusy)
		assert.Empty(t, results)
	})
}

func TestConcurrentSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("same base version race test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		_, err := m.Submit(ctx, "doc", insert(0, 0, "base"))
		require.NoError(t, err)

		results := make([]types.Result, 2)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := m.Submit(ctx, "doc", insert(1, 0, fmt.Sprintf("%d", i)))
				assert.NoError(t, err)
				results[i] = res
			}(i)
		}
		wg.Wait()

		acks := 0
		for _, res := range results {
			if res.Acked() {
				acks++
				assert.Equal(t, int64(2), res.Version)
			} else {
				assert.Equal(t, types.ReasonStaleBaseVersion, res.Reason)
				assert.Equal(t, int64(2), res.Version)
			}
		}
		assert.Equal(t, 1, acks)
	})

	t.Run("versions are gapless under contention test", func(t *testing.T) {
		m, _ := newTestManager(t, newMemoryStore(t), lazyPolicy)
		m.lockTimeout = time.Second

		const writers = 8
		const perWriter = 5

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := 0; n < perWriter; {
					snap, err := m.Snapshot(ctx, "doc")
					if !assert.NoError(t, err) {
						return
					}
					res, err := m.Submit(ctx, "doc", insert(snap.Version, 0, "x"))
					if !assert.NoError(t, err) {
						return
					}
					if res.Acked() {
						n++
					}
				}
			}()
		}
		wg.Wait()

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, int64(writers*perWriter), snap.Version)
		assert.Len(t, snap.Content, writers*perWriter)
	})
}

func TestCheckpointing(t *testing.T) {
	ctx := context.Background()

	t.Run("count trigger persists in the background test", func(t *testing.T) {
		st := newMemoryStore(t)
		m, _ := newTestManager(t, st, checkpoint.Policy{Interval: time.Hour, Threshold: 3})

		for i := int64(0); i < 3; i++ {
			_, err := m.Submit(ctx, "doc", insert(i, 0, "x"))
			require.NoError(t, err)
		}

		assert.Eventually(t, func() bool {
			stats, _ := m.Stats("doc")
			return !stats.Dirty() && stats.CheckpointVersion == 3
		}, time.Second, 5*time.Millisecond)

		cp, err := st.Load(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, "xxx", cp.Content)
	})

	t.Run("restart recovers the last checkpoint test", func(t *testing.T) {
		st := newMemoryStore(t)
		m1, _ := newTestManager(t, st, lazyPolicy)

		_, err := m1.Submit(ctx, "doc", insert(0, 0, "hello"))
		require.NoError(t, err)
		_, err = m1.Submit(ctx, "doc", insert(1, 5, " world"))
		require.NoError(t, err)
		require.NoError(t, m1.Checkpoints().Flush(ctx, "doc"))

		// lost in the crash
		_, err = m1.Submit(ctx, "doc", insert(2, 0, ">"))
		require.NoError(t, err)

		m2, _ := newTestManager(t, st, lazyPolicy)
		snap, err := m2.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, "hello world", snap.Content)
		assert.Equal(t, int64(2), snap.Version)

		stats, ok := m2.Stats("doc")
		require.True(t, ok)
		assert.False(t, stats.Dirty())

		res, err := m2.Submit(ctx, "doc", insert(2, 11, "!"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Version)
	})

	t.Run("restart after the count trigger loses only later operations test", func(t *testing.T) {
		st := newMemoryStore(t)
		m1, _ := newTestManager(t, st, checkpoint.Policy{Interval: 10 * time.Second, Threshold: 50})

		for i := int64(0); i < 50; i++ {
			res, err := m1.Submit(ctx, "doc", insert(i, int(i), "x"))
			require.NoError(t, err)
			require.True(t, res.Acked())
		}
		assert.Eventually(t, func() bool {
			stats, _ := m1.Stats("doc")
			return stats.CheckpointVersion == 50
		}, time.Second, 5*time.Millisecond)

		res, err := m1.Submit(ctx, "doc", insert(50, 50, "y"))
		require.NoError(t, err)
		assert.Equal(t, int64(51), res.Version)

		stats, _ := m1.Stats("doc")
		assert.Equal(t, int64(1), stats.PendingOperations())

		m2, _ := newTestManager(t, st, lazyPolicy)
		snap, err := m2.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, int64(50), snap.Version)
		assert.Equal(t, strings.Repeat("x", 50), snap.Content)
	})

	t.Run("close persists and evicts test", func(t *testing.T) {
		st := newMemoryStore(t)
		m, _ := newTestManager(t, st, lazyPolicy)

		_, err := m.Submit(ctx, "doc", insert(0, 0, "draft"))
		require.NoError(t, err)
		require.NoError(t, m.Close(ctx, "doc", false))

		_, ok := m.Stats("doc")
		assert.False(t, ok)

		cp, err := st.Load(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, "draft", cp.Content)

		snap, err := m.Snapshot(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, int64(1), snap.Version)

		// closing a clean document writes nothing new
		require.NoError(t, m.Close(ctx, "doc", false))
		history, err := st.History(ctx, "doc", 0)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("close keeps the document when the store fails test", func(t *testing.T) {
		st := &flakyStore{Store: newMemoryStore(t)}
		m, _ := newTestManager(t, st, lazyPolicy)

		_, err := m.Submit(ctx, "doc", insert(0, 0, "draft"))
		require.NoError(t, err)

		st.fail.Store(true)
		assert.Error(t, m.Close(ctx, "doc", false))

		stats, ok := m.Stats("doc")
		require.True(t, ok)
		assert.Equal(t, int64(1), stats.PendingOperations())

		res, err := m.Submit(ctx, "doc", insert(1, 5, "!"))
		require.NoError(t, err)
		assert.True(t, res.Acked())

		assert.NoError(t, m.Close(ctx, "doc", true))
		_, ok = m.Stats("doc")
		assert.False(t, ok)
	})

	t.Run("idle documents without listeners are evicted test", func(t *testing.T) {
		m, ps := newTestManager(t, newMemoryStore(t), lazyPolicy)

		_, err := m.Submit(ctx, "watched", insert(0, 0, "a"))
		require.NoError(t, err)
		_, err = m.Submit(ctx, "idle", insert(0, 0, "b"))
		require.NoError(t, err)

		sub, err := ps.Subscribe(ctx, "listener", "watched")
		require.NoError(t, err)

		require.NoError(t, m.EvictIdle(ctx, 0))
		assert.ElementsMatch(t, []string{"watched"}, m.DocIDs())

		ps.Unsubscribe(ctx, sub)
		require.NoError(t, m.EvictIdle(ctx, time.Hour))
		assert.ElementsMatch(t, []string{"watched"}, m.DocIDs())
	})

	t.Run("shutdown flushes every document test", func(t *testing.T) {
		st := newMemoryStore(t)
		m, _ := newTestManager(t, st, lazyPolicy)

		for _, id := range []string{"a", "b", "c"} {
			_, err := m.Submit(ctx, id, insert(0, 0, id))
			require.NoError(t, err)
		}
		require.NoError(t, m.Shutdown(ctx))
		assert.Empty(t, m.DocIDs())

		for _, id := range []string{"a", "b", "c"} {
			cp, err := st.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, cp.Content)
		}
	})
}
