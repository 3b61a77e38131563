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

package checkpoint_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/pkg/canvas"
	"github.com/yorkie-team/canvas/server/backend/background"
	"github.com/yorkie-team/canvas/server/backend/checkpoint"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/backend/store/memory"
)

const docID = "doc-1"

type fakeSource struct {
	mu    sync.Mutex
	snap  types.Snapshot
	stats types.DocumentStats
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snap:  types.Snapshot{DocID: docID, Fingerprint: canvas.EmptyFingerprint},
		stats: types.DocumentStats{DocID: docID},
	}
}

func (f *fakeSource) edit(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snap.Content += content
	f.snap.Version++
	f.snap.Fingerprint = canvas.Fingerprint(f.snap.Content)
	f.stats.Version = f.snap.Version
	if f.stats.FirstPendingAt.IsZero() {
		f.stats.FirstPendingAt = time.Now()
	}
}

func (f *fakeSource) Stats(id string) (types.DocumentStats, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, id == docID
}

func (f *fakeSource) Peek(id string) (types.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, id == docID
}

func (f *fakeSource) Commit(_ string, cp *types.Checkpoint, takenAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cp.Version <= f.stats.CheckpointVersion {
		return
	}
	f.stats.CheckpointVersion = cp.Version
	f.stats.LastCheckpointAt = cp.CreatedAt
	f.stats.FirstPendingAt = time.Time{}
	if f.stats.Version > cp.Version {
		f.stats.FirstPendingAt = takenAt
	}
}

func (f *fakeSource) DocIDs() []string {
	return []string{docID}
}

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

type blockingStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *blockingStore) Persist(ctx context.Context, cp *types.Checkpoint) error {
	if s.calls.Add(1) == 1 {
		close(s.entered)
		<-s.release
	}
	return s.Store.Persist(ctx, cp)
}

func newMemoryStore(t *testing.T) store.Store {
	st, err := memory.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newScheduler(
	t *testing.T,
	policy checkpoint.Policy,
	src checkpoint.Source,
	st store.Store,
) (*checkpoint.Scheduler, *pubsub.PubSub) {
	ps := pubsub.New(pubsub.Options{}, nil)
	bg := background.New(nil)
	t.Cleanup(bg.Close)

	return checkpoint.New(checkpoint.Options{Policy: policy}, src, st, ps, bg, nil), ps
}

func TestPolicy(t *testing.T) {
	policy := checkpoint.DefaultPolicy()
	now := time.Now()

	t.Run("clean document is never due test", func(t *testing.T) {
		stats := types.DocumentStats{Version: 7, CheckpointVersion: 7, FirstPendingAt: now.Add(-time.Hour)}
		assert.False(t, policy.Due(stats, now))
	})

	t.Run("time trigger test", func(t *testing.T) {
		stats := types.DocumentStats{Version: 1, FirstPendingAt: now.Add(-9 * time.Second)}
		assert.False(t, policy.Due(stats, now))

		stats.FirstPendingAt = now.Add(-10 * time.Second)
		assert.True(t, policy.Due(stats, now))
	})

	t.Run("count trigger test", func(t *testing.T) {
		stats := types.DocumentStats{Version: 149, CheckpointVersion: 100, FirstPendingAt: now}
		assert.False(t, policy.Due(stats, now))

		stats.Version = 150
		assert.True(t, policy.Due(stats, now))
	})
}

func TestConfig(t *testing.T) {
	conf := checkpoint.Config{
		Interval:              "10s",
		Threshold:             50,
		TickInterval:          "1s",
		FailureAlertThreshold: 3,
	}
	assert.NoError(t, conf.Validate())

	opts, err := conf.Options()
	assert.NoError(t, err)
	assert.Equal(t, checkpoint.DefaultPolicy(), opts.Policy)

	conf.Threshold = 0
	assert.Error(t, conf.Validate())
}

func TestScheduler(t *testing.T) {
	ctx := context.Background()

	t.Run("flush of clean document is a no-op test", func(t *testing.T) {
		st := newMemoryStore(t)
		s, _ := newScheduler(t, checkpoint.DefaultPolicy(), newFakeSource(), st)

		assert.NoError(t, s.Flush(ctx, docID))
		_, err := st.Load(ctx, docID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("flush persists and publishes test", func(t *testing.T) {
		src := newFakeSource()
		st := newMemoryStore(t)
		s, ps := newScheduler(t, checkpoint.DefaultPolicy(), src, st)

		sub, err := ps.Subscribe(ctx, "listener", docID)
		require.NoError(t, err)

		src.edit("hello")
		src.edit(" world")
		require.NoError(t, s.Flush(ctx, docID))

		cp, err := st.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "hello world", cp.Content)
		assert.Equal(t, int64(2), cp.Version)

		stats, _ := src.Stats(docID)
		assert.Equal(t, int64(0), stats.PendingOperations())

		evt := <-sub.Events()
		assert.Equal(t, events.DocCheckpointEvent, evt.Type)
		assert.Equal(t, int64(2), evt.Version)
	})

	t.Run("failed flush keeps memory state test", func(t *testing.T) {
		src := newFakeSource()
		st := &flakyStore{Store: newMemoryStore(t)}
		s, _ := newScheduler(t, checkpoint.DefaultPolicy(), src, st)

		src.edit("draft")
		st.fail.Store(true)
		for i := 1; i <= 4; i++ {
			assert.Error(t, s.Flush(ctx, docID))
			assert.Equal(t, i, s.Failures(docID))
		}

		stats, _ := src.Stats(docID)
		assert.True(t, stats.Dirty())
		assert.Equal(t, int64(1), stats.PendingOperations())

		st.fail.Store(false)
		assert.NoError(t, s.Flush(ctx, docID))
		assert.Equal(t, 0, s.Failures(docID))

		cp, err := st.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "draft", cp.Content)
	})

	t.Run("evaluate flushes when threshold is reached test", func(t *testing.T) {
		src := newFakeSource()
		st := newMemoryStore(t)
		s, _ := newScheduler(t, checkpoint.Policy{Interval: time.Hour, Threshold: 3}, src, st)

		src.edit("a")
		src.edit("b")
		s.Evaluate(ctx, docID)
		time.Sleep(10 * time.Millisecond)
		_, err := st.Load(ctx, docID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		src.edit("c")
		s.Evaluate(ctx, docID)
		assert.Eventually(t, func() bool {
			cp, err := st.Load(ctx, docID)
			return err == nil && cp.Version == 3
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("one flush in flight per document test", func(t *testing.T) {
		src := newFakeSource()
		st := &blockingStore{
			Store:   newMemoryStore(t),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		s, _ := newScheduler(t, checkpoint.Policy{Interval: time.Hour, Threshold: 1}, src, st)

		src.edit("a")
		done := make(chan error, 1)
		go func() { done <- s.Flush(ctx, docID) }()
		<-st.entered

		// edits made during the flush are picked up by the deferred run
		src.edit("b")
		assert.NoError(t, s.Flush(ctx, docID))
		assert.Equal(t, int32(1), st.calls.Load())

		close(st.release)
		assert.NoError(t, <-done)

		assert.Eventually(t, func() bool {
			stats, _ := src.Stats(docID)
			return !stats.Dirty()
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(2), st.calls.Load())

		history, err := st.History(ctx, docID, 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "ab", history[0].Content)
		assert.Equal(t, "a", history[1].Content)
	})

	t.Run("flush requested during a flush is not dropped by the policy test", func(t *testing.T) {
		src := newFakeSource()
		st := &blockingStore{
			Store:   newMemoryStore(t),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		s, _ := newScheduler(t, checkpoint.Policy{Interval: time.Hour, Threshold: 100}, src, st)

		src.edit("a")
		done := make(chan error, 1)
		go func() { done <- s.Flush(ctx, docID) }()
		<-st.entered

		src.edit("b")
		assert.NoError(t, s.Flush(ctx, docID))

		// a policy check in between leaves the deferred request in place
		s.Evaluate(ctx, docID)

		close(st.release)
		assert.NoError(t, <-done)

		assert.Eventually(t, func() bool {
			stats, _ := src.Stats(docID)
			return !stats.Dirty() && stats.CheckpointVersion == 2
		}, time.Second, 5*time.Millisecond)

		cp, err := st.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "ab", cp.Content)
	})

	t.Run("flush wait waits for in-flight flush test", func(t *testing.T) {
		src := newFakeSource()
		st := &blockingStore{
			Store:   newMemoryStore(t),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		s, _ := newScheduler(t, checkpoint.Policy{Interval: time.Hour, Threshold: 100}, src, st)

		src.edit("a")
		go func() { _ = s.Flush(ctx, docID) }()
		<-st.entered
		src.edit("b")

		waited := make(chan error, 1)
		go func() { waited <- s.FlushWait(ctx, docID) }()

		select {
		case <-waited:
			t.Fatal("flush wait returned while a flush was in flight")
		case <-time.After(20 * time.Millisecond):
		}

		close(st.release)
		assert.NoError(t, <-waited)

		stats, _ := src.Stats(docID)
		assert.False(t, stats.Dirty())
	})

	t.Run("tick fires the time trigger test", func(t *testing.T) {
		src := newFakeSource()
		st := newMemoryStore(t)
		s, _ := newScheduler(t, checkpoint.Policy{Interval: 20 * time.Millisecond, Threshold: 100}, src, st)

		src.edit("x")
		assert.NoError(t, s.Tick(ctx))
		time.Sleep(10 * time.Millisecond)
		stats, _ := src.Stats(docID)
		assert.True(t, stats.Dirty())

		assert.Eventually(t, func() bool {
			_ = s.Tick(ctx)
			stats, _ := src.Stats(docID)
			return !stats.Dirty()
		}, time.Second, 10*time.Millisecond)
	})
}
