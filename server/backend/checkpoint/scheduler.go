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

// Package checkpoint persists hot documents to the durable store when their
// unpersisted changes become too old or too many.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/pkg/cmap"
	"github.com/yorkie-team/canvas/pkg/locker"
	"github.com/yorkie-team/canvas/server/backend/background"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
)

// Source exposes the hot documents the scheduler flushes.
type Source interface {
	// Stats returns the counters of a hot document.
	Stats(docID string) (types.DocumentStats, bool)

	// Peek returns the current snapshot of a hot document without loading
	// it.
	Peek(docID string) (types.Snapshot, bool)

	// Commit records that cp was persisted. takenAt is the time cp's
	// snapshot was read.
	Commit(docID string, cp *types.Checkpoint, takenAt time.Time)

	// DocIDs returns the ids of the hot documents.
	DocIDs() []string
}

// Options configures a Scheduler.
type Options struct {
	Policy                Policy
	FailureAlertThreshold int
}

// Scheduler flushes documents of a Source to a Store. At most one flush per
// document is in flight. A request made during a flush runs when the flush
// finishes: an explicit Flush unconditionally, an Evaluate only if the policy
// is still due.
type Scheduler struct {
	opts       Options
	source     Source
	store      store.Store
	pubsub     *pubsub.PubSub
	background *background.Background
	metrics    *prometheus.Metrics

	flushing *locker.Locker
	// deferred holds the requests made while a flush was in flight. The
	// value is true if one of them was an explicit Flush.
	deferred *cmap.Map[bool]
	failures *cmap.Map[int]

	now func() time.Time
}

// New creates a scheduler.
func New(
	opts Options,
	source Source,
	st store.Store,
	ps *pubsub.PubSub,
	bg *background.Background,
	metrics *prometheus.Metrics,
) *Scheduler {
	if opts.FailureAlertThreshold <= 0 {
		opts.FailureAlertThreshold = DefaultFailureAlertThreshold
	}

	return &Scheduler{
		opts:       opts,
		source:     source,
		store:      st,
		pubsub:     ps,
		background: bg,
		metrics:    metrics,
		flushing:   locker.New(),
		deferred:   cmap.New[bool](),
		failures:   cmap.New[int](),
		now:        time.Now,
	}
}

// Policy returns the trigger policy.
func (s *Scheduler) Policy() Policy {
	return s.opts.Policy
}

// Evaluate starts an asynchronous flush of docID if its policy is due.
func (s *Scheduler) Evaluate(ctx context.Context, docID string) {
	stats, ok := s.source.Stats(docID)
	if !ok || !s.opts.Policy.Due(stats, s.now()) {
		return
	}

	s.flushInBackground(ctx, docID, false)
}

// Flush persists docID if it is dirty. It never waits: when a flush of the
// same document is in flight the request is deferred to its end, where it
// runs regardless of the policy.
func (s *Scheduler) Flush(ctx context.Context, docID string) error {
	if !s.flushing.TryLock(docID) {
		s.deferTo(docID, true)
		return nil
	}

	return s.flushAndRelease(ctx, docID)
}

// FlushWait persists docID if it is dirty, waiting for an in-flight flush of
// the same document to finish first.
func (s *Scheduler) FlushWait(ctx context.Context, docID string) error {
	if err := s.flushing.Lock(ctx, docID); err != nil {
		return fmt.Errorf("wait for flush of %s: %w", docID, err)
	}

	return s.flushAndRelease(ctx, docID)
}

// Tick re-evaluates every hot document so that time triggers and retries
// fire without new edits. It is registered as a housekeeping task.
func (s *Scheduler) Tick(ctx context.Context) error {
	for _, docID := range s.source.DocIDs() {
		s.Evaluate(ctx, docID)
	}
	return nil
}

// Forget drops the failure record of an evicted document.
func (s *Scheduler) Forget(docID string) {
	s.clearFailures(docID)
	s.deferred.Delete(docID, func(_ bool, exists bool) bool { return exists })
}

// Failures returns the number of consecutive failed flushes of docID.
func (s *Scheduler) Failures(docID string) int {
	n, _ := s.failures.Get(docID)
	return n
}

func (s *Scheduler) flushAndRelease(ctx context.Context, docID string) error {
	err := s.flush(ctx, docID)
	s.release(ctx, docID, true)
	return err
}

// flushInBackground starts a flush of docID on a background goroutine, or
// defers it if a flush is in flight.
func (s *Scheduler) flushInBackground(ctx context.Context, docID string, forced bool) {
	if !s.flushing.TryLock(docID) {
		s.deferTo(docID, forced)
		return
	}

	if !s.background.AttachGoroutine(func(ctx context.Context) {
		_ = s.flushAndRelease(ctx, docID)
	}, "checkpoint") {
		s.release(ctx, docID, false)
	}
}

// deferTo records a request to run after the in-flight flush of docID.
func (s *Scheduler) deferTo(docID string, forced bool) {
	s.deferred.Upsert(docID, func(prev bool, exists bool) bool {
		return forced || (exists && prev)
	})
}

// release gives up the flush slot of docID and, when requested, runs the
// requests deferred while the slot was taken.
func (s *Scheduler) release(ctx context.Context, docID string, rerun bool) {
	if err := s.flushing.Unlock(docID); err != nil {
		logging.From(ctx).Errorf("release flush of %s: %v", docID, err)
		return
	}

	var forced bool
	wasDeferred := s.deferred.Delete(docID, func(f bool, exists bool) bool {
		forced = f
		return exists
	})
	if !rerun || !wasDeferred {
		return
	}

	if forced {
		s.flushInBackground(ctx, docID, true)
		return
	}
	s.Evaluate(ctx, docID)
}

func (s *Scheduler) flush(ctx context.Context, docID string) error {
	snap, ok := s.source.Peek(docID)
	if !ok {
		return nil
	}
	stats, ok := s.source.Stats(docID)
	if !ok || stats.CheckpointVersion >= snap.Version {
		return nil
	}

	takenAt := s.now()
	cp := store.NewCheckpoint(snap, takenAt)

	start := time.Now()
	err := s.store.Persist(ctx, cp)
	s.metrics.ObserveCheckpointSeconds(time.Since(start).Seconds())
	if err != nil {
		s.recordFailure(ctx, docID, snap, err)
		return fmt.Errorf("persist checkpoint of %s at %d: %w", docID, snap.Version, err)
	}

	s.source.Commit(docID, cp, takenAt)
	s.clearFailures(docID)
	s.metrics.AddCheckpoint("success")
	s.pubsub.Publish(ctx, events.NewCheckpointEvent(cp))

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(
			"CKPT: %s persisted at %d (%d pending)",
			docID, cp.Version, stats.PendingOperations(),
		)
	}
	return nil
}

func (s *Scheduler) recordFailure(ctx context.Context, docID string, snap types.Snapshot, err error) {
	s.metrics.AddCheckpoint("failure")

	n := s.failures.Upsert(docID, func(n int, _ bool) int { return n + 1 })
	logger := logging.From(ctx)
	if n < s.opts.FailureAlertThreshold {
		logger.Warnf("CKPT: %s at %d failed (%d in a row): %v", docID, snap.Version, n, err)
		return
	}

	if n == s.opts.FailureAlertThreshold {
		s.metrics.AddCheckpointFailingDocuments(1)
	}
	logger.Errorf(
		"CKPT: %s at %d failed %d times in a row, changes are only in memory: %v",
		docID, snap.Version, n, err,
	)
}

func (s *Scheduler) clearFailures(docID string) {
	var prev int
	s.failures.Delete(docID, func(n int, exists bool) bool {
		prev = n
		return exists
	})
	if prev >= s.opts.FailureAlertThreshold {
		s.metrics.AddCheckpointFailingDocuments(-1)
	}
}
