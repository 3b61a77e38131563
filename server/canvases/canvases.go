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

// Package canvases owns the hot state of canvas documents. It serializes the
// submissions of each document, applies the accepted ones and hands dirty
// documents to the checkpoint scheduler.
package canvases

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/internal/validation"
	"github.com/yorkie-team/canvas/pkg/canvas"
	"github.com/yorkie-team/canvas/pkg/cmap"
	"github.com/yorkie-team/canvas/pkg/errors"
	"github.com/yorkie-team/canvas/pkg/locker"
	"github.com/yorkie-team/canvas/server/backend/background"
	"github.com/yorkie-team/canvas/server/backend/checkpoint"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
)

// MaxBatchSize is the largest number of operations in one submission.
const MaxBatchSize = 3

var (
	// ErrInvalidDocID is returned when the document id is malformed.
	ErrInvalidDocID = errors.InvalidArgument("invalid document id").WithCode("ErrInvalidDocID")

	// ErrInvalidBatch is returned when a batch is empty or too large.
	ErrInvalidBatch = errors.InvalidArgument("invalid batch").WithCode("ErrInvalidBatch")

	// ErrDocumentBusy is returned when the document could not be entered
	// within the lock timeout. The submission can be retried as is.
	ErrDocumentBusy = errors.Unavailable("document busy").WithCode("ErrDocumentBusy")

	// ErrDocumentClosing is returned for submissions to a document that is
	// being flushed and evicted.
	ErrDocumentClosing = errors.Unavailable("document closing").WithCode("ErrDocumentClosing")

	// ErrApplyFault is returned when applying a validated operation failed.
	// The document is left unchanged.
	ErrApplyFault = errors.Internal("apply fault").WithCode("ErrApplyFault")
)

// Manager is the registry of hot documents.
type Manager struct {
	conf        *Config
	lockTimeout time.Duration
	limits      canvas.Limits

	docs   *cmap.Map[*document]
	locker *locker.Locker
	loads  singleflight.Group

	store     store.Store
	pubsub    *pubsub.PubSub
	scheduler *checkpoint.Scheduler
	metrics   *prometheus.Metrics

	apply func(types.Operation, string) (string, error)
	now   func() time.Time
}

// New creates a manager and its checkpoint scheduler.
func New(
	conf *Config,
	checkpointOpts checkpoint.Options,
	st store.Store,
	ps *pubsub.PubSub,
	bg *background.Background,
	metrics *prometheus.Metrics,
) (*Manager, error) {
	lockTimeout, err := conf.ParseLockTimeout()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		conf:        conf,
		lockTimeout: lockTimeout,
		limits:      canvas.Limits{MaxContentLength: conf.MaxContentLength},
		docs:        cmap.New[*document](),
		locker:      locker.New(),
		store:       st,
		pubsub:      ps,
		metrics:     metrics,
		apply:       canvas.Apply,
		now:         time.Now,
	}
	m.scheduler = checkpoint.New(checkpointOpts, m, st, ps, bg, metrics)

	return m, nil
}

// Checkpoints returns the checkpoint scheduler of the manager.
func (m *Manager) Checkpoints() *checkpoint.Scheduler {
	return m.scheduler
}

// Submit validates op against the document and applies it when valid. The
// result is an ack, a conflict or a rejection; errors are reserved for
// failures that left the document untouched for another reason.
func (m *Manager) Submit(ctx context.Context, docID string, op types.Operation) (types.Result, error) {
	if err := validateDocID(docID); err != nil {
		return types.Result{}, err
	}

	doc, err := m.lockDocument(ctx, docID)
	if err != nil {
		return types.Result{}, err
	}
	res, err := m.submit(ctx, doc, op)
	m.unlock(ctx, docID)

	if err == nil && res.Acked() && !res.Duplicate {
		m.scheduler.Evaluate(ctx, docID)
	}
	return res, err
}

// SubmitBatch submits ops in order as independent submissions. Once one of
// them is not acknowledged the rest are skipped.
//
// If the first operation fails with an error, nothing was applied and only
// the error is returned. An error on a later operation is reported as a fault
// result next to the acks before it, and returned as well.
func (m *Manager) SubmitBatch(ctx context.Context, docID string, ops []types.Operation) ([]types.Result, error) {
	if len(ops) == 0 || len(ops) > MaxBatchSize {
		return nil, fmt.Errorf("%d operations, want 1 to %d: %w", len(ops), MaxBatchSize, ErrInvalidBatch)
	}

	results := make([]types.Result, 0, len(ops))
	for i, op := range ops {
		res, err := m.Submit(ctx, docID, op)
		if err != nil {
			if i == 0 {
				return nil, err
			}

			last := results[i-1]
			results = append(results, types.Result{
				OpID:        op.OpID,
				Status:      types.StatusFault,
				Version:     last.Version,
				Fingerprint: last.Fingerprint,
				Message:     err.Error(),
				Code:        errors.CodeOf(err),
				Retryable:   errors.IsRetryable(err),
			})
			return appendSkipped(results, ops[i+1:], last), err
		}
		results = append(results, res)

		if !res.Acked() {
			return appendSkipped(results, ops[i+1:], res), nil
		}
	}

	return results, nil
}

func appendSkipped(results []types.Result, rest []types.Operation, last types.Result) []types.Result {
	for _, op := range rest {
		results = append(results, types.Result{
			OpID:        op.OpID,
			Status:      types.StatusSkipped,
			Version:     last.Version,
			Fingerprint: last.Fingerprint,
		})
	}
	return results
}

// Snapshot returns the current content, version and fingerprint of docID,
// loading the document if it is not hot.
func (m *Manager) Snapshot(ctx context.Context, docID string) (types.Snapshot, error) {
	if err := validateDocID(docID); err != nil {
		return types.Snapshot{}, err
	}

	doc, err := m.load(ctx, docID)
	if err != nil {
		return types.Snapshot{}, err
	}
	doc.touch(m.now())

	return doc.current(), nil
}

// Stats returns the counters of a hot document.
func (m *Manager) Stats(docID string) (types.DocumentStats, bool) {
	doc, ok := m.docs.Get(docID)
	if !ok {
		return types.DocumentStats{}, false
	}
	return doc.stats(), true
}

// Peek returns the snapshot of a hot document.
func (m *Manager) Peek(docID string) (types.Snapshot, bool) {
	doc, ok := m.docs.Get(docID)
	if !ok {
		return types.Snapshot{}, false
	}
	return doc.current(), true
}

// Commit records a checkpoint persisted by the scheduler.
func (m *Manager) Commit(docID string, cp *types.Checkpoint, takenAt time.Time) {
	if doc, ok := m.docs.Get(docID); ok {
		doc.commit(cp, takenAt)
	}
}

// DocIDs returns the ids of the hot documents.
func (m *Manager) DocIDs() []string {
	return m.docs.Keys()
}

// Close flushes docID and removes it from memory. Submissions made while it
// is closing fail with ErrDocumentClosing. If the flush keeps failing the
// document stays hot, unless force is set, in which case its unpersisted
// operations are dropped.
func (m *Manager) Close(ctx context.Context, docID string, force bool) error {
	return m.close(ctx, docID, force, "close")
}

// EvictIdle closes the documents without listeners that were not accessed
// for ttl. It is registered as a housekeeping task.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) error {
	now := m.now()

	evicted := 0
	for _, doc := range m.docs.Values() {
		if now.Sub(doc.lastAccessAt()) < ttl || m.pubsub.Count(doc.id) > 0 {
			continue
		}

		if err := m.close(ctx, doc.id, false, "idle"); err != nil {
			logging.From(ctx).Warnf("HSKP: keep idle %s: %v", doc.id, err)
			continue
		}
		evicted++
	}

	if evicted > 0 {
		logging.From(ctx).Infof("HSKP: evicted %d idle documents", evicted)
	}
	return nil
}

// Shutdown closes every hot document in parallel, dropping what cannot be
// persisted.
func (m *Manager) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	for _, docID := range m.docs.Keys() {
		docID := docID
		g.Go(func() error {
			return m.close(ctx, docID, true, "shutdown")
		})
	}

	return g.Wait()
}

func (m *Manager) submit(ctx context.Context, doc *document, op types.Operation) (types.Result, error) {
	if doc.closing {
		return types.Result{}, fmt.Errorf("submit to %s: %w", doc.id, ErrDocumentClosing)
	}

	now := m.now()
	doc.touch(now)
	snap := doc.current()

	if op.OpID != "" && doc.seen.Contains(op.OpID) {
		m.metrics.AddSubmit("duplicate")
		return types.Result{
			OpID:        op.OpID,
			Status:      types.StatusAck,
			Version:     snap.Version,
			Fingerprint: snap.Fingerprint,
			Duplicate:   true,
		}, nil
	}

	verdict := canvas.Validate(op, snap, m.limits)
	if verdict.Fault != nil {
		logging.From(ctx).Warnf("reject %s on %s@%d: %v", op.Kind, doc.id, snap.Version, verdict.Fault)
		m.metrics.AddSubmit(string(types.StatusRejected))
		return types.Result{
			OpID:        op.OpID,
			Status:      types.StatusRejected,
			Version:     snap.Version,
			Fingerprint: snap.Fingerprint,
			Message:     verdict.Fault.Error(),
		}, nil
	}

	if verdict.Reason != "" {
		res := types.Result{
			OpID:        op.OpID,
			Status:      types.StatusConflict,
			Version:     snap.Version,
			Fingerprint: snap.Fingerprint,
			Reason:      verdict.Reason,
		}
		m.metrics.AddSubmit(string(types.StatusConflict))
		m.pubsub.Publish(ctx, events.NewResultEvent(doc.id, op, res))
		return res, nil
	}

	start := time.Now()
	content, err := applySafely(m.apply, op, snap.Content)
	m.metrics.ObserveApplySeconds(time.Since(start).Seconds())
	if err != nil {
		logging.From(ctx).Errorf("apply %s on %s@%d: %v", op.Kind, doc.id, snap.Version, err)
		m.metrics.AddSubmit("fault")
		return types.Result{}, fmt.Errorf("apply %s to %s@%d: %w: %v", op.Kind, doc.id, snap.Version, ErrApplyFault, err)
	}

	next := &types.Snapshot{
		DocID:       doc.id,
		Content:     content,
		Version:     snap.Version + 1,
		Fingerprint: canvas.Fingerprint(content),
	}
	doc.advance(next, now)
	if op.OpID != "" {
		doc.seen.Add(op.OpID, struct{}{})
	}

	res := types.Result{
		OpID:        op.OpID,
		Status:      types.StatusAck,
		Version:     next.Version,
		Fingerprint: next.Fingerprint,
	}
	m.metrics.AddSubmit(string(types.StatusAck))
	m.pubsub.Publish(ctx, events.NewResultEvent(doc.id, op, res))
	return res, nil
}

// applySafely runs apply, turning a panic into an error so that the document
// is left as it was.
func applySafely(
	apply func(types.Operation, string) (string, error),
	op types.Operation,
	content string,
) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return apply(op, content)
}

// load returns the hot instance of docID, reading its latest checkpoint on
// first access. Concurrent first accesses share a single read.
func (m *Manager) load(ctx context.Context, docID string) (*document, error) {
	if doc, ok := m.docs.Get(docID); ok {
		return doc, nil
	}

	v, err, _ := m.loads.Do(docID, func() (interface{}, error) {
		if doc, ok := m.docs.Get(docID); ok {
			return doc, nil
		}

		snap := types.Snapshot{DocID: docID, Fingerprint: canvas.EmptyFingerprint}
		var lastCheckpointAt time.Time

		cp, err := m.store.Load(ctx, docID)
		switch {
		case err == nil:
			snap = cp.Snapshot()
			snap.Fingerprint = canvas.Fingerprint(snap.Content)
			lastCheckpointAt = cp.CreatedAt
			m.metrics.AddDocumentLoad("checkpoint")
		case errors.Is(err, store.ErrNotFound):
			m.metrics.AddDocumentLoad("new")
		default:
			m.metrics.AddDocumentLoad("error")
			if errors.StatusOf(err) == 0 {
				return nil, fmt.Errorf("load %s: %w: %v", docID, store.ErrUnavailable, err)
			}
			return nil, fmt.Errorf("load %s: %w", docID, err)
		}

		loaded, err := newDocument(snap, lastCheckpointAt, m.conf.SeenOperationsSize, m.now())
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", docID, err)
		}

		doc := m.docs.Upsert(docID, func(existing *document, exists bool) *document {
			if exists {
				return existing
			}
			return loaded
		})
		m.metrics.SetHotDocuments(m.docs.Len())

		if logging.Enabled(zap.DebugLevel) {
			logging.From(ctx).Debugf("load %s at %d", docID, snap.Version)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*document), nil
}

// lockDocument enters the critical section of docID. An instance evicted
// while waiting is discarded and the document is loaded again.
func (m *Manager) lockDocument(ctx context.Context, docID string) (*document, error) {
	for {
		doc, err := m.load(ctx, docID)
		if err != nil {
			return nil, err
		}

		if err := m.lock(ctx, docID); err != nil {
			return nil, err
		}
		if !doc.evicted {
			return doc, nil
		}
		m.unlock(ctx, docID)
	}
}

func (m *Manager) lock(ctx context.Context, docID string) error {
	start := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	err := m.locker.Lock(lockCtx, docID)
	cancel()
	m.metrics.ObserveLockWaitSeconds(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("wait %s for %s: %w", m.lockTimeout, docID, ErrDocumentBusy)
}

func (m *Manager) unlock(ctx context.Context, docID string) {
	if err := m.locker.Unlock(docID); err != nil {
		logging.From(ctx).Errorf("unlock %s: %v", docID, err)
	}
}

func (m *Manager) close(ctx context.Context, docID string, force bool, reason string) error {
	doc, ok := m.docs.Get(docID)
	if !ok {
		return nil
	}

	if err := m.lock(ctx, docID); err != nil {
		return fmt.Errorf("close %s: %w", docID, err)
	}
	if doc.evicted || doc.closing {
		m.unlock(ctx, docID)
		return nil
	}
	doc.closing = true
	m.unlock(ctx, docID)

	flushErr := m.flushWithRetry(ctx, docID)

	// new submissions fail fast while closing, so the wait is short
	if err := m.locker.Lock(context.WithoutCancel(ctx), docID); err != nil {
		return fmt.Errorf("close %s: %w", docID, err)
	}
	defer m.unlock(ctx, docID)

	if flushErr != nil {
		if !force {
			doc.closing = false
			return fmt.Errorf("close %s: %w", docID, flushErr)
		}

		stats := doc.stats()
		logging.From(ctx).Warnf(
			"drop %s with %d unpersisted operations after %d: %v",
			docID, stats.PendingOperations(), stats.CheckpointVersion, flushErr,
		)
	}

	m.evict(doc, reason)
	return nil
}

func (m *Manager) flushWithRetry(ctx context.Context, docID string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	return backoff.Retry(func() error {
		return m.scheduler.FlushWait(ctx, docID)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(m.conf.CloseRetries)), ctx))
}

// evict removes doc from the registry. It must be called while holding the
// lock of doc.
func (m *Manager) evict(doc *document, reason string) {
	doc.evicted = true
	m.docs.Delete(doc.id, func(d *document, exists bool) bool {
		return exists && d == doc
	})
	m.scheduler.Forget(doc.id)

	m.metrics.AddEviction(reason)
	m.metrics.SetHotDocuments(m.docs.Len())
}

func validateDocID(docID string) error {
	if err := validation.ValidateValue(docID, "required,doc_id"); err != nil {
		return fmt.Errorf("%q: %w: %s", docID, ErrInvalidDocID, err.Error())
	}
	return nil
}
