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
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yorkie-team/canvas/api/types"
)

// document is the hot state of one canvas. Fields other than snapshot,
// lastAccess and the stats block are only touched while holding the
// document's lock in the manager's locker.
type document struct {
	id string

	// snapshot is replaced, never mutated, so readers and flushes need no
	// lock.
	snapshot atomic.Pointer[types.Snapshot]

	// seen holds the ids of applied operations.
	seen *lru.Cache[string, struct{}]

	closing bool
	evicted bool

	lastAccess atomic.Int64

	statsMu           sync.Mutex
	checkpointVersion int64
	firstPendingAt    time.Time
	lastCheckpointAt  time.Time
}

func newDocument(
	snap types.Snapshot,
	lastCheckpointAt time.Time,
	seenSize int,
	now time.Time,
) (*document, error) {
	seen, err := lru.New[string, struct{}](seenSize)
	if err != nil {
		return nil, err
	}

	doc := &document{
		id:                snap.DocID,
		seen:              seen,
		checkpointVersion: snap.Version,
		lastCheckpointAt:  lastCheckpointAt,
	}
	doc.snapshot.Store(&snap)
	doc.touch(now)
	return doc, nil
}

func (d *document) current() types.Snapshot {
	return *d.snapshot.Load()
}

func (d *document) touch(now time.Time) {
	d.lastAccess.Store(now.UnixNano())
}

func (d *document) lastAccessAt() time.Time {
	return time.Unix(0, d.lastAccess.Load())
}

// advance installs next, the result of one applied operation.
func (d *document) advance(next *types.Snapshot, now time.Time) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	if d.firstPendingAt.IsZero() {
		d.firstPendingAt = now
	}
	d.snapshot.Store(next)
}

// commit records a persisted checkpoint. Changes applied after takenAt stay
// pending with takenAt as their age, which is never later than the real one.
func (d *document) commit(cp *types.Checkpoint, takenAt time.Time) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	if cp.Version <= d.checkpointVersion {
		return
	}

	d.checkpointVersion = cp.Version
	d.lastCheckpointAt = cp.CreatedAt
	d.firstPendingAt = time.Time{}
	if d.snapshot.Load().Version > cp.Version {
		d.firstPendingAt = takenAt
	}
}

func (d *document) stats() types.DocumentStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()

	return types.DocumentStats{
		DocID:             d.id,
		Version:           d.snapshot.Load().Version,
		CheckpointVersion: d.checkpointVersion,
		FirstPendingAt:    d.firstPendingAt,
		LastCheckpointAt:  d.lastCheckpointAt,
		LastAccessAt:      d.lastAccessAt(),
	}
}
