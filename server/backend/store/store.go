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

// Package store defines where checkpoints of documents are persisted. The
// in-memory document is always at least as fresh as its latest checkpoint.
package store

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/pkg/errors"
)

var (
	// ErrNotFound is returned when a document has no checkpoint yet.
	ErrNotFound = errors.NotFound("checkpoint not found").WithCode("ErrCheckpointNotFound")

	// ErrUnavailable wraps driver failures so callers can tell a transient
	// store outage from a bug.
	ErrUnavailable = errors.Unavailable("store unavailable").WithCode("ErrStoreUnavailable")
)

// Store persists checkpoints. Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the checkpoint with the highest version of docID, or
	// ErrNotFound.
	Load(ctx context.Context, docID string) (*types.Checkpoint, error)

	// Persist appends cp. Persisting a version that is already stored for the
	// same document succeeds without writing, so a retried flush is harmless.
	Persist(ctx context.Context, cp *types.Checkpoint) error

	// History returns up to limit checkpoints of docID, newest first. A limit
	// of zero or less returns all of them.
	History(ctx context.Context, docID string, limit int) ([]*types.Checkpoint, error)

	// Close releases the resources of the store.
	Close() error
}

// NewCheckpoint creates the checkpoint of snap taken at now.
func NewCheckpoint(snap types.Snapshot, now time.Time) *types.Checkpoint {
	return &types.Checkpoint{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		DocID:       snap.DocID,
		Content:     snap.Content,
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		CreatedAt:   now.UTC(),
	}
}
