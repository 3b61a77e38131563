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

// Package testcases contains the tests every store implementation must pass.
package testcases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/pkg/canvas"
	"github.com/yorkie-team/canvas/server/backend/store"
)

func checkpointOf(docID, content string, version int64, at time.Time) *types.Checkpoint {
	return store.NewCheckpoint(types.Snapshot{
		DocID:       docID,
		Content:     content,
		Version:     version,
		Fingerprint: canvas.Fingerprint(content),
	}, at)
}

// RunAll runs every store test against s.
func RunAll(t *testing.T, s store.Store) {
	RunLoadNotFoundTest(t, s)
	RunPersistAndLoadTest(t, s)
	RunPersistIdempotentTest(t, s)
	RunHistoryTest(t, s)
	RunDocumentIsolationTest(t, s)
}

// RunLoadNotFoundTest checks Load of an unknown document.
func RunLoadNotFoundTest(t *testing.T, s store.Store) {
	t.Run("load not found test", func(t *testing.T) {
		_, err := s.Load(context.Background(), fmt.Sprintf("missing-%d", time.Now().UnixNano()))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

// RunPersistAndLoadTest checks that Load returns the latest checkpoint.
func RunPersistAndLoadTest(t *testing.T, s store.Store) {
	t.Run("persist and load test", func(t *testing.T) {
		ctx := context.Background()
		docID := "persist-load"
		now := time.Now()

		require.NoError(t, s.Persist(ctx, checkpointOf(docID, "hello", 1, now)))
		require.NoError(t, s.Persist(ctx, checkpointOf(docID, "hello world", 12, now.Add(time.Second))))

		cp, err := s.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, docID, cp.DocID)
		assert.Equal(t, "hello world", cp.Content)
		assert.Equal(t, int64(12), cp.Version)
		assert.Equal(t, canvas.Fingerprint("hello world"), cp.Fingerprint)
		assert.NotEmpty(t, cp.ID)
	})
}

// RunPersistIdempotentTest checks that persisting a version twice keeps one
// copy.
func RunPersistIdempotentTest(t *testing.T, s store.Store) {
	t.Run("persist idempotent test", func(t *testing.T) {
		ctx := context.Background()
		docID := "persist-idempotent"
		now := time.Now()

		require.NoError(t, s.Persist(ctx, checkpointOf(docID, "abc", 3, now)))
		require.NoError(t, s.Persist(ctx, checkpointOf(docID, "abc", 3, now.Add(time.Millisecond))))

		history, err := s.History(ctx, docID, 0)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

// RunHistoryTest checks ordering and limit of History.
func RunHistoryTest(t *testing.T, s store.Store) {
	t.Run("history test", func(t *testing.T) {
		ctx := context.Background()
		docID := "history"
		now := time.Now()

		for v := int64(1); v <= 5; v++ {
			content := fmt.Sprintf("v%d", v)
			require.NoError(t, s.Persist(ctx, checkpointOf(docID, content, v*10, now.Add(time.Duration(v)*time.Second))))
		}

		history, err := s.History(ctx, docID, 0)
		require.NoError(t, err)
		require.Len(t, history, 5)
		for i, cp := range history {
			assert.Equal(t, int64(50-i*10), cp.Version)
		}

		history, err = s.History(ctx, docID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, int64(50), history[0].Version)
		assert.Equal(t, int64(40), history[1].Version)

		history, err = s.History(ctx, "history-missing", 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

// RunDocumentIsolationTest checks that documents sharing an id prefix do not
// see each other's checkpoints.
func RunDocumentIsolationTest(t *testing.T, s store.Store) {
	t.Run("document isolation test", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, s.Persist(ctx, checkpointOf("iso", "short", 1, now)))
		require.NoError(t, s.Persist(ctx, checkpointOf("iso-long", "long", 7, now)))

		cp, err := s.Load(ctx, "iso")
		require.NoError(t, err)
		assert.Equal(t, "short", cp.Content)
		assert.Equal(t, int64(1), cp.Version)

		history, err := s.History(ctx, "iso", 0)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}
