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

package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/backend/store/bolt"
	"github.com/yorkie-team/canvas/server/backend/store/testcases"
)

func TestStore(t *testing.T) {
	conf := &bolt.Config{
		Path:        filepath.Join(t.TempDir(), "canvas.db"),
		OpenTimeout: "1s",
	}

	s, err := bolt.Open(conf)
	require.NoError(t, err)

	testcases.RunAll(t, s)

	t.Run("survives reopen test", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, s.Persist(ctx, store.NewCheckpoint(types.Snapshot{
			DocID:   "reopen",
			Content: "kept",
			Version: 51,
		}, time.Now())))
		require.NoError(t, s.Close())

		s, err = bolt.Open(conf)
		require.NoError(t, err)

		cp, err := s.Load(ctx, "reopen")
		require.NoError(t, err)
		assert.Equal(t, "kept", cp.Content)
		assert.Equal(t, int64(51), cp.Version)
	})

	assert.NoError(t, s.Close())
}

func TestConfig(t *testing.T) {
	conf := bolt.Config{Path: "canvas.db", OpenTimeout: "1s"}
	assert.NoError(t, conf.Validate())

	conf.OpenTimeout = "later"
	assert.Error(t, conf.Validate())

	conf.OpenTimeout = "1s"
	conf.Path = ""
	assert.Error(t, conf.Validate())
}
