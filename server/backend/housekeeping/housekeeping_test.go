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

package housekeeping_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/canvas/server/backend/housekeeping"
)

func TestConfig(t *testing.T) {
	conf := housekeeping.Config{Interval: "5m", IdleTTL: "30m"}
	assert.NoError(t, conf.Validate())

	interval, err := conf.ParseInterval()
	assert.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	conf.Interval = "hourly"
	assert.Error(t, conf.Validate())

	conf.Interval = "1m"
	conf.IdleTTL = "0s"
	assert.Error(t, conf.Validate())
}

func TestHousekeeping(t *testing.T) {
	t.Run("runs tasks periodically test", func(t *testing.T) {
		h := housekeeping.New(&housekeeping.Config{})

		var runs, failures atomic.Int32
		assert.NoError(t, h.RegisterTask("count", 5*time.Millisecond, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}))
		assert.NoError(t, h.RegisterTask("fail", 5*time.Millisecond, func(ctx context.Context) error {
			failures.Add(1)
			return errors.New("store down")
		}))
		assert.NoError(t, h.Start())

		assert.Eventually(t, func() bool {
			return runs.Load() >= 3 && failures.Load() >= 3
		}, time.Second, 5*time.Millisecond)
		assert.NoError(t, h.Stop())

		stopped := runs.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, stopped, runs.Load())
	})

	t.Run("register validation test", func(t *testing.T) {
		h := housekeeping.New(&housekeeping.Config{})
		assert.Error(t, h.RegisterTask("zero", 0, func(ctx context.Context) error { return nil }))

		assert.NoError(t, h.Start())
		assert.Error(t, h.RegisterTask("late", time.Second, func(ctx context.Context) error { return nil }))
		assert.NoError(t, h.Stop())
	})
}
