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

// Package background tracks the goroutines the backend starts on behalf of
// requests, such as asynchronous checkpoint flushes, so that shutdown can
// wait for them.
package background

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
)

type routineID int32

func (c *routineID) next() string {
	next := atomic.AddInt32((*int32)(c), 1)
	return "b" + strconv.Itoa(int(next))
}

// Background is the background service.
type Background struct {
	// closing is closed by Close.
	closing chan struct{}

	// wgMu keeps Add from racing with Wait while closing.
	wgMu sync.RWMutex
	wg   sync.WaitGroup

	routineID routineID
	metrics   *prometheus.Metrics
}

// New creates a new background service.
func New(metrics *prometheus.Metrics) *Background {
	return &Background{
		closing: make(chan struct{}),
		metrics: metrics,
	}
}

// AttachGoroutine runs f in a tracked goroutine. It reports false, without
// running f, once the service is closing.
func (b *Background) AttachGoroutine(
	f func(ctx context.Context),
	taskType string,
) bool {
	b.wgMu.RLock()
	defer b.wgMu.RUnlock()
	select {
	case <-b.closing:
		logging.DefaultLogger().Warnf("background has closed; skipping %s", taskType)
		return false
	default:
	}

	b.wg.Add(1)
	routineLogger := logging.New(b.routineID.next(), logging.NewField("task", taskType))
	b.metrics.AddBackgroundGoroutines(taskType)
	go func() {
		defer func() {
			b.wg.Done()
			b.metrics.RemoveBackgroundGoroutines(taskType)
		}()
		f(logging.With(context.Background(), routineLogger))
	}()
	return true
}

// Close stops accepting goroutines and waits for the running ones.
func (b *Background) Close() {
	b.wgMu.Lock()
	select {
	case <-b.closing:
	default:
		close(b.closing)
	}
	b.wgMu.Unlock()

	b.wg.Wait()
}
