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

package housekeeping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yorkie-team/canvas/server/logging"
)

// Task is a periodic job. A returned error is logged and the task runs again
// at its next tick.
type Task func(ctx context.Context) error

type registeredTask struct {
	name     string
	interval time.Duration
	run      Task
}

// Housekeeping runs registered tasks, each on its own ticker.
type Housekeeping struct {
	Config *Config

	mu      sync.Mutex
	tasks   []registeredTask
	started bool

	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// New creates a new housekeeping instance.
func New(conf *Config) *Housekeeping {
	ctx, cancelFunc := context.WithCancel(context.Background())
	return &Housekeeping{
		Config:     conf,
		ctx:        ctx,
		cancelFunc: cancelFunc,
	}
}

// RegisterTask adds a task. Tasks must be registered before Start.
func (h *Housekeeping) RegisterTask(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("register %s: interval must be positive, given %s", name, interval)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return fmt.Errorf("register %s: housekeeping already started", name)
	}

	h.tasks = append(h.tasks, registeredTask{name: name, interval: interval, run: task})
	return nil
}

// Start starts the loop of every registered task.
func (h *Housekeeping) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	h.started = true

	for _, task := range h.tasks {
		h.wg.Add(1)
		go h.run(task)
	}
	return nil
}

// Stop stops the loops and waits for running tasks to return.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()
	h.wg.Wait()
	return nil
}

func (h *Housekeeping) run(task registeredTask) {
	defer h.wg.Done()

	logger := logging.New("hskp", logging.NewField("task", task.name))
	ctx := logging.With(h.ctx, logger)

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-h.ctx.Done():
			return
		}

		if err := task.run(ctx); err != nil && h.ctx.Err() == nil {
			logger.Errorf("HSKP: %s: %v", task.name, err)
		}
	}
}
