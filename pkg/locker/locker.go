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
 *
 * This file was written with reference to moby/locker.
 *   https://github.com/moby/locker
 */

/*
Package locker provides a table of named locks. Each document gets its own
lock, so a writer on one document never waits for a writer on another.

Unlike sync.Mutex, Lock takes a context: a caller that cannot acquire the lock
before the context is done gives up with the context's error instead of
queueing forever. Lock entries are removed on Unlock once nobody is waiting.
*/
package locker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrNoSuchLock is returned when unlocking a name that is not locked.
	ErrNoSuchLock = errors.New("no such lock")
)

// Locker is a set of locks keyed by name.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockCtr
}

// lockCtr is a one-slot semaphore plus the number of callers queued on it.
type lockCtr struct {
	sem     chan struct{}
	waiters int32
}

func newLockCtr() *lockCtr {
	return &lockCtr{sem: make(chan struct{}, 1)}
}

func (l *lockCtr) inc()         { atomic.AddInt32(&l.waiters, 1) }
func (l *lockCtr) dec()         { atomic.AddInt32(&l.waiters, -1) }
func (l *lockCtr) count() int32 { return atomic.LoadInt32(&l.waiters) }
func (l *lockCtr) held() bool   { return len(l.sem) == 1 }

// New creates a new Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*lockCtr)}
}

// acquireCtr returns the entry for name, creating it if needed. The caller
// must hold l.mu.
func (l *Locker) acquireCtr(name string) *lockCtr {
	ctr, ok := l.locks[name]
	if !ok {
		ctr = newLockCtr()
		l.locks[name] = ctr
	}
	return ctr
}

// Lock acquires the lock for name, waiting until it is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, name string) error {
	l.mu.Lock()
	ctr := l.acquireCtr(name)
	// counted under l.mu so a concurrent Unlock does not drop the entry
	ctr.inc()
	l.mu.Unlock()

	var err error
	select {
	case ctr.sem <- struct{}{}:
	case <-ctx.Done():
		err = ctx.Err()
	}

	// decremented under l.mu: an Unlock seeing a stale count would keep the
	// entry after the last holder left
	l.mu.Lock()
	ctr.dec()
	if err != nil && ctr.count() == 0 && !ctr.held() {
		delete(l.locks, name)
	}
	l.mu.Unlock()
	return err
}

// TryLock acquires the lock for name only if it is free right now.
func (l *Locker) TryLock(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr := l.acquireCtr(name)
	select {
	case ctr.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the lock for name.
func (l *Locker) Unlock(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr, ok := l.locks[name]
	if !ok || !ctr.held() {
		return ErrNoSuchLock
	}

	<-ctr.sem
	if ctr.count() == 0 {
		delete(l.locks, name)
	}
	return nil
}

// Len returns the number of names that are locked or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
