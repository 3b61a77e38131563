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

package checkpoint

import (
	"time"

	"github.com/yorkie-team/canvas/api/types"
)

// Policy decides when a hot document should be flushed.
type Policy struct {
	// Interval is the longest time a change may stay unpersisted.
	Interval time.Duration

	// Threshold is the number of pending operations that triggers a flush.
	Threshold int64
}

// DefaultPolicy returns the policy of 10 seconds or 50 operations.
func DefaultPolicy() Policy {
	return Policy{
		Interval:  DefaultInterval,
		Threshold: DefaultThreshold,
	}
}

// Due reports whether a document with the given stats must be flushed at now.
// A clean document is never due.
func (p Policy) Due(stats types.DocumentStats, now time.Time) bool {
	pending := stats.PendingOperations()
	if pending <= 0 {
		return false
	}

	if p.Threshold > 0 && pending >= p.Threshold {
		return true
	}

	return !stats.FirstPendingAt.IsZero() && now.Sub(stats.FirstPendingAt) >= p.Interval
}
