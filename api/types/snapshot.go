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

package types

import (
	"time"
)

// Snapshot is an immutable view of a document. Content, Version and
// Fingerprint always belong to the same state.
type Snapshot struct {
	DocID       string `json:"docId"`
	Content     string `json:"content"`
	Version     int64  `json:"version"`
	Fingerprint string `json:"fingerprint"`
}

// DocumentStats describes the in-memory bookkeeping of a hot document.
type DocumentStats struct {
	DocID             string    `json:"docId"`
	Version           int64     `json:"version"`
	CheckpointVersion int64     `json:"checkpointVersion"`
	FirstPendingAt    time.Time `json:"firstPendingAt,omitempty"`
	LastCheckpointAt  time.Time `json:"lastCheckpointAt,omitempty"`
	LastAccessAt      time.Time `json:"lastAccessAt"`
}

// PendingOperations returns the number of operations applied since the last
// successful checkpoint.
func (s DocumentStats) PendingOperations() int64 {
	return s.Version - s.CheckpointVersion
}

// Dirty reports whether the document has changes that are not durable yet.
func (s DocumentStats) Dirty() bool {
	return s.PendingOperations() > 0
}
