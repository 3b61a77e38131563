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

// Checkpoint is a durable copy of a document at a version. Checkpoints are
// written once and superseded by later ones, never updated.
type Checkpoint struct {
	ID          string    `json:"id" bson:"_id"`
	DocID       string    `json:"docId" bson:"doc_id"`
	Content     string    `json:"content" bson:"content"`
	Version     int64     `json:"version" bson:"version"`
	Fingerprint string    `json:"fingerprint" bson:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// Snapshot returns the document state the checkpoint holds.
func (c *Checkpoint) Snapshot() Snapshot {
	return Snapshot{
		DocID:       c.DocID,
		Content:     c.Content,
		Version:     c.Version,
		Fingerprint: c.Fingerprint,
	}
}
