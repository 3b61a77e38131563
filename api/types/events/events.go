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

// Package events defines the events broadcast to listeners of a document.
package events

import (
	"time"

	"github.com/yorkie-team/canvas/api/types"
)

// DocEventType represents the type of the DocEvent.
type DocEventType string

const (
	// DocSnapshotEvent carries the full state. It is the first event a
	// listener receives after connecting.
	DocSnapshotEvent DocEventType = "snapshot"

	// DocAckEvent is published when an operation is applied.
	DocAckEvent DocEventType = "ack"

	// DocConflictEvent is published when an operation is refused because of
	// a conflict.
	DocConflictEvent DocEventType = "conflict"

	// DocCheckpointEvent is published when a checkpoint has been written.
	DocCheckpointEvent DocEventType = "checkpoint"
)

// DocEvent represents an event that occurs in a document.
type DocEvent struct {
	Type        DocEventType         `json:"type"`
	DocID       string               `json:"docId"`
	Version     int64                `json:"version"`
	Fingerprint string               `json:"fingerprint"`
	OpID        string               `json:"opId,omitempty"`
	Reason      types.ConflictReason `json:"reason,omitempty"`
	Operation   *types.Operation     `json:"operation,omitempty"`
	Content     *string              `json:"content,omitempty"`
	At          time.Time            `json:"at"`
}

// NewSnapshotEvent builds the event sent to a listener on connect.
func NewSnapshotEvent(snap types.Snapshot) DocEvent {
	content := snap.Content
	return DocEvent{
		Type:        DocSnapshotEvent,
		DocID:       snap.DocID,
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		Content:     &content,
		At:          time.Now(),
	}
}

// NewResultEvent builds the ack or conflict event of a submitted operation.
func NewResultEvent(docID string, op types.Operation, res types.Result) DocEvent {
	evt := DocEvent{
		Type:        DocAckEvent,
		DocID:       docID,
		Version:     res.Version,
		Fingerprint: res.Fingerprint,
		OpID:        res.OpID,
		At:          time.Now(),
	}
	if res.Status == types.StatusConflict {
		evt.Type = DocConflictEvent
		evt.Reason = res.Reason
		return evt
	}

	opCopy := op
	evt.Operation = &opCopy
	return evt
}

// NewCheckpointEvent builds the event published after a successful flush.
func NewCheckpointEvent(cp *types.Checkpoint) DocEvent {
	return DocEvent{
		Type:        DocCheckpointEvent,
		DocID:       cp.DocID,
		Version:     cp.Version,
		Fingerprint: cp.Fingerprint,
		At:          cp.CreatedAt,
	}
}
