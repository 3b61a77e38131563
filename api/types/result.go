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

// ResultStatus is the outcome of a submitted operation.
type ResultStatus string

const (
	// StatusAck means the operation was applied.
	StatusAck ResultStatus = "ack"

	// StatusConflict means the client view is stale or the operation does not
	// fit the current content. The client should refetch and rebase.
	StatusConflict ResultStatus = "conflict"

	// StatusRejected means the operation is malformed and will never apply.
	StatusRejected ResultStatus = "rejected"

	// StatusSkipped means an earlier operation of the same batch did not
	// apply, so this one was not attempted.
	StatusSkipped ResultStatus = "skipped"

	// StatusFault means the operation could not be attempted because of a
	// server side failure, such as a busy document. Code and Retryable
	// describe the failure; the operations after it are skipped.
	StatusFault ResultStatus = "fault"
)

// ConflictReason explains a conflict.
type ConflictReason string

const (
	// ReasonStaleBaseVersion means the operation was made against an older
	// version of the document.
	ReasonStaleBaseVersion ConflictReason = "stale_base_version"

	// ReasonOutOfBounds means the target of the operation is not in the
	// content, either past its end or not matched at all.
	ReasonOutOfBounds ConflictReason = "out_of_bounds"

	// ReasonUnknownKind means the operation kind is not supported.
	ReasonUnknownKind ConflictReason = "unknown_kind"
)

// Result is the per-operation answer of a submission. For an ack, Version and
// Fingerprint describe the new state. Otherwise they describe the current
// state the client should rebase on.
type Result struct {
	OpID        string         `json:"opId,omitempty"`
	Status      ResultStatus   `json:"status"`
	Version     int64          `json:"version"`
	Fingerprint string         `json:"fingerprint"`
	Reason      ConflictReason `json:"reason,omitempty"`
	Message     string         `json:"message,omitempty"`
	Duplicate   bool           `json:"duplicate,omitempty"`
	Code        string         `json:"code,omitempty"`
	Retryable   bool           `json:"retryable,omitempty"`
}

// Acked reports whether the operation was applied.
func (r Result) Acked() bool {
	return r.Status == StatusAck
}
