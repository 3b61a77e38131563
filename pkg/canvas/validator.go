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

package canvas

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/internal/validation"
	"github.com/yorkie-team/canvas/pkg/errors"
)

// DefaultMaxContentLength is the largest document, in runes, an operation may
// produce.
const DefaultMaxContentLength = 100000

var (
	// ErrMalformedOperation is returned when an operation fails its field rules.
	ErrMalformedOperation = errors.InvalidArgument("malformed operation").WithCode("ErrMalformedOperation")

	// ErrMissingContent is returned when an insert or an upsert_section
	// carries no content.
	ErrMissingContent = errors.InvalidArgument("insert requires content").WithCode("ErrMissingContent")

	// ErrMissingLength is returned when a delete removes nothing.
	ErrMissingLength = errors.InvalidArgument("delete requires a positive length").WithCode("ErrMissingLength")

	// ErrEmptyReplace is returned when a replace neither removes nor inserts.
	ErrEmptyReplace = errors.InvalidArgument("replace requires a length or content").WithCode("ErrEmptyReplace")

	// ErrContentTooLarge is returned when the resulting content would exceed
	// the configured limit.
	ErrContentTooLarge = errors.InvalidArgument("content too large").WithCode("ErrContentTooLarge")
)

// Limits bounds what a single operation may do.
type Limits struct {
	MaxContentLength int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxContentLength: DefaultMaxContentLength}
}

// Verdict is the outcome of Validate. The zero value means the operation can
// be applied. At most one of Reason and Fault is set.
type Verdict struct {
	// Reason is set when the operation conflicts with the current state.
	Reason types.ConflictReason

	// Fault is set when the operation is malformed regardless of the state.
	Fault error
}

// OK reports whether the operation can be applied.
func (v Verdict) OK() bool {
	return v.Reason == "" && v.Fault == nil
}

// Validate checks op against snap. It is pure: it never mutates its arguments
// and returns the same verdict for the same inputs. Checks run in this order:
// shape, kind, base version, bounds, resulting length. A target that matches
// nothing is out of bounds, like a position past the end.
func Validate(op types.Operation, snap types.Snapshot, limits Limits) Verdict {
	if err := validation.ValidateStruct(op); err != nil {
		return Verdict{Fault: fmt.Errorf("%w: %s", ErrMalformedOperation, err.Error())}
	}

	if !op.Kind.Known() {
		return Verdict{Reason: types.ReasonUnknownKind}
	}

	if err := validateShape(op, limits); err != nil {
		return Verdict{Fault: err}
	}

	if op.BaseVersion != snap.Version {
		return Verdict{Reason: types.ReasonStaleBaseVersion}
	}

	edit, err := Resolve(op, snap.Content)
	if errors.Is(err, ErrRangeOutOfBounds) || errors.Is(err, ErrTargetNotFound) {
		return Verdict{Reason: types.ReasonOutOfBounds}
	}
	if err != nil {
		return Verdict{Fault: err}
	}

	if limits.MaxContentLength > 0 {
		contentLen := utf8.RuneCountInString(snap.Content)
		resultLen := contentLen - (edit.End - edit.Start) + utf8.RuneCountInString(edit.Text)
		if resultLen > limits.MaxContentLength {
			return Verdict{Fault: fmt.Errorf(
				"%w: result exceeds %d characters", ErrContentTooLarge, limits.MaxContentLength,
			)}
		}
	}

	return Verdict{}
}

// validateShape checks the rules of each kind that do not depend on the
// document.
func validateShape(op types.Operation, limits Limits) error {
	switch op.Kind {
	case types.OpInsert:
		if op.Content == "" {
			return ErrMissingContent
		}
	case types.OpDelete:
		if op.Length == 0 && op.Target == nil {
			return ErrMissingLength
		}
	case types.OpReplace:
		if op.Length == 0 && op.Content == "" && op.Target == nil {
			return ErrEmptyReplace
		}
	case types.OpUpsertSection:
		if strings.TrimSpace(op.Content) == "" {
			return ErrMissingContent
		}
	}

	if err := checkTarget(op); err != nil {
		return err
	}

	if limits.MaxContentLength > 0 && len(op.Content) > 4*limits.MaxContentLength {
		return fmt.Errorf("%w: operation content is too large", ErrContentTooLarge)
	}
	if !utf8.ValidString(op.Content) {
		return fmt.Errorf("%w: content is not valid UTF-8", ErrMalformedOperation)
	}

	return nil
}
