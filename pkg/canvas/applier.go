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
	"strings"
	"unicode/utf8"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/pkg/errors"
)

var (
	// ErrRangeOutOfBounds is returned by Apply when the operation addresses
	// runes past the end of the content.
	ErrRangeOutOfBounds = errors.Internal("range out of bounds").WithCode("ErrRangeOutOfBounds")

	// ErrUnknownKind is returned by Apply for an unsupported kind.
	ErrUnknownKind = errors.Internal("unknown operation kind").WithCode("ErrUnknownKind")
)

// Apply returns the content after op. It is deterministic and either returns
// the complete new content or an error; it never returns a partial edit. It
// is meant for operations that passed Validate, so an error here means a bug.
func Apply(op types.Operation, content string) (string, error) {
	edit, err := Resolve(op, content)
	if err != nil {
		return "", err
	}

	start := byteOffset(content, edit.Start)
	end := start + byteOffset(content[start:], edit.End-edit.Start)

	var sb strings.Builder
	sb.Grow(len(content) - (end - start) + len(edit.Text))
	sb.WriteString(content[:start])
	sb.WriteString(edit.Text)
	sb.WriteString(content[end:])
	return sb.String(), nil
}

// byteOffset returns the byte index of the n-th rune of s. n must not exceed
// the rune count of s.
func byteOffset(s string, n int) int {
	offset := 0
	for i := 0; i < n; i++ {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return offset
}
