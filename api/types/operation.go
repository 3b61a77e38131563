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

// OpKind is the edit primitive of an Operation.
type OpKind string

const (
	// OpInsert inserts Content at the position.
	OpInsert OpKind = "insert"

	// OpDelete removes Length runes starting at the position.
	OpDelete OpKind = "delete"

	// OpReplace removes Length runes starting at the position and inserts
	// Content in their place.
	OpReplace OpKind = "replace"

	// OpUpsertSection replaces the markdown section of the targeted heading
	// with Content, or appends Content when the heading does not exist.
	OpUpsertSection OpKind = "upsert_section"
)

// Known reports whether k is one of the supported primitives.
func (k OpKind) Known() bool {
	switch k {
	case OpInsert, OpDelete, OpReplace, OpUpsertSection:
		return true
	default:
		return false
	}
}

// Anchor pins an operation to an edge of the content instead of a numeric
// position.
type Anchor string

const (
	// AnchorNone means Position is used as is.
	AnchorNone Anchor = ""

	// AnchorStart resolves the position to 0.
	AnchorStart Anchor = "start"

	// AnchorEnd resolves the position to the length of the content.
	AnchorEnd Anchor = "end"

	// AnchorAfterTOC resolves the position to the end of the last heading
	// line, or 0 when the content has no heading.
	AnchorAfterTOC Anchor = "after_toc"

	// AnchorBeforeFirstHeading resolves the position to the start of the
	// first heading line, or the length of the content when there is none.
	AnchorBeforeFirstHeading Anchor = "before_first_heading"
)

// Placement says where the content of an insert goes relative to the match of
// its Target.
type Placement string

const (
	// PlaceBefore inserts in front of the match.
	PlaceBefore Placement = "before"

	// PlaceAfter inserts behind the match. It is the default.
	PlaceAfter Placement = "after"

	// PlaceInsideStart inserts a newline and the content behind the match.
	PlaceInsideStart Placement = "inside_start"

	// PlaceInsideEnd inserts the content and a newline behind the match.
	PlaceInsideEnd Placement = "inside_end"

	// PlaceAt replaces the match.
	PlaceAt Placement = "at"

	// PlaceReplaceMatch replaces the match. It is an alias of PlaceAt.
	PlaceReplaceMatch Placement = "replace_match"
)

// Target addresses a range of the content by what it contains rather than by
// offset. Exactly one of Heading and Regex is set.
type Target struct {
	Heading *HeadingTarget `json:"heading,omitempty" validate:"omitempty"`
	Regex   *RegexTarget   `json:"regex,omitempty" validate:"omitempty"`
}

// HeadingTarget matches an ATX markdown heading line. HeadingID matches the
// slug of the heading text. Otherwise Path lists heading texts from an
// ancestor down to the heading itself.
type HeadingTarget struct {
	Path      []string `json:"path,omitempty" validate:"omitempty,max=6"`
	Level     int      `json:"level,omitempty" validate:"omitempty,min=1,max=6"`
	HeadingID string   `json:"headingId,omitempty" validate:"omitempty,max=256"`
}

// RegexTarget matches the Nth (0-based) match of Pattern. Flags accepts the
// letters i, m and s; g and u are accepted and ignored.
type RegexTarget struct {
	Pattern string `json:"pattern" validate:"required,max=1000"`
	Flags   string `json:"flags,omitempty" validate:"omitempty,max=5"`
	Nth     int    `json:"nth,omitempty" validate:"gte=0"`
}

// Operation is a single edit submitted against a known version of a document.
// Positions and lengths count runes.
type Operation struct {
	// OpID optionally identifies the operation so that a resubmission after
	// a lost response is acknowledged instead of applied twice.
	OpID string `json:"opId,omitempty" validate:"omitempty,max=64"`

	// BaseVersion is the version the client edited.
	BaseVersion int64 `json:"baseVersion" validate:"gte=0"`

	Kind     OpKind `json:"kind" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
	Anchor   Anchor `json:"anchor,omitempty" validate:"omitempty,oneof=start end after_toc before_first_heading"`
	Length   int    `json:"length,omitempty" validate:"gte=0"`
	Content  string `json:"content,omitempty"`

	// Target, when set, replaces Position, Anchor and Length.
	Target *Target   `json:"target,omitempty" validate:"omitempty"`
	Where  Placement `json:"where,omitempty" validate:"omitempty,oneof=before after inside_start inside_end at replace_match"`
}

// ResolvePosition returns the rune offset the operation targets in content of
// the given rune length. Anchors that depend on headings resolve to Position
// here; pkg/canvas resolves them against the content.
func (o Operation) ResolvePosition(contentLen int) int {
	switch o.Anchor {
	case AnchorStart:
		return 0
	case AnchorEnd:
		return contentLen
	default:
		return o.Position
	}
}
