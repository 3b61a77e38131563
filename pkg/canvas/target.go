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
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/pkg/errors"
)

var (
	// ErrTargetNotFound is returned by Resolve when the target of an
	// operation matches nothing in the content.
	ErrTargetNotFound = errors.FailedPrecond("target not found").WithCode("ErrTargetNotFound")

	// ErrInvalidTarget is returned when a target or placement can never
	// match, whatever the content.
	ErrInvalidTarget = errors.InvalidArgument("invalid target").WithCode("ErrInvalidTarget")
)

// headingLine matches an ATX heading and drops its optional closing hashes.
var headingLine = regexp.MustCompile(`^(#{1,6})[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)

// Edit is an operation resolved against a content: the runes in
// [Start, End) are replaced by Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Resolve turns op into an Edit of content. It returns ErrRangeOutOfBounds or
// ErrTargetNotFound when op does not fit content.
func Resolve(op types.Operation, content string) (Edit, error) {
	if !op.Kind.Known() {
		return Edit{}, fmt.Errorf("%w: %q", ErrUnknownKind, op.Kind)
	}

	if op.Kind == types.OpUpsertSection {
		return resolveSection(op, content)
	}

	if op.Target != nil {
		start, end, err := locate(*op.Target, content)
		if err != nil {
			return Edit{}, err
		}
		return place(op, start, end), nil
	}

	contentLen := utf8.RuneCountInString(content)
	pos := resolveAnchor(op, content, contentLen)

	var removed int
	var text string
	switch op.Kind {
	case types.OpInsert:
		text = op.Content
	case types.OpDelete:
		removed = op.Length
	case types.OpReplace:
		removed = op.Length
		text = op.Content
	}

	if pos < 0 || removed < 0 || pos > contentLen || removed > contentLen-pos {
		return Edit{}, fmt.Errorf(
			"%w: [%d, %d) of %d", ErrRangeOutOfBounds, pos, pos+removed, contentLen,
		)
	}
	return Edit{Start: pos, End: pos + removed, Text: text}, nil
}

// Slug returns the identifier of a heading text: lower case ASCII letters,
// digits and underscores, with runs of spaces and dashes folded into one dash.
// Accents are dropped, so "Café Menu" becomes "cafe-menu".
func Slug(text string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(text),
	)
	if err != nil {
		stripped = strings.ToLower(text)
	}

	var sb strings.Builder
	dash := false
	for _, r := range stripped {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			dash = true
		}
	}
	return sb.String()
}

// checkTarget reports the problems of op's target and placement that do not
// depend on the content.
func checkTarget(op types.Operation) error {
	if op.Kind == types.OpUpsertSection {
		if op.Target == nil || op.Target.Heading == nil || op.Target.Regex != nil {
			return fmt.Errorf("%w: upsert_section requires a heading target", ErrInvalidTarget)
		}
		if op.Where != "" {
			return fmt.Errorf("%w: upsert_section takes no placement", ErrInvalidTarget)
		}
	}

	if op.Target == nil {
		if op.Where != "" {
			return fmt.Errorf("%w: placement requires a target", ErrInvalidTarget)
		}
		return nil
	}

	if op.Anchor != types.AnchorNone || op.Position != 0 || op.Length != 0 {
		return fmt.Errorf("%w: target excludes position, anchor and length", ErrInvalidTarget)
	}
	if op.Where != "" && op.Kind != types.OpInsert {
		return fmt.Errorf("%w: placement only applies to insert", ErrInvalidTarget)
	}

	t := op.Target
	switch {
	case t.Heading != nil && t.Regex != nil, t.Heading == nil && t.Regex == nil:
		return fmt.Errorf("%w: exactly one of heading and regex is required", ErrInvalidTarget)
	case t.Heading != nil:
		if t.Heading.HeadingID == "" && len(t.Heading.Path) == 0 {
			return fmt.Errorf("%w: heading requires a headingId or a path", ErrInvalidTarget)
		}
	default:
		if _, err := compileRegex(*t.Regex); err != nil {
			return err
		}
	}
	return nil
}

// locate returns the rune range matched by t in content.
func locate(t types.Target, content string) (int, int, error) {
	if t.Heading != nil {
		h, ok := findHeading(*t.Heading, headings(content))
		if !ok {
			return 0, 0, fmt.Errorf("%w: heading", ErrTargetNotFound)
		}
		return h.start, h.end, nil
	}
	if t.Regex == nil {
		return 0, 0, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	re, err := compileRegex(*t.Regex)
	if err != nil {
		return 0, 0, err
	}
	matches := re.FindAllStringIndex(content, t.Regex.Nth+1)
	if len(matches) <= t.Regex.Nth {
		return 0, 0, fmt.Errorf(
			"%w: %d matches of %q", ErrTargetNotFound, len(matches), t.Regex.Pattern,
		)
	}
	m := matches[t.Regex.Nth]
	start := utf8.RuneCountInString(content[:m[0]])
	return start, start + utf8.RuneCountInString(content[m[0]:m[1]]), nil
}

// place returns the edit of op around the match [start, end).
func place(op types.Operation, start, end int) Edit {
	switch op.Kind {
	case types.OpDelete:
		return Edit{Start: start, End: end}
	case types.OpReplace:
		return Edit{Start: start, End: end, Text: op.Content}
	}

	switch op.Where {
	case types.PlaceBefore:
		return Edit{Start: start, End: start, Text: op.Content}
	case types.PlaceInsideStart:
		return Edit{Start: end, End: end, Text: "\n" + op.Content}
	case types.PlaceInsideEnd:
		return Edit{Start: end, End: end, Text: op.Content + "\n"}
	case types.PlaceAt, types.PlaceReplaceMatch:
		return Edit{Start: start, End: end, Text: op.Content}
	default:
		return Edit{Start: end, End: end, Text: op.Content}
	}
}

// resolveSection replaces the section of the targeted heading, from its
// heading line up to the next heading of the same or a higher level, or
// appends the section when the heading does not exist.
func resolveSection(op types.Operation, content string) (Edit, error) {
	if op.Target == nil || op.Target.Heading == nil {
		return Edit{}, fmt.Errorf("%w: upsert_section requires a heading target", ErrInvalidTarget)
	}
	section := strings.TrimSpace(op.Content) + "\n"
	contentLen := utf8.RuneCountInString(content)

	hs := headings(content)
	h, ok := findHeading(*op.Target.Heading, hs)
	if !ok {
		var spacing string
		switch {
		case content == "", strings.HasSuffix(content, "\n\n"):
		case strings.HasSuffix(content, "\n"):
			spacing = "\n"
		default:
			spacing = "\n\n"
		}
		return Edit{Start: contentLen, End: contentLen, Text: spacing + section}, nil
	}

	end := contentLen
	for _, next := range hs {
		if next.start > h.start && next.level <= h.level {
			end = next.start
			break
		}
	}
	return Edit{Start: h.start, End: end, Text: section}, nil
}

// resolveAnchor returns the rune offset of op, resolving the anchors that
// depend on headings.
func resolveAnchor(op types.Operation, content string, contentLen int) int {
	switch op.Anchor {
	case types.AnchorAfterTOC:
		hs := headings(content)
		if len(hs) == 0 {
			return 0
		}
		return hs[len(hs)-1].end
	case types.AnchorBeforeFirstHeading:
		hs := headings(content)
		if len(hs) == 0 {
			return contentLen
		}
		return hs[0].start
	default:
		return op.ResolvePosition(contentLen)
	}
}

func compileRegex(t types.RegexTarget) (*regexp.Regexp, error) {
	var flags []rune
	for _, f := range t.Flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(string(flags), f) {
				flags = append(flags, f)
			}
		case 'g', 'u':
		default:
			return nil, fmt.Errorf("%w: unsupported regex flag %q", ErrInvalidTarget, f)
		}
	}

	pattern := t.Pattern
	if len(flags) > 0 {
		pattern = "(?" + string(flags) + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, err.Error())
	}
	return re, nil
}

// heading is an ATX heading line. start and end are rune offsets of the line
// without its line break.
type heading struct {
	level int
	text  string
	start int
	end   int
}

// headings lists the heading lines of content in order, skipping fenced code
// blocks.
func headings(content string) []heading {
	var hs []heading
	fenced := false
	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		start := offset
		offset += utf8.RuneCountInString(line)

		body := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		trimmed := strings.TrimLeft(body, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fenced = !fenced
			continue
		}
		if fenced {
			continue
		}

		m := headingLine.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		hs = append(hs, heading{
			level: len(m[1]),
			text:  strings.TrimSpace(m[2]),
			start: start,
			end:   start + utf8.RuneCountInString(body),
		})
	}
	return hs
}

// findHeading returns the first heading matching t. A path matches when its
// last element is the heading text and the other elements are texts of its
// ancestors, in order.
func findHeading(t types.HeadingTarget, hs []heading) (heading, bool) {
	var stack []heading
	for _, h := range hs {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)

		if t.Level != 0 && h.level != t.Level {
			continue
		}
		if t.HeadingID != "" {
			if Slug(h.text) == t.HeadingID {
				return h, true
			}
			continue
		}
		if matchPath(t.Path, stack) {
			return h, true
		}
	}
	return heading{}, false
}

func matchPath(path []string, stack []heading) bool {
	if len(path) == 0 || stack[len(stack)-1].text != path[len(path)-1] {
		return false
	}
	i := len(path) - 2
	for j := len(stack) - 2; j >= 0 && i >= 0; j-- {
		if stack[j].text == path[i] {
			i--
		}
	}
	return i < 0
}
