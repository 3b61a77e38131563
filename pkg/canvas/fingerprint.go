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

// Package canvas implements the pure parts of document editing: validating an
// operation against a state, applying it to content, and fingerprinting
// content. Nothing in this package holds state or locks.
package canvas

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the weak ETag of content. It only depends on content,
// so it is stable across processes and restarts.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return `W/"` + hex.EncodeToString(sum[:16]) + `"`
}

// EmptyFingerprint is the fingerprint of a new document.
var EmptyFingerprint = Fingerprint("")
