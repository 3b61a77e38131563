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

package auth

import (
	"context"
)

// key is the key for the context.Context.
type key int

// subjectKey Key = 0
const subjectKey key = 0

// CtxWithSubject creates a new context with the authenticated subject.
func CtxWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromCtx returns the authenticated subject, or "" when the request
// was not authenticated.
func SubjectFromCtx(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey).(string)
	return subject
}
