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

// Package errors provides status-carrying errors shared by the canvas server
// packages. The transport layer translates the status into a response code.
package errors

import (
	"fmt"
	"net/http"
)

// StatusCode classifies an error by who is expected to act on it.
type StatusCode int

const (
	// ErrCodeInvalidArgument indicates that the request is malformed
	// regardless of the state of the document.
	ErrCodeInvalidArgument StatusCode = 3

	// ErrCodeNotFound indicates that the requested entity does not exist.
	ErrCodeNotFound StatusCode = 5

	// ErrCodeResourceExhausted indicates that a limit such as the number of
	// subscribers per document has been reached.
	ErrCodeResourceExhausted StatusCode = 8

	// ErrCodeFailedPrecondition indicates that the document is not in a state
	// that allows the operation, e.g. it is being closed.
	ErrCodeFailedPrecondition StatusCode = 9

	// ErrCodeInternal indicates that an invariant of the server was broken.
	ErrCodeInternal StatusCode = 13

	// ErrCodeUnavailable indicates a transient condition. Clients may back off
	// and retry.
	ErrCodeUnavailable StatusCode = 14

	// ErrCodeUnauthenticated indicates missing or invalid credentials.
	ErrCodeUnauthenticated StatusCode = 16
)

// String returns the snake_case name of the code.
func (c StatusCode) String() string {
	switch c {
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeFailedPrecondition:
		return "failed_precondition"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeUnavailable:
		return "unavailable"
	case ErrCodeUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// IsClientError returns true if the caller has to change the request.
func (c StatusCode) IsClientError() bool {
	switch c {
	case ErrCodeInvalidArgument, ErrCodeNotFound, ErrCodeResourceExhausted,
		ErrCodeFailedPrecondition, ErrCodeUnauthenticated:
		return true
	default:
		return false
	}
}

// IsServerError returns true if the fault is on the server side.
func (c StatusCode) IsServerError() bool {
	return c == ErrCodeInternal || c == ErrCodeUnavailable
}

// Retryable returns true if the same request may succeed later.
func (c StatusCode) Retryable() bool {
	return c == ErrCodeUnavailable
}

// HTTPStatus maps the code to an HTTP status. Unknown codes are treated as
// internal errors.
func (c StatusCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeResourceExhausted:
		return http.StatusTooManyRequests
	case ErrCodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
