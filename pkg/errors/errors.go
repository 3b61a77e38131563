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

package errors

import (
	"errors"
)

// StatusError is an error that carries a StatusCode and an optional
// machine-readable code such as "ErrDocumentBusy".
type StatusError interface {
	error
	Status() StatusCode
	Code() string
	WithCode(code string) StatusError
}

type statusError struct {
	err    error
	status StatusCode
	code   string
}

func (e statusError) Error() string      { return e.err.Error() }
func (e statusError) Status() StatusCode { return e.status }
func (e statusError) Code() string       { return e.code }
func (e statusError) Unwrap() error      { return e.err }

// WithCode returns a copy of the error labelled with the given code.
func (e statusError) WithCode(code string) StatusError {
	e.code = code
	return e
}

func newStatusError(message string, status StatusCode) StatusError {
	return statusError{err: errors.New(message), status: status}
}

// InvalidArgument creates an error for malformed input.
func InvalidArgument(message string) StatusError {
	return newStatusError(message, ErrCodeInvalidArgument)
}

// NotFound creates an error for a missing entity.
func NotFound(message string) StatusError {
	return newStatusError(message, ErrCodeNotFound)
}

// ResourceExhausted creates an error for an exceeded limit.
func ResourceExhausted(message string) StatusError {
	return newStatusError(message, ErrCodeResourceExhausted)
}

// FailedPrecond creates an error for an operation attempted in a wrong state.
func FailedPrecond(message string) StatusError {
	return newStatusError(message, ErrCodeFailedPrecondition)
}

// Internal creates an error for a broken server invariant.
func Internal(message string) StatusError {
	return newStatusError(message, ErrCodeInternal)
}

// Unavailable creates an error for a transient, retryable condition.
func Unavailable(message string) StatusError {
	return newStatusError(message, ErrCodeUnavailable)
}

// Unauthenticated creates an error for missing or invalid credentials.
func Unauthenticated(message string) StatusError {
	return newStatusError(message, ErrCodeUnauthenticated)
}

// StatusOf returns the status of the first StatusError in err's chain, or 0
// if there is none.
func StatusOf(err error) StatusCode {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status()
	}
	return 0
}

// CodeOf returns the code of the first StatusError in err's chain.
func CodeOf(err error) string {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code()
	}
	return ""
}

// IsStatus reports whether err carries the given status.
func IsStatus(err error, status StatusCode) bool {
	return StatusOf(err) == status
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return StatusOf(err).Retryable()
}

// Is, As and New are re-exported so callers need a single errors import.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)
