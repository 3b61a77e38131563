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

// Package httphelper translates between server errors and HTTP responses.
package httphelper

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/yorkie-team/canvas/internal/validation"
	"github.com/yorkie-team/canvas/pkg/errors"
	"github.com/yorkie-team/canvas/server/logging"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message"`
	Retryable  bool             `json:"retryable,omitempty"`
	Violations []FieldViolation `json:"violations,omitempty"`
}

// FieldViolation describes a field of the request that failed validation.
type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ErrorRecorder is implemented by response writers that keep the error of a
// request for the access log.
type ErrorRecorder interface {
	RecordError(err error)
}

// StatusOf returns the HTTP status of err. Errors without a status are
// internal errors.
func StatusOf(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return errors.StatusOf(err).HTTPStatus()
}

// ToErrorResponse builds the body describing err.
func ToErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Code:      errors.CodeOf(err),
		Message:   err.Error(),
		Retryable: errors.IsRetryable(err),
	}

	var structErr *validation.StructError
	if errors.As(err, &structErr) {
		for _, v := range structErr.Violations {
			resp.Violations = append(resp.Violations, FieldViolation{
				Field:       v.Field,
				Description: v.Error(),
			})
		}
	}

	if errors.StatusOf(err) == 0 {
		resp.Message = http.StatusText(http.StatusInternalServerError)
	}
	return resp
}

// WriteError writes err as a JSON error response.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	if recorder, ok := w.(ErrorRecorder); ok {
		recorder.RecordError(err)
	}

	status := StatusOf(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(ctx, w, status, ToErrorResponse(err))
}

// WriteResults writes v with the status of err. It is used when a request
// failed after part of it took effect.
func WriteResults(ctx context.Context, w http.ResponseWriter, err error, v interface{}) {
	if recorder, ok := w.(ErrorRecorder); ok {
		recorder.RecordError(err)
	}

	status := StatusOf(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(ctx, w, status, v)
}

// WriteJSON writes v with the given status.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(ctx).Warnf("write response: %v", err)
	}
}
