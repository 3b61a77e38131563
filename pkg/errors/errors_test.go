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

package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/canvas/pkg/errors"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code   errors.StatusCode
		name   string
		client bool
		http   int
	}{
		{errors.ErrCodeInvalidArgument, "invalid_argument", true, http.StatusBadRequest},
		{errors.ErrCodeNotFound, "not_found", true, http.StatusNotFound},
		{errors.ErrCodeResourceExhausted, "resource_exhausted", true, http.StatusTooManyRequests},
		{errors.ErrCodeFailedPrecondition, "failed_precondition", true, http.StatusPreconditionFailed},
		{errors.ErrCodeUnauthenticated, "unauthenticated", true, http.StatusUnauthorized},
		{errors.ErrCodeInternal, "internal", false, http.StatusInternalServerError},
		{errors.ErrCodeUnavailable, "unavailable", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.code.String())
			assert.Equal(t, tt.client, tt.code.IsClientError())
			assert.Equal(t, !tt.client, tt.code.IsServerError())
			assert.Equal(t, tt.http, tt.code.HTTPStatus())
		})
	}

	assert.Equal(t, "code_999", errors.StatusCode(999).String())
	assert.Equal(t, http.StatusInternalServerError, errors.StatusCode(999).HTTPStatus())
}

func TestStatusOf(t *testing.T) {
	t.Run("wrapped status error test", func(t *testing.T) {
		base := errors.Unavailable("document busy").WithCode("ErrDocumentBusy")
		wrapped := fmt.Errorf("submit doc-1: %w", base)

		assert.Equal(t, errors.ErrCodeUnavailable, errors.StatusOf(wrapped))
		assert.Equal(t, "ErrDocumentBusy", errors.CodeOf(wrapped))
		assert.True(t, errors.IsRetryable(wrapped))
		assert.ErrorIs(t, wrapped, base)
	})

	t.Run("plain error test", func(t *testing.T) {
		err := fmt.Errorf("plain")
		assert.Equal(t, errors.StatusCode(0), errors.StatusOf(err))
		assert.Equal(t, "", errors.CodeOf(err))
		assert.False(t, errors.IsStatus(err, errors.ErrCodeInternal))
		assert.Equal(t, errors.StatusCode(0), errors.StatusOf(nil))
	})

	t.Run("with code keeps status test", func(t *testing.T) {
		err := errors.Internal("apply failed")
		coded := err.WithCode("ErrApplyFault")
		assert.Equal(t, "apply failed", coded.Error())
		assert.Equal(t, errors.ErrCodeInternal, coded.Status())
		assert.Equal(t, "", err.Code())
	})
}
