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

package logging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"
)

// RequestLevel picks the level for an HTTP access log line. Client mistakes
// are informational, server faults are errors.
func RequestLevel(status int, err error) zapcore.Level {
	if errors.Is(err, context.Canceled) {
		return zapcore.DebugLevel
	}

	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	case status >= http.StatusBadRequest:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LogRequest writes one access log line.
func LogRequest(logger Logger, method, path string, status int, duration time.Duration, err error) {
	msg := fmt.Sprintf("HTTP : %s %q %d %s", method, path, status, duration)
	var kvs []interface{}
	if err != nil {
		kvs = append(kvs, "err", err.Error())
	}

	switch RequestLevel(status, err) {
	case zapcore.DebugLevel:
		logger.Debugw(msg, kvs...)
	case zapcore.InfoLevel:
		logger.Infow(msg, kvs...)
	case zapcore.WarnLevel:
		logger.Warnw(msg, kvs...)
	default:
		logger.Errorw(msg, kvs...)
	}
}
