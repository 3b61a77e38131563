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

// Package interceptors provides the HTTP middleware of the RPC server.
package interceptors

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
)

// responseWriter keeps the status and the error of a response for the access
// log. It passes Flush and Hijack through for the streaming endpoints.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	err         error
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) RecordError(err error) {
	w.err = err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		// an upgraded connection answers with 101
		w.status = http.StatusSwitchingProtocols
		w.wroteHeader = true
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// NewContextMiddleware assigns the request id and a request-scoped logger,
// then writes the access log line and the request metric.
func NewContextMiddleware(metrics *prometheus.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := requestIDOf(r)
			w.Header().Set(RequestIDHeader, reqID)
			logger := logging.New(reqID)

			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			ctx = logging.With(ctx, logger)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.AddHTTPHandled(r.Method, route, rw.status)
			logging.LogRequest(logger, r.Method, r.URL.Path, rw.status, time.Since(start), rw.err)
		})
	}
}
