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

// Package httphealth uses http GET to provide a health check for the server.
package httphealth

import (
	"context"
	"encoding/json"
	"net/http"
)

// Path is the path of the health check.
const Path = "/healthz"

// Statuses of the health check.
const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

// CheckResponse represents the response structure for health checks.
type CheckResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Checker reports whether the server can serve requests.
type Checker func(ctx context.Context) error

// NewHandler creates a new HTTP handler for health checks.
func NewHandler(checker Checker) (string, http.Handler) {
	check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := http.StatusOK
		checkResponse := CheckResponse{Status: StatusServing}
		if err := checker(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			checkResponse = CheckResponse{Status: StatusNotServing, Error: err.Error()}
		}

		resp, err := json.Marshal(checkResponse)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if r.Method == http.MethodGet {
			_, _ = w.Write(resp)
		}
	})
	return Path, check
}
