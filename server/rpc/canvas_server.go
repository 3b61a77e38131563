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

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/internal/validation"
	"github.com/yorkie-team/canvas/pkg/errors"
	"github.com/yorkie-team/canvas/server/backend"
	"github.com/yorkie-team/canvas/server/rpc/httphelper"
)

var (
	// ErrMalformedRequest is returned when the body cannot be decoded or
	// breaks the request rules.
	ErrMalformedRequest = errors.InvalidArgument("malformed request").WithCode("ErrMalformedRequest")
)

// SubmitRequest is the body of an operation submission.
type SubmitRequest struct {
	Ops []types.Operation `json:"ops" validate:"required,min=1,max=3"`
}

// SubmitResponse reports the outcome of each submitted operation.
type SubmitResponse struct {
	Results []types.Result `json:"results"`
}

type canvasServer struct {
	serviceCtx context.Context
	conf       *Config
	backend    *backend.Backend
	upgrader   websocket.Upgrader
}

func newCanvasServer(serviceCtx context.Context, conf *Config, be *backend.Backend) *canvasServer {
	return &canvasServer{
		serviceCtx: serviceCtx,
		conf:       conf,
		backend:    be,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *canvasServer) register(r *mux.Router) {
	r.HandleFunc("/canvases/{docID}", s.getSnapshot).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/canvases/{docID}/ops", s.submitOps).Methods(http.MethodPost)
	r.HandleFunc("/canvases/{docID}/close", s.closeCanvas).Methods(http.MethodPost)
	r.HandleFunc("/canvases/{docID}/ws", s.watchWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/canvases/{docID}/events", s.watchEvents).Methods(http.MethodGet)
}

// submitOps answers 200 when every operation is acknowledged, 409 when one
// conflicts and 400 when one is rejected. A failure after the first operation
// answers with the status of the failure and the results so far.
func (s *canvasServer) submitOps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := mux.Vars(r)["docID"]

	var req SubmitRequest
	body := r.Body
	if s.conf.MaxRequestBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.conf.MaxRequestBytes)
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		httphelper.WriteError(ctx, w, fmt.Errorf("decode body: %w: %v", ErrMalformedRequest, err))
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		httphelper.WriteError(ctx, w, fmt.Errorf("%w: %w", ErrMalformedRequest, err))
		return
	}

	results, err := s.backend.Canvases.SubmitBatch(ctx, docID, req.Ops)
	if err != nil && len(results) == 0 {
		httphelper.WriteError(ctx, w, err)
		return
	}
	if err != nil {
		// Earlier operations of the batch were applied; their results must
		// reach the client along with the failure.
		httphelper.WriteResults(ctx, w, err, SubmitResponse{Results: results})
		return
	}

	httphelper.WriteJSON(ctx, w, statusOfResults(results), SubmitResponse{Results: results})
}

func statusOfResults(results []types.Result) int {
	for _, res := range results {
		switch res.Status {
		case types.StatusConflict:
			return http.StatusConflict
		case types.StatusRejected:
			return http.StatusBadRequest
		}
	}
	return http.StatusOK
}

// getSnapshot returns the current state. The fingerprint doubles as the
// ETag, so an unchanged document answers 304.
func (s *canvasServer) getSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := mux.Vars(r)["docID"]

	snap, err := s.backend.Canvases.Snapshot(ctx, docID)
	if err != nil {
		httphelper.WriteError(ctx, w, err)
		return
	}

	w.Header().Set("ETag", snap.Fingerprint)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), snap.Fingerprint) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	httphelper.WriteJSON(ctx, w, http.StatusOK, snap)
}

// etagMatches compares header against etag with the weak comparison of
// If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}

	opaque := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == opaque {
			return true
		}
	}
	return false
}

// closeCanvas flushes and evicts a document. With force=true the document is
// evicted even if the flush fails.
func (s *canvasServer) closeCanvas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := mux.Vars(r)["docID"]
	force := r.URL.Query().Get("force") == "true"

	if err := s.backend.Canvases.Close(ctx, docID, force); err != nil {
		httphelper.WriteError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
