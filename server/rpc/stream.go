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
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/rpc/auth"
	"github.com/yorkie-team/canvas/server/rpc/httphelper"
	"github.com/yorkie-team/canvas/server/rpc/interceptors"
)

// maxWebSocketMessageBytes bounds what a listener may send. Listeners only
// answer pings and close.
const maxWebSocketMessageBytes = 512

// subscribe registers the caller as a listener of docID and returns the
// snapshot to send first. Subscribing before reading the snapshot means no
// acknowledgement can fall between the two; the ones already contained in
// the snapshot are skipped with isCovered.
func (s *canvasServer) subscribe(
	ctx context.Context,
	docID string,
) (*pubsub.Subscription, types.Snapshot, error) {
	subscriber := auth.SubjectFromCtx(ctx)
	if subscriber == "" {
		subscriber = "anonymous"
	}
	subscriber += "/" + interceptors.RequestIDFromCtx(ctx)

	// the snapshot validates the document id before anything is registered
	if _, err := s.backend.Canvases.Snapshot(ctx, docID); err != nil {
		return nil, types.Snapshot{}, err
	}

	sub, err := s.backend.PubSub.Subscribe(ctx, subscriber, docID)
	if err != nil {
		return nil, types.Snapshot{}, err
	}

	snap, err := s.backend.Canvases.Snapshot(ctx, docID)
	if err != nil {
		s.backend.PubSub.Unsubscribe(ctx, sub)
		return nil, types.Snapshot{}, err
	}

	return sub, snap, nil
}

func isCovered(evt events.DocEvent, snap types.Snapshot) bool {
	return evt.Type == events.DocAckEvent && evt.Version <= snap.Version
}

// watchWebSocket streams the events of a document over a websocket. The
// first frame is the snapshot.
func (s *canvasServer) watchWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := mux.Vars(r)["docID"]

	sub, snap, err := s.subscribe(ctx, docID)
	if err != nil {
		httphelper.WriteError(ctx, w, err)
		return
	}
	defer s.backend.PubSub.Unsubscribe(ctx, sub)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.From(ctx).Warnf("upgrade %s: %v", docID, err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	heartbeat := s.conf.ParseHeartbeatInterval()
	writeTimeout := s.conf.ParseWriteTimeout()

	// the read pump only notices pongs and disconnects
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)

		conn.SetReadLimit(maxWebSocketMessageBytes)
		_ = conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(evt events.DocEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(evt); err != nil {
			return err
		}
		s.backend.Metrics.AddEvent(string(evt.Type))
		return nil
	}

	if err := write(events.NewSnapshotEvent(snap)); err != nil {
		logging.From(ctx).Debugf("write snapshot of %s: %v", docID, err)
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				code, text := websocket.CloseGoingAway, "server closing"
				if sub.Dropped() {
					code, text = websocket.CloseTryAgainLater, "listener too slow"
				}
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(code, text),
					time.Now().Add(writeTimeout),
				)
				return
			}
			if isCovered(evt, snap) {
				continue
			}
			if err := write(evt); err != nil {
				logging.From(ctx).Debugf("write event of %s: %v", docID, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-disconnected:
			return
		case <-s.serviceCtx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(writeTimeout),
			)
			return
		}
	}
}

// watchEvents streams the events of a document as Server-Sent Events. The
// first event is the snapshot; comments keep idle connections open.
func (s *canvasServer) watchEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := mux.Vars(r)["docID"]

	sub, snap, err := s.subscribe(ctx, docID)
	if err != nil {
		httphelper.WriteError(ctx, w, err)
		return
	}
	defer s.backend.PubSub.Unsubscribe(ctx, sub)

	rc := http.NewResponseController(w)
	writeTimeout := s.conf.ParseWriteTimeout()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(write func() error) error {
		_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := write(); err != nil {
			return err
		}
		return rc.Flush()
	}
	sendEvent := func(evt events.DocEvent) error {
		if err := send(func() error { return writeSSE(w, evt) }); err != nil {
			return err
		}
		s.backend.Metrics.AddEvent(string(evt.Type))
		return nil
	}

	if err := sendEvent(events.NewSnapshotEvent(snap)); err != nil {
		logging.From(ctx).Debugf("write snapshot of %s: %v", docID, err)
		return
	}

	ticker := time.NewTicker(s.conf.ParseHeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if isCovered(evt, snap) {
				continue
			}
			if err := sendEvent(evt); err != nil {
				logging.From(ctx).Debugf("write event of %s: %v", docID, err)
				return
			}
		case <-ticker.C:
			if err := send(func() error {
				_, err := io.WriteString(w, ": heartbeat\n\n")
				return err
			}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-s.serviceCtx.Done():
			return
		}
	}
}

func writeSSE(w io.Writer, evt events.DocEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Version, evt.Type, data)
	return err
}
