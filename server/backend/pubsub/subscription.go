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

package pubsub

import (
	"sync"

	"github.com/rs/xid"

	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/pkg/cmap"
)

// Subscription is the event stream of one listener of a document.
type Subscription struct {
	id         string
	docID      string
	subscriber string

	mu      sync.Mutex
	closed  bool
	dropped bool
	events  chan events.DocEvent
}

func newSubscription(docID, subscriber string, bufSize int) *Subscription {
	return &Subscription{
		id:         xid.New().String(),
		docID:      docID,
		subscriber: subscriber,
		events:     make(chan events.DocEvent, bufSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// DocID returns the document this subscription listens to.
func (s *Subscription) DocID() string {
	return s.docID
}

// Subscriber returns the subscriber of this subscription.
func (s *Subscription) Subscriber() string {
	return s.subscriber
}

// Events returns the event channel. It is closed when the subscription is
// closed, either by Unsubscribe or because the listener fell behind.
func (s *Subscription) Events() <-chan events.DocEvent {
	return s.events
}

// Dropped reports whether the subscription was closed because its buffer
// was full. The listener should reconnect and start from a new snapshot.
func (s *Subscription) Dropped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropped
}

// Close closes the event channel. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.close()
}

func (s *Subscription) close() {
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// publish hands event to the listener without waiting. If the buffer is
// full the subscription is closed, so a slow listener never delays the
// publisher or other listeners and never silently misses an event.
func (s *Subscription) publish(event events.DocEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return true
	default:
		s.dropped = true
		s.close()
		return false
	}
}

// Subscriptions is the set of subscriptions of one document.
type Subscriptions struct {
	docID string
	subs  *cmap.Map[*Subscription]
}

func newSubscriptions(docID string) *Subscriptions {
	return &Subscriptions{
		docID: docID,
		subs:  cmap.New[*Subscription](),
	}
}

// Set adds the given subscription.
func (s *Subscriptions) Set(sub *Subscription) {
	s.subs.Set(sub.ID(), sub)
}

// Delete removes and closes the subscription of the given id. It reports
// whether the subscription was present.
func (s *Subscriptions) Delete(id string) bool {
	return s.subs.Delete(id, func(sub *Subscription, exists bool) bool {
		if exists {
			sub.Close()
		}
		return exists
	})
}

// Values returns the subscriptions.
func (s *Subscriptions) Values() []*Subscription {
	return s.subs.Values()
}

// Len returns the number of subscriptions.
func (s *Subscriptions) Len() int {
	return s.subs.Len()
}
