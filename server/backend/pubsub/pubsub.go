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

// Package pubsub fans document events out to every listener of a document.
package pubsub

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yorkie-team/canvas/api/types/events"
	"github.com/yorkie-team/canvas/pkg/cmap"
	"github.com/yorkie-team/canvas/pkg/errors"
	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
)

// DefaultBufferSize is the number of events a listener may lag behind
// before it is dropped.
const DefaultBufferSize = 64

var (
	// ErrTooManySubscribers is returned when the subscription limit is exceeded.
	ErrTooManySubscribers = errors.ResourceExhausted("subscription limit exceeded").WithCode("ErrTooManySubscribers")
)

// Options configures a PubSub.
type Options struct {
	// BufferSize is the capacity of each subscription's channel.
	BufferSize int

	// MaxSubscribersPerDocument caps listeners per document. Zero means no
	// limit.
	MaxSubscribersPerDocument int
}

// PubSub is the in-process broadcast service. Publishing never blocks on a
// listener.
type PubSub struct {
	opts       Options
	docSubsMap *cmap.Map[*Subscriptions]
	metrics    *prometheus.Metrics
}

// New creates an instance of PubSub.
func New(opts Options, metrics *prometheus.Metrics) *PubSub {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	return &PubSub{
		opts:       opts,
		docSubsMap: cmap.New[*Subscriptions](),
		metrics:    metrics,
	}
}

// Subscribe registers a listener of docID.
func (m *PubSub) Subscribe(
	ctx context.Context,
	subscriber string,
	docID string,
) (*Subscription, error) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s) Start`, docID, subscriber)
	}

	limit := m.opts.MaxSubscribersPerDocument

	// newSub stays nil when the limit is reached.
	var newSub *Subscription
	_ = m.docSubsMap.Upsert(docID, func(subs *Subscriptions, exists bool) *Subscriptions {
		if !exists {
			subs = newSubscriptions(docID)
		}

		if limit > 0 && subs.Len() >= limit {
			return subs
		}

		newSub = newSubscription(docID, subscriber, m.opts.BufferSize)
		subs.Set(newSub)
		return subs
	})

	if newSub == nil {
		return nil, fmt.Errorf(
			"%d subscribers allowed per document: %w",
			limit,
			ErrTooManySubscribers,
		)
	}
	m.metrics.AddSubscribers(1)

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s) End`, docID, subscriber)
	}
	return newSub, nil
}

// Unsubscribe closes sub and forgets it. Calling it for a subscription that
// was already dropped or unsubscribed is a no-op.
func (m *PubSub) Unsubscribe(ctx context.Context, sub *Subscription) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s) Start`, sub.DocID(), sub.Subscriber())
	}

	sub.Close()
	m.remove(sub)

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s) End`, sub.DocID(), sub.Subscriber())
	}
}

func (m *PubSub) remove(sub *Subscription) {
	subs, ok := m.docSubsMap.Get(sub.DocID())
	if !ok {
		return
	}

	if subs.Delete(sub.ID()) {
		m.metrics.AddSubscribers(-1)
	}

	m.docSubsMap.Delete(sub.DocID(), func(subs *Subscriptions, exists bool) bool {
		return exists && subs.Len() == 0
	})
}

// Publish delivers event to every listener of event.DocID. Listeners that
// cannot keep up are dropped instead of being waited on.
func (m *PubSub) Publish(ctx context.Context, event events.DocEvent) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Publish(%s,%s,%d) Start`, event.DocID, event.Type, event.Version)
	}
	m.metrics.AddEvent(string(event.Type))

	subs, ok := m.docSubsMap.Get(event.DocID)
	if ok {
		for _, sub := range subs.Values() {
			if sub.publish(event) || !sub.Dropped() {
				continue
			}

			logging.From(ctx).Infof(
				"Publish(%s,%s) dropped slow subscriber %s",
				event.DocID,
				event.Type,
				sub.Subscriber(),
			)
			m.metrics.AddSubscriberDrop()
			m.remove(sub)
		}
	}

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Publish(%s,%s,%d) End`, event.DocID, event.Type, event.Version)
	}
}

// Count returns the number of listeners of docID.
func (m *PubSub) Count(docID string) int {
	subs, ok := m.docSubsMap.Get(docID)
	if !ok {
		return 0
	}
	return subs.Len()
}

// Close closes every subscription. Listeners see their channel closed.
func (m *PubSub) Close() {
	for _, subs := range m.docSubsMap.Values() {
		for _, sub := range subs.Values() {
			sub.Close()
			m.remove(sub)
		}
	}
}
