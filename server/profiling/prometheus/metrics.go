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

// Package prometheus provides the Prometheus metrics of the canvas server.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yorkie-team/canvas/internal/version"
)

const (
	namespace      = "canvas"
	statusLabel    = "status"
	resultLabel    = "result"
	reasonLabel    = "reason"
	taskTypeLabel  = "task_type"
	eventTypeLabel = "event_type"
	methodLabel    = "method"
	routeLabel     = "route"
	codeLabel      = "code"
)

// Metrics holds the metrics of the server. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec
	httpHandled   *prometheus.CounterVec

	submitTotal        *prometheus.CounterVec
	applySeconds       prometheus.Histogram
	lockWaitSeconds    prometheus.Histogram
	documentLoadsTotal *prometheus.CounterVec
	hotDocuments       prometheus.Gauge
	evictionsTotal     *prometheus.CounterVec

	checkpointsTotal           *prometheus.CounterVec
	checkpointSeconds          prometheus.Histogram
	checkpointFailingDocuments prometheus.Gauge

	subscribers          prometheus.Gauge
	subscriberDropsTotal prometheus.Counter
	eventsTotal          *prometheus.CounterVec

	backgroundGoroutines *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics with its own registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	factory := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		serverVersion: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		httpHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "server_handled_total",
			Help:      "Total number of HTTP requests completed, by route and status code.",
		}, []string{methodLabel, routeLabel, codeLabel}),
		submitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "submitted_operations_total",
			Help:      "Submitted operations by outcome (ack, conflict, rejected, busy, error).",
		}, []string{statusLabel}),
		applySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "apply_seconds",
			Help:      "Time spent validating and applying one operation inside the critical section.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		lockWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the per-document critical section.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
		}),
		documentLoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "loads_total",
			Help:      "Cold-start loads by result (checkpoint, new, error).",
		}, []string{resultLabel}),
		hotDocuments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "hot",
			Help:      "Number of documents held in memory.",
		}),
		evictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "evictions_total",
			Help:      "Documents removed from memory, by reason.",
		}, []string{reasonLabel}),
		checkpointsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "flushes_total",
			Help:      "Checkpoint flushes by result (success, failure, clean, deferred).",
		}, []string{resultLabel}),
		checkpointSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "flush_seconds",
			Help:      "Time spent persisting a checkpoint.",
		}),
		checkpointFailingDocuments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "failing_documents",
			Help:      "Documents whose recent checkpoints failed repeatedly.",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Number of active listeners.",
		}),
		subscriberDropsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "dropped_subscribers_total",
			Help:      "Listeners closed because they fell behind.",
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "events_total",
			Help:      "Events published, by type.",
		}, []string{eventTypeLabel}),
		backgroundGoroutines: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	m.serverVersion.With(prometheus.Labels{"server_version": version.Version}).Set(1)
	return m, nil
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddHTTPHandled counts a completed HTTP request.
func (m *Metrics) AddHTTPHandled(method, route string, code int) {
	if m == nil {
		return
	}
	m.httpHandled.With(prometheus.Labels{
		methodLabel: method,
		routeLabel:  route,
		codeLabel:   fmt.Sprint(code),
	}).Inc()
}

// AddSubmit counts a submitted operation by its outcome.
func (m *Metrics) AddSubmit(status string) {
	if m == nil {
		return
	}
	m.submitTotal.With(prometheus.Labels{statusLabel: status}).Inc()
}

// ObserveApplySeconds records the time spent in validate and apply.
func (m *Metrics) ObserveApplySeconds(seconds float64) {
	if m == nil {
		return
	}
	m.applySeconds.Observe(seconds)
}

// ObserveLockWaitSeconds records the time spent acquiring a document lock.
func (m *Metrics) ObserveLockWaitSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.lockWaitSeconds.Observe(seconds)
}

// AddDocumentLoad counts a cold-start load.
func (m *Metrics) AddDocumentLoad(result string) {
	if m == nil {
		return
	}
	m.documentLoadsTotal.With(prometheus.Labels{resultLabel: result}).Inc()
}

// SetHotDocuments sets the number of documents in memory.
func (m *Metrics) SetHotDocuments(n int) {
	if m == nil {
		return
	}
	m.hotDocuments.Set(float64(n))
}

// AddEviction counts a document removed from memory.
func (m *Metrics) AddEviction(reason string) {
	if m == nil {
		return
	}
	m.evictionsTotal.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

// AddCheckpoint counts a flush by result.
func (m *Metrics) AddCheckpoint(result string) {
	if m == nil {
		return
	}
	m.checkpointsTotal.With(prometheus.Labels{resultLabel: result}).Inc()
}

// ObserveCheckpointSeconds records the duration of a store write.
func (m *Metrics) ObserveCheckpointSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.checkpointSeconds.Observe(seconds)
}

// AddCheckpointFailingDocuments adjusts the number of documents whose
// checkpoints keep failing.
func (m *Metrics) AddCheckpointFailingDocuments(delta int) {
	if m == nil {
		return
	}
	m.checkpointFailingDocuments.Add(float64(delta))
}

// AddSubscribers adjusts the number of active listeners.
func (m *Metrics) AddSubscribers(delta int) {
	if m == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}

// AddSubscriberDrop counts a listener closed for falling behind.
func (m *Metrics) AddSubscriberDrop() {
	if m == nil {
		return
	}
	m.subscriberDropsTotal.Inc()
}

// AddEvent counts a published event.
func (m *Metrics) AddEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.With(prometheus.Labels{eventTypeLabel: eventType}).Inc()
}

// AddBackgroundGoroutines adds the number of goroutines attached by a particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	if m == nil {
		return
	}
	m.backgroundGoroutines.With(prometheus.Labels{taskTypeLabel: taskType}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	if m == nil {
		return
	}
	m.backgroundGoroutines.With(prometheus.Labels{taskTypeLabel: taskType}).Dec()
}
