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

package checkpoint

import (
	"fmt"
	"time"
)

const (
	// DefaultInterval is how long a document may carry unpersisted changes.
	DefaultInterval = 10 * time.Second

	// DefaultThreshold is the number of pending operations that forces a
	// flush regardless of time.
	DefaultThreshold = 50

	// DefaultTickInterval is the period of the scan that fires time
	// triggers and retries on documents that receive no edits.
	DefaultTickInterval = time.Second

	// DefaultFailureAlertThreshold is the number of consecutive failed
	// flushes after which a document is reported as failing.
	DefaultFailureAlertThreshold = 3
)

// Config is the configuration of the checkpoint scheduler.
type Config struct {
	Interval              string `yaml:"Interval"`
	Threshold             int64  `yaml:"Threshold"`
	TickInterval          string `yaml:"TickInterval"`
	FailureAlertThreshold int    `yaml:"FailureAlertThreshold"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf(`invalid argument %s for "--checkpoint-interval" flag: %w`, c.Interval, err)
	}
	if _, err := time.ParseDuration(c.TickInterval); err != nil {
		return fmt.Errorf(`invalid argument %s for "--checkpoint-tick-interval" flag: %w`, c.TickInterval, err)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf(`invalid argument %d for "--checkpoint-threshold" flag: must be positive`, c.Threshold)
	}
	if c.FailureAlertThreshold <= 0 {
		return fmt.Errorf("invalid failure alert threshold %d: must be positive", c.FailureAlertThreshold)
	}

	return nil
}

// ParseTickInterval parses the tick interval.
func (c *Config) ParseTickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("parse tick interval %s: %w", c.TickInterval, err)
	}
	return d, nil
}

// Options converts the configuration into scheduler options.
func (c *Config) Options() (Options, error) {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return Options{}, fmt.Errorf("parse interval %s: %w", c.Interval, err)
	}

	return Options{
		Policy: Policy{
			Interval:  interval,
			Threshold: c.Threshold,
		},
		FailureAlertThreshold: c.FailureAlertThreshold,
	}, nil
}
