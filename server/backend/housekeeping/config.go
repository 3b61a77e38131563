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

// Package housekeeping runs periodic maintenance tasks of the backend, such
// as re-evaluating checkpoint triggers and evicting idle documents.
package housekeeping

import (
	"fmt"
	"time"
)

// Config is the configuration for the housekeeping service.
type Config struct {
	// Interval is the time between idle-eviction runs.
	Interval string `yaml:"Interval"`

	// IdleTTL is how long a document without listeners may stay in memory
	// after its last access.
	IdleTTL string `yaml:"IdleTTL"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-interval" flag: %w`,
			c.Interval,
			err,
		)
	}

	ttl, err := time.ParseDuration(c.IdleTTL)
	if err != nil {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-idle-ttl" flag: %w`,
			c.IdleTTL,
			err,
		)
	}
	if ttl <= 0 {
		return fmt.Errorf(`invalid argument %s for "--housekeeping-idle-ttl" flag: must be positive`, c.IdleTTL)
	}

	return nil
}

// ParseInterval parses the interval.
func (c *Config) ParseInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %s: %w", c.Interval, err)
	}

	return interval, nil
}

// ParseIdleTTL parses the idle TTL.
func (c *Config) ParseIdleTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.IdleTTL)
	if err != nil {
		return 0, fmt.Errorf("parse idle ttl %s: %w", c.IdleTTL, err)
	}

	return ttl, nil
}
