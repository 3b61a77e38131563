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

package redis

import (
	"fmt"
	"strings"
	"time"
)

// DefaultKeyPrefix is prepended to every key written by the store.
const DefaultKeyPrefix = "canvas"

// Config is the configuration for connecting to Redis.
type Config struct {
	// URL is a redis:// or rediss:// URL.
	URL string `yaml:"URL"`

	KeyPrefix   string `yaml:"KeyPrefix"`
	PingTimeout string `yaml:"PingTimeout"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.URL, "redis://") && !strings.HasPrefix(c.URL, "rediss://") {
		return fmt.Errorf(`invalid argument "%s" for "--redis-url" flag`, c.URL)
	}
	if _, err := time.ParseDuration(c.PingTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--redis-ping-timeout" flag: %w`,
			c.PingTimeout,
			err,
		)
	}
	return nil
}

// ParsePingTimeout returns the ping timeout. Call Validate first.
func (c *Config) ParsePingTimeout() time.Duration {
	d, _ := time.ParseDuration(c.PingTimeout)
	return d
}
