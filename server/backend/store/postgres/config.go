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

package postgres

import (
	"fmt"
	"time"
)

// Config is the configuration for connecting to PostgreSQL.
type Config struct {
	// DSN is a libpq style connection string or postgres:// URL.
	DSN string `yaml:"DSN"`

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32 `yaml:"MaxConns"`

	ConnectionTimeout string `yaml:"ConnectionTimeout"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf(`invalid argument "" for "--postgres-dsn" flag`)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf(`invalid argument "%d" for "--postgres-max-conns" flag`, c.MaxConns)
	}
	if _, err := time.ParseDuration(c.ConnectionTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--postgres-connection-timeout" flag: %w`,
			c.ConnectionTimeout,
			err,
		)
	}
	return nil
}

// ParseConnectionTimeout returns the connection timeout. Call Validate first.
func (c *Config) ParseConnectionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ConnectionTimeout)
	return d
}
