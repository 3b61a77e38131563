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

package canvases

import (
	"fmt"
	"time"
)

const (
	// DefaultLockTimeout is the longest a submission waits for the document.
	DefaultLockTimeout = 3 * time.Second

	// DefaultSeenOperationsSize is the number of operation ids remembered
	// per document for idempotent resubmission.
	DefaultSeenOperationsSize = 1024

	// DefaultCloseRetries is the number of flush retries when a document
	// is closed.
	DefaultCloseRetries = 3
)

// Config is the configuration of the canvas manager.
type Config struct {
	// LockTimeout bounds the wait for a document's critical section.
	LockTimeout string `yaml:"LockTimeout"`

	// MaxContentLength is the largest document, in characters.
	MaxContentLength int `yaml:"MaxContentLength"`

	// SeenOperationsSize is the size of the per-document operation id cache.
	SeenOperationsSize int `yaml:"SeenOperationsSize"`

	// CloseRetries is the number of flush retries of Close.
	CloseRetries int `yaml:"CloseRetries"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return fmt.Errorf(`invalid argument %s for "--lock-timeout" flag: %w`, c.LockTimeout, err)
	}
	if d <= 0 {
		return fmt.Errorf(`invalid argument %s for "--lock-timeout" flag: must be positive`, c.LockTimeout)
	}

	if c.MaxContentLength <= 0 {
		return fmt.Errorf(`invalid argument %d for "--max-content-length" flag: must be positive`, c.MaxContentLength)
	}

	if c.SeenOperationsSize <= 0 {
		return fmt.Errorf("invalid seen operations size %d: must be positive", c.SeenOperationsSize)
	}

	if c.CloseRetries < 0 {
		return fmt.Errorf("invalid close retries %d: must not be negative", c.CloseRetries)
	}

	return nil
}

// ParseLockTimeout parses the lock timeout.
func (c *Config) ParseLockTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("parse lock timeout %s: %w", c.LockTimeout, err)
	}
	return d, nil
}
