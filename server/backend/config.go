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

package backend

import (
	"fmt"
)

// Store types.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreBolt     = "bolt"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// Store selects the durable store of checkpoints. Default is "memory".
	Store string `yaml:"Store"`

	// SubscriberBufferSize is the number of events buffered per listener
	// before the listener is dropped.
	SubscriberBufferSize int `yaml:"SubscriberBufferSize"`

	// MaxSubscribersPerDocument limits the listeners of a document. Zero
	// means unlimited.
	MaxSubscribersPerDocument int `yaml:"MaxSubscribersPerDocument"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreMongo, StorePostgres, StoreRedis, StoreBolt:
	default:
		return fmt.Errorf(`invalid argument "%s" for "--store" flag`, c.Store)
	}

	if c.SubscriberBufferSize <= 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--subscriber-buffer-size" flag: must be positive`,
			c.SubscriberBufferSize,
		)
	}

	if c.MaxSubscribersPerDocument < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--max-subscribers-per-document" flag`,
			c.MaxSubscribersPerDocument,
		)
	}

	return nil
}
