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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/canvas/pkg/canvas"
	"github.com/yorkie-team/canvas/server/backend"
	"github.com/yorkie-team/canvas/server/backend/checkpoint"
	"github.com/yorkie-team/canvas/server/backend/housekeeping"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/backend/store/bolt"
	"github.com/yorkie-team/canvas/server/backend/store/mongo"
	"github.com/yorkie-team/canvas/server/backend/store/postgres"
	"github.com/yorkie-team/canvas/server/backend/store/redis"
	"github.com/yorkie-team/canvas/server/canvases"
	"github.com/yorkie-team/canvas/server/profiling"
	"github.com/yorkie-team/canvas/server/rpc"
)

// Below are the values of the default values of the canvas server config.
const (
	DefaultRPCPort              = 8080
	DefaultRPCMaxRequestBytes   = 4 << 20
	DefaultRPCHeartbeatInterval = 15 * time.Second
	DefaultRPCWriteTimeout      = 10 * time.Second
	DefaultProfilingPort        = 8081

	DefaultHousekeepingInterval = 5 * time.Minute
	DefaultHousekeepingIdleTTL  = 30 * time.Minute

	DefaultLockTimeout = canvases.DefaultLockTimeout

	DefaultStore = backend.StoreMemory

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoDatabase          = "canvas"

	DefaultPostgresMaxConns          = 10
	DefaultPostgresConnectionTimeout = 5 * time.Second

	DefaultRedisURL         = "redis://localhost:6379/0"
	DefaultRedisPingTimeout = 5 * time.Second

	DefaultBoltPath        = "canvas.db"
	DefaultBoltOpenTimeout = time.Second
)

// Config is the configuration for creating a canvas server instance.
type Config struct {
	RPC          *rpc.Config          `yaml:"RPC"`
	Profiling    *profiling.Config    `yaml:"Profiling"`
	Housekeeping *housekeeping.Config `yaml:"Housekeeping"`
	Backend      *backend.Config      `yaml:"Backend"`
	Canvases     *canvases.Config     `yaml:"Canvases"`
	Checkpoint   *checkpoint.Config   `yaml:"Checkpoint"`
	Mongo        *mongo.Config        `yaml:"Mongo"`
	Postgres     *postgres.Config     `yaml:"Postgres"`
	Redis        *redis.Config        `yaml:"Redis"`
	Bolt         *bolt.Config         `yaml:"Bolt"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// StoreConfigs returns the configuration of the durable stores.
func (c *Config) StoreConfigs() backend.StoreConfigs {
	return backend.StoreConfigs{
		Mongo:    c.Mongo,
		Postgres: c.Postgres,
		Redis:    c.Redis,
		Bolt:     c.Bolt,
	}
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if err := c.Canvases.Validate(); err != nil {
		return err
	}

	if err := c.Checkpoint.Validate(); err != nil {
		return err
	}

	switch c.Backend.Store {
	case backend.StoreMongo:
		if c.Mongo == nil {
			return fmt.Errorf("store %s: missing Mongo configuration", c.Backend.Store)
		}
		return c.Mongo.Validate()
	case backend.StorePostgres:
		if c.Postgres == nil {
			return fmt.Errorf("store %s: missing Postgres configuration", c.Backend.Store)
		}
		return c.Postgres.Validate()
	case backend.StoreRedis:
		if c.Redis == nil {
			return fmt.Errorf("store %s: missing Redis configuration", c.Backend.Store)
		}
		return c.Redis.Validate()
	case backend.StoreBolt:
		if c.Bolt == nil {
			return fmt.Errorf("store %s: missing Bolt configuration", c.Backend.Store)
		}
		return c.Bolt.Validate()
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	defaults := NewConfig()
	if c.RPC == nil {
		c.RPC = defaults.RPC
	}
	if c.Profiling == nil {
		c.Profiling = defaults.Profiling
	}
	if c.Housekeeping == nil {
		c.Housekeeping = defaults.Housekeeping
	}
	if c.Backend == nil {
		c.Backend = defaults.Backend
	}
	if c.Canvases == nil {
		c.Canvases = defaults.Canvases
	}
	if c.Checkpoint == nil {
		c.Checkpoint = defaults.Checkpoint
	}

	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.MaxRequestBytes == 0 {
		c.RPC.MaxRequestBytes = DefaultRPCMaxRequestBytes
	}
	if c.RPC.HeartbeatInterval == "" {
		c.RPC.HeartbeatInterval = DefaultRPCHeartbeatInterval.String()
	}
	if c.RPC.WriteTimeout == "" {
		c.RPC.WriteTimeout = DefaultRPCWriteTimeout.String()
	}

	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Housekeeping.Interval == "" {
		c.Housekeeping.Interval = DefaultHousekeepingInterval.String()
	}
	if c.Housekeeping.IdleTTL == "" {
		c.Housekeeping.IdleTTL = DefaultHousekeepingIdleTTL.String()
	}

	if c.Backend.Store == "" {
		c.Backend.Store = DefaultStore
	}
	if c.Backend.SubscriberBufferSize == 0 {
		c.Backend.SubscriberBufferSize = pubsub.DefaultBufferSize
	}

	if c.Canvases.LockTimeout == "" {
		c.Canvases.LockTimeout = DefaultLockTimeout.String()
	}
	if c.Canvases.MaxContentLength == 0 {
		c.Canvases.MaxContentLength = canvas.DefaultMaxContentLength
	}
	if c.Canvases.SeenOperationsSize == 0 {
		c.Canvases.SeenOperationsSize = canvases.DefaultSeenOperationsSize
	}
	if c.Canvases.CloseRetries == 0 {
		c.Canvases.CloseRetries = canvases.DefaultCloseRetries
	}

	if c.Checkpoint.Interval == "" {
		c.Checkpoint.Interval = checkpoint.DefaultInterval.String()
	}
	if c.Checkpoint.Threshold == 0 {
		c.Checkpoint.Threshold = checkpoint.DefaultThreshold
	}
	if c.Checkpoint.TickInterval == "" {
		c.Checkpoint.TickInterval = checkpoint.DefaultTickInterval.String()
	}
	if c.Checkpoint.FailureAlertThreshold == 0 {
		c.Checkpoint.FailureAlertThreshold = checkpoint.DefaultFailureAlertThreshold
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = DefaultMongoDatabase
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
	}

	if c.Postgres != nil {
		if c.Postgres.MaxConns == 0 {
			c.Postgres.MaxConns = DefaultPostgresMaxConns
		}
		if c.Postgres.ConnectionTimeout == "" {
			c.Postgres.ConnectionTimeout = DefaultPostgresConnectionTimeout.String()
		}
	}

	if c.Redis != nil {
		if c.Redis.URL == "" {
			c.Redis.URL = DefaultRedisURL
		}
		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = redis.DefaultKeyPrefix
		}
		if c.Redis.PingTimeout == "" {
			c.Redis.PingTimeout = DefaultRedisPingTimeout.String()
		}
	}

	if c.Bolt != nil {
		if c.Bolt.Path == "" {
			c.Bolt.Path = DefaultBoltPath
		}
		if c.Bolt.OpenTimeout == "" {
			c.Bolt.OpenTimeout = DefaultBoltOpenTimeout.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:              port,
			MaxRequestBytes:   DefaultRPCMaxRequestBytes,
			HeartbeatInterval: DefaultRPCHeartbeatInterval.String(),
			WriteTimeout:      DefaultRPCWriteTimeout.String(),
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Housekeeping: &housekeeping.Config{
			Interval: DefaultHousekeepingInterval.String(),
			IdleTTL:  DefaultHousekeepingIdleTTL.String(),
		},
		Backend: &backend.Config{
			Store:                DefaultStore,
			SubscriberBufferSize: pubsub.DefaultBufferSize,
		},
		Canvases: &canvases.Config{
			LockTimeout:        DefaultLockTimeout.String(),
			MaxContentLength:   canvas.DefaultMaxContentLength,
			SeenOperationsSize: canvases.DefaultSeenOperationsSize,
			CloseRetries:       canvases.DefaultCloseRetries,
		},
		Checkpoint: &checkpoint.Config{
			Interval:              checkpoint.DefaultInterval.String(),
			Threshold:             checkpoint.DefaultThreshold,
			TickInterval:          checkpoint.DefaultTickInterval.String(),
			FailureAlertThreshold: checkpoint.DefaultFailureAlertThreshold,
		},
	}
}
