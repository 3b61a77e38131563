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

package main

import (
	"os"

	"github.com/yorkie-team/canvas/server"
	"github.com/yorkie-team/canvas/server/backend/store/mongo"
	"github.com/yorkie-team/canvas/server/backend/store/postgres"
	"github.com/yorkie-team/canvas/server/backend/store/redis"
)

// Environment variables holding secrets. They are usually provided by a
// dotenv file and override the values of the config.
const (
	EnvAuthSecret  = "CANVAS_AUTH_SECRET"
	EnvMongoURI    = "CANVAS_MONGO_URI"
	EnvPostgresDSN = "CANVAS_POSTGRES_DSN"
	EnvRedisURL    = "CANVAS_REDIS_URL"
)

// applyEnv overrides the secrets of conf with the environment.
func applyEnv(conf *server.Config) {
	if v := os.Getenv(EnvAuthSecret); v != "" {
		conf.RPC.AuthSecret = v
	}

	if v := os.Getenv(EnvMongoURI); v != "" {
		if conf.Mongo == nil {
			conf.Mongo = &mongo.Config{
				ConnectionTimeout: server.DefaultMongoConnectionTimeout.String(),
				Database:          server.DefaultMongoDatabase,
				PingTimeout:       server.DefaultMongoPingTimeout.String(),
			}
		}
		conf.Mongo.ConnectionURI = v
	}

	if v := os.Getenv(EnvPostgresDSN); v != "" {
		if conf.Postgres == nil {
			conf.Postgres = &postgres.Config{
				MaxConns:          server.DefaultPostgresMaxConns,
				ConnectionTimeout: server.DefaultPostgresConnectionTimeout.String(),
			}
		}
		conf.Postgres.DSN = v
	}

	if v := os.Getenv(EnvRedisURL); v != "" {
		if conf.Redis == nil {
			conf.Redis = &redis.Config{
				KeyPrefix:   redis.DefaultKeyPrefix,
				PingTimeout: server.DefaultRedisPingTimeout.String(),
			}
		}
		conf.Redis.URL = v
	}
}
