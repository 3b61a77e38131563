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

// Package redis implements the store on Redis. The versions of a document are
// kept in a sorted set scored by version, and each checkpoint body is a JSON
// string under its own key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/logging"
)

// Store is a checkpoint store backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// Dial connects to the Redis server of conf.
func Dial(conf *Config) (*Store, error) {
	opts, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), conf.ParsePingTimeout())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logging.DefaultLogger().Infof("Redis connected, addr: %s", opts.Addr)
	return New(client, conf.KeyPrefix), nil
}

// New creates a Store on an existing client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) versionsKey(docID string) string {
	return s.prefix + ":versions:" + docID
}

func (s *Store) checkpointKey(docID string, version int64) string {
	return s.prefix + ":checkpoint:" + docID + ":" + strconv.FormatInt(version, 10)
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Load returns the latest checkpoint of docID.
func (s *Store) Load(ctx context.Context, docID string) (*types.Checkpoint, error) {
	history, err := s.History(ctx, docID, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("load %s: %w", docID, store.ErrNotFound)
	}
	return history[0], nil
}

// Persist writes the body of cp and indexes its version. Both writes are
// no-ops for a version that is already stored.
func (s *Store) Persist(ctx context.Context, cp *types.Checkpoint) error {
	body, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal %s@%d: %w", cp.DocID, cp.Version, err)
	}

	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.checkpointKey(cp.DocID, cp.Version), body, 0)
		pipe.ZAddNX(ctx, s.versionsKey(cp.DocID), redis.Z{
			Score:  float64(cp.Version),
			Member: strconv.FormatInt(cp.Version, 10),
		})
		return nil
	}); err != nil {
		return fmt.Errorf("persist %s@%d: %v: %w", cp.DocID, cp.Version, err, store.ErrUnavailable)
	}
	return nil
}

// History returns the checkpoints of docID, newest first.
func (s *Store) History(ctx context.Context, docID string, limit int) ([]*types.Checkpoint, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	versions, err := s.client.ZRevRange(ctx, s.versionsKey(docID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("history of %s: %v: %w", docID, err, store.ErrUnavailable)
	}
	if len(versions) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(versions))
	for _, v := range versions {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version %q of %s: %w", v, docID, err)
		}
		keys = append(keys, s.checkpointKey(docID, version))
	}

	bodies, err := s.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("history of %s: %v: %w", docID, err, store.ErrUnavailable)
	}

	history := make([]*types.Checkpoint, 0, len(bodies))
	for i, body := range bodies {
		str, ok := body.(string)
		if !ok {
			logging.DefaultLogger().Warnf("checkpoint body missing: %s", keys[i])
			continue
		}

		cp := &types.Checkpoint{}
		if err := json.Unmarshal([]byte(str), cp); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", keys[i], err)
		}
		history = append(history, cp)
	}
	return history, nil
}
