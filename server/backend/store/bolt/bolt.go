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

// Package bolt implements the store on a local bbolt file. Every document has
// a nested bucket whose keys are big-endian versions, so a cursor walks
// checkpoints in version order.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/logging"
)

var rootBucket = []byte("checkpoints")

// Config is the configuration of the bolt store.
type Config struct {
	Path string `yaml:"Path"`

	// OpenTimeout bounds the wait for the file lock held by another process.
	OpenTimeout string `yaml:"OpenTimeout"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf(`invalid argument "" for "--bolt-path" flag`)
	}
	if _, err := time.ParseDuration(c.OpenTimeout); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--bolt-open-timeout" flag: %w`, c.OpenTimeout, err)
	}
	return nil
}

// Store is a checkpoint store backed by a bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the file at conf.Path.
func Open(conf *Config) (*Store, error) {
	timeout, err := time.ParseDuration(conf.OpenTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse open timeout: %w", err)
	}

	db, err := bolt.Open(conf.Path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create root bucket: %w", err)
	}

	logging.DefaultLogger().Infof("bolt store opened, path: %s", conf.Path)
	return &Store{db: db}, nil
}

// Close closes the file.
func (s *Store) Close() error {
	return s.db.Close()
}

func versionKey(version int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(version))
	return key
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

// Persist stores cp unless its version is already stored.
func (s *Store) Persist(_ context.Context, cp *types.Checkpoint) error {
	body, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal %s@%d: %w", cp.DocID, cp.Version, err)
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(cp.DocID))
		if err != nil {
			return err
		}

		key := versionKey(cp.Version)
		if b.Get(key) != nil {
			return nil
		}
		return b.Put(key, body)
	}); err != nil {
		return fmt.Errorf("persist %s@%d: %v: %w", cp.DocID, cp.Version, err, store.ErrUnavailable)
	}
	return nil
}

// History returns the checkpoints of docID, newest first.
func (s *Store) History(_ context.Context, docID string, limit int) ([]*types.Checkpoint, error) {
	var history []*types.Checkpoint
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket).Bucket([]byte(docID))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			cp := &types.Checkpoint{}
			if err := json.Unmarshal(v, cp); err != nil {
				return fmt.Errorf("unmarshal %s@%d: %w", docID, binary.BigEndian.Uint64(k), err)
			}
			history = append(history, cp)
			if limit > 0 && len(history) == limit {
				break
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("history of %s: %w", docID, err)
	}
	return history, nil
}
