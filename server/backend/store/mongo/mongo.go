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

// Package mongo implements the store on MongoDB. Each checkpoint is one
// document of the "checkpoints" collection, unique by (doc_id, version).
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/logging"
)

const colCheckpoints = "checkpoints"

// Store is a checkpoint store backed by MongoDB.
type Store struct {
	config *Config
	client *mongo.Client
	coll   *mongo.Collection
}

// Dial connects to MongoDB and ensures the indexes of the collection.
func Dial(conf *Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(conf.Database).Collection(colCheckpoints)
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "doc_id", Value: 1}, {Key: "version", Value: -1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("create index of %s: %w", colCheckpoints, err)
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Store{
		config: conf,
		client: client,
		coll:   coll,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if err := s.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint of docID.
func (s *Store) Load(ctx context.Context, docID string) (*types.Checkpoint, error) {
	result := s.coll.FindOne(
		ctx,
		bson.M{"doc_id": docID},
		options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}}),
	)

	cp := &types.Checkpoint{}
	if err := result.Decode(cp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("load %s: %w", docID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("load %s: %v: %w", docID, err, store.ErrUnavailable)
	}
	return cp, nil
}

// Persist inserts cp. A duplicate (doc_id, version) is treated as success.
func (s *Store) Persist(ctx context.Context, cp *types.Checkpoint) error {
	if _, err := s.coll.InsertOne(ctx, cp); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("persist %s@%d: %v: %w", cp.DocID, cp.Version, err, store.ErrUnavailable)
	}
	return nil
}

// History returns the checkpoints of docID, newest first.
func (s *Store) History(ctx context.Context, docID string, limit int) ([]*types.Checkpoint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.M{"doc_id": docID}, opts)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %v: %w", docID, err, store.ErrUnavailable)
	}

	var history []*types.Checkpoint
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("decode history of %s: %w", docID, err)
	}
	return history, nil
}
