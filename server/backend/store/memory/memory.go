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

// Package memory implements the store on go-memdb. Checkpoints live only as
// long as the process, which makes it suitable for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server/backend/store"
)

const tblCheckpoints = "checkpoints"

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblCheckpoints: {
			Name: tblCheckpoints,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"doc_id": {
					Name:    "doc_id",
					Indexer: &memdb.StringFieldIndex{Field: "DocID"},
				},
				"doc_id_version": {
					Name:   "doc_id_version",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "DocID"},
							&memdb.IntFieldIndex{Field: "Version"},
						},
					},
				},
			},
		},
	},
}

// Store is an in-memory checkpoint store.
type Store struct {
	db *memdb.MemDB
}

// New creates an empty Store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &Store{db: db}, nil
}

// Close does nothing.
func (s *Store) Close() error {
	return nil
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
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblCheckpoints, "doc_id_version", cp.DocID, cp.Version)
	if err != nil {
		return fmt.Errorf("find %s@%d: %w", cp.DocID, cp.Version, err)
	}
	if raw != nil {
		return nil
	}

	stored := *cp
	if err := txn.Insert(tblCheckpoints, &stored); err != nil {
		return fmt.Errorf("persist %s@%d: %w", cp.DocID, cp.Version, err)
	}
	txn.Commit()
	return nil
}

// History returns the checkpoints of docID, newest first.
func (s *Store) History(_ context.Context, docID string, limit int) ([]*types.Checkpoint, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblCheckpoints, "doc_id", docID)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", docID, err)
	}

	var history []*types.Checkpoint
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		cp := *raw.(*types.Checkpoint)
		history = append(history, &cp)
	}

	// varint keys of IntFieldIndex do not sort numerically, so order here
	sort.Slice(history, func(i, j int) bool {
		return history[i].Version > history[j].Version
	})
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}
