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

// Package postgres implements the store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/logging"
)

const createTable = `
CREATE TABLE IF NOT EXISTS canvas_checkpoints (
	id          TEXT PRIMARY KEY,
	doc_id      TEXT NOT NULL,
	version     BIGINT NOT NULL,
	content     TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (doc_id, version)
)`

const selectColumns = `SELECT id, doc_id, version, content, fingerprint, created_at FROM canvas_checkpoints`

// Store is a checkpoint store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Dial opens a pool, checks connectivity and creates the table if needed.
func Dial(conf *Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	poolConf, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if conf.MaxConns > 0 {
		poolConf.MaxConns = conf.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create canvas_checkpoints: %w", err)
	}

	logging.DefaultLogger().Infof(
		"PostgreSQL connected, host: %s, DB: %s",
		poolConf.ConnConfig.Host,
		poolConf.ConnConfig.Database,
	)
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanCheckpoint(row pgx.Row) (*types.Checkpoint, error) {
	cp := &types.Checkpoint{}
	if err := row.Scan(&cp.ID, &cp.DocID, &cp.Version, &cp.Content, &cp.Fingerprint, &cp.CreatedAt); err != nil {
		return nil, err
	}
	return cp, nil
}

// Load returns the latest checkpoint of docID.
func (s *Store) Load(ctx context.Context, docID string) (*types.Checkpoint, error) {
	row := s.pool.QueryRow(ctx, selectColumns+` WHERE doc_id = $1 ORDER BY version DESC LIMIT 1`, docID)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", docID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %v: %w", docID, err, store.ErrUnavailable)
	}
	return cp, nil
}

// Persist inserts cp, ignoring a version that is already stored.
func (s *Store) Persist(ctx context.Context, cp *types.Checkpoint) error {
	if _, err := s.pool.Exec(
		ctx,
		`INSERT INTO canvas_checkpoints (id, doc_id, version, content, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (doc_id, version) DO NOTHING`,
		cp.ID, cp.DocID, cp.Version, cp.Content, cp.Fingerprint, cp.CreatedAt,
	); err != nil {
		return fmt.Errorf("persist %s@%d: %v: %w", cp.DocID, cp.Version, err, store.ErrUnavailable)
	}
	return nil
}

// History returns the checkpoints of docID, newest first.
func (s *Store) History(ctx context.Context, docID string, limit int) ([]*types.Checkpoint, error) {
	query := selectColumns + ` WHERE doc_id = $1 ORDER BY version DESC`
	args := []interface{}{docID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %v: %w", docID, err, store.ErrUnavailable)
	}
	defer rows.Close()

	var history []*types.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history of %s: %w", docID, err)
		}
		history = append(history, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history of %s: %v: %w", docID, err, store.ErrUnavailable)
	}
	return history, nil
}
