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

// Package backend wires the parts behind the transport: the durable store,
// the broadcast service, the canvas manager with its checkpoint scheduler,
// and the background and housekeeping workers.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/yorkie-team/canvas/server/backend/background"
	"github.com/yorkie-team/canvas/server/backend/checkpoint"
	"github.com/yorkie-team/canvas/server/backend/housekeeping"
	"github.com/yorkie-team/canvas/server/backend/pubsub"
	"github.com/yorkie-team/canvas/server/backend/store"
	"github.com/yorkie-team/canvas/server/backend/store/bolt"
	"github.com/yorkie-team/canvas/server/backend/store/memory"
	"github.com/yorkie-team/canvas/server/backend/store/mongo"
	"github.com/yorkie-team/canvas/server/backend/store/postgres"
	"github.com/yorkie-team/canvas/server/backend/store/redis"
	"github.com/yorkie-team/canvas/server/canvases"
	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
)

// StoreConfigs holds the configuration of each store type. Only the one
// selected by Config.Store is used.
type StoreConfigs struct {
	Mongo    *mongo.Config
	Postgres *postgres.Config
	Redis    *redis.Config
	Bolt     *bolt.Config
}

// Backend manages the state behind the server.
type Backend struct {
	Config *Config

	// Store persists checkpoints.
	Store store.Store
	// PubSub is used to broadcast document events to listeners.
	PubSub *pubsub.PubSub
	// Canvases holds the hot documents.
	Canvases *canvases.Manager

	// Background is used to manage background tasks.
	Background *background.Background
	// Housekeeping runs the periodic tasks.
	Housekeeping *housekeeping.Housekeeping

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	canvasesConf *canvases.Config,
	checkpointConf *checkpoint.Config,
	housekeepingConf *housekeeping.Config,
	storeConfs StoreConfigs,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Open the durable store.
	st, storeInfo, err := OpenStore(conf.Store, storeConfs)
	if err != nil {
		return nil, err
	}

	// 02. Create the broadcast service and the background task manager.
	ps := pubsub.New(pubsub.Options{
		BufferSize:                conf.SubscriberBufferSize,
		MaxSubscribersPerDocument: conf.MaxSubscribersPerDocument,
	}, metrics)
	bg := background.New(metrics)

	// 03. Create the canvas manager and its checkpoint scheduler.
	checkpointOpts, err := checkpointConf.Options()
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}
	manager, err := canvases.New(canvasesConf, checkpointOpts, st, ps, bg, metrics)
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}

	// 04. Register the periodic tasks.
	housekeeper := housekeeping.New(housekeepingConf)
	if err := registerTasks(housekeeper, manager, checkpointConf, housekeepingConf); err != nil {
		return nil, errors.Join(err, st.Close())
	}

	logging.DefaultLogger().Infof("backend created: store: %s", storeInfo)

	return &Backend{
		Config: conf,

		Store:    st,
		PubSub:   ps,
		Canvases: manager,

		Background:   bg,
		Housekeeping: housekeeper,

		Metrics: metrics,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start() error {
	if err := b.Housekeeping.Start(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown flushes every hot document and closes all resources of this
// instance.
func (b *Backend) Shutdown(ctx context.Context) error {
	var errs []error

	if err := b.Housekeeping.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := b.Canvases.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	b.Background.Close()
	b.PubSub.Close()

	if err := b.Store.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}

// OpenStore opens the durable store of the given type. The second return
// value describes the store for logging.
func OpenStore(storeType string, confs StoreConfigs) (store.Store, string, error) {
	switch storeType {
	case "", StoreMemory:
		st, err := memory.New()
		return st, StoreMemory, err
	case StoreMongo:
		if confs.Mongo == nil {
			return nil, "", fmt.Errorf("open %s store: missing configuration", storeType)
		}
		st, err := mongo.Dial(confs.Mongo)
		return st, confs.Mongo.Database, err
	case StorePostgres:
		if confs.Postgres == nil {
			return nil, "", fmt.Errorf("open %s store: missing configuration", storeType)
		}
		st, err := postgres.Dial(confs.Postgres)
		return st, StorePostgres, err
	case StoreRedis:
		if confs.Redis == nil {
			return nil, "", fmt.Errorf("open %s store: missing configuration", storeType)
		}
		st, err := redis.Dial(confs.Redis)
		return st, confs.Redis.KeyPrefix, err
	case StoreBolt:
		if confs.Bolt == nil {
			return nil, "", fmt.Errorf("open %s store: missing configuration", storeType)
		}
		st, err := bolt.Open(confs.Bolt)
		return st, confs.Bolt.Path, err
	default:
		return nil, "", fmt.Errorf("open store: unknown type %q", storeType)
	}
}

func registerTasks(
	h *housekeeping.Housekeeping,
	manager *canvases.Manager,
	checkpointConf *checkpoint.Config,
	housekeepingConf *housekeeping.Config,
) error {
	tickInterval, err := checkpointConf.ParseTickInterval()
	if err != nil {
		return err
	}
	if err := h.RegisterTask("checkpoint-tick", tickInterval, manager.Checkpoints().Tick); err != nil {
		return err
	}

	interval, err := housekeepingConf.ParseInterval()
	if err != nil {
		return err
	}
	idleTTL, err := housekeepingConf.ParseIdleTTL()
	if err != nil {
		return err
	}
	return h.RegisterTask("idle-eviction", interval, func(ctx context.Context) error {
		return manager.EvictIdle(ctx, idleTTL)
	})
}
