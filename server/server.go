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

// Package server provides the canvas server which is the main entry point of
// the system. The server is responsible for starting the backend, the RPC
// server and the profiling server.
package server

import (
	"context"
	"net/http"
	gosync "sync"
	"time"

	"github.com/yorkie-team/canvas/server/backend"
	"github.com/yorkie-team/canvas/server/profiling"
	"github.com/yorkie-team/canvas/server/profiling/prometheus"
	"github.com/yorkie-team/canvas/server/rpc"
)

// shutdownTimeout bounds the final checkpoint of every resident document.
const shutdownTimeout = 30 * time.Second

// Server is a server of shared text canvases.
// It receives operations from clients, applies them to the resident
// documents, checkpoints them to the store and propagates the results to
// clients who subscribe to the document.
type Server struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	rpcServer       *rpc.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Server.
func New(conf *Config) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(
		conf.Backend,
		conf.Canvases,
		conf.Checkpoint,
		conf.Housekeeping,
		conf.StoreConfigs(),
		metrics,
	)
	if err != nil {
		return nil, err
	}

	rpcServer, err := rpc.NewServer(conf.RPC, be)
	if err != nil {
		return nil, err
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Server{
		conf:            conf,
		backend:         be,
		rpcServer:       rpcServer,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.backend.Start(); err != nil {
		return err
	}

	if s.profilingServer != nil {
		if err := s.profilingServer.Start(); err != nil {
			return err
		}
	}

	return s.rpcServer.Start()
}

// Shutdown shuts down this server. Resident documents are checkpointed
// before the store is closed.
func (s *Server) Shutdown(graceful bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.shutdown {
		return nil
	}

	s.rpcServer.Shutdown(graceful)
	if s.profilingServer != nil {
		s.profilingServer.Shutdown(graceful)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.backend.Shutdown(ctx); err != nil {
		return err
	}

	close(s.shutdownCh)
	s.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (s *Server) RPCAddr() string {
	return s.conf.RPCAddr()
}

// Handler returns the HTTP handler of the API. It is used for testing.
func (s *Server) Handler() http.Handler {
	return s.rpcServer.Handler()
}
