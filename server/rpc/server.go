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

// Package rpc serves the canvas API over HTTP: operation submission,
// snapshots, lifecycle and streaming of document events.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/yorkie-team/canvas/server/backend"
	"github.com/yorkie-team/canvas/server/logging"
	"github.com/yorkie-team/canvas/server/rpc/auth"
	"github.com/yorkie-team/canvas/server/rpc/httphealth"
	"github.com/yorkie-team/canvas/server/rpc/interceptors"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server is a normal server that processes the logic requested by the client.
type Server struct {
	conf          *Config
	httpServer    *http.Server
	serviceCancel context.CancelFunc
	closing       atomic.Bool
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend) (*Server, error) {
	var tokenManager *auth.TokenManager
	if conf.AuthSecret != "" {
		tokenManager = auth.NewTokenManager(conf.AuthSecret, 0)
	}

	serviceCtx, serviceCancel := context.WithCancel(context.Background())
	s := &Server{
		conf:          conf,
		serviceCancel: serviceCancel,
	}

	router := mux.NewRouter()
	router.Use(interceptors.NewContextMiddleware(be.Metrics))

	path, healthHandler := httphealth.NewHandler(s.checkHealth)
	router.Handle(path, healthHandler)

	api := router.PathPrefix("/v1").Subrouter()
	api.Use(interceptors.NewAuthMiddleware(tokenManager))
	newCanvasServer(serviceCtx, conf, be).register(api)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s, nil
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(lis, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server. Streaming listeners are disconnected in
// both modes; graceful waits for in-flight requests.
func (s *Server) Shutdown(graceful bool) {
	s.closing.Store(true)
	s.serviceCancel()

	if !graceful {
		if err := s.httpServer.Close(); err != nil {
			logging.DefaultLogger().Error(err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.DefaultLogger().Error(err)
	}
}

func (s *Server) checkHealth(_ context.Context) error {
	if s.closing.Load() {
		return errors.New("server is shutting down")
	}
	return nil
}
