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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/canvas/server"
	"github.com/yorkie-team/canvas/server/backend/checkpoint"
	"github.com/yorkie-team/canvas/server/backend/store/bolt"
	"github.com/yorkie-team/canvas/server/logging"
)

var (
	gracefulTimeout = 40 * time.Second
)

var (
	flagConfPath string
	flagLogLevel string

	rpcHeartbeatInterval time.Duration
	rpcWriteTimeout      time.Duration

	housekeepingInterval time.Duration
	housekeepingIdleTTL  time.Duration

	lockTimeout time.Duration

	checkpointInterval     time.Duration
	checkpointTickInterval time.Duration

	boltPath string

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start canvas server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.RPC.HeartbeatInterval = rpcHeartbeatInterval.String()
			conf.RPC.WriteTimeout = rpcWriteTimeout.String()

			conf.Housekeeping.Interval = housekeepingInterval.String()
			conf.Housekeeping.IdleTTL = housekeepingIdleTTL.String()

			conf.Canvases.LockTimeout = lockTimeout.String()

			conf.Checkpoint.Interval = checkpointInterval.String()
			conf.Checkpoint.TickInterval = checkpointTickInterval.String()

			if boltPath != "" {
				conf.Bolt = &bolt.Config{
					Path:        boltPath,
					OpenTimeout: server.DefaultBoltOpenTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}
			applyEnv(conf)

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}

			s, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := s.Start(); err != nil {
				return err
			}

			if code := handleSignal(s); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(s *server.Server) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case sg := <-sigCh:
		sig = sg
	case <-s.ShutdownCh():
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	logging.DefaultLogger().Infof("shutting down: signal %s", sig)

	gracefulCh := make(chan struct{})
	go func() {
		if err := s.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Errorf("shutdown: %v", err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.CertFile,
		"rpc-cert-file",
		"",
		"RPC certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.RPC.KeyFile,
		"rpc-key-file",
		"",
		"RPC key file's path",
	)
	cmd.Flags().Int64Var(
		&conf.RPC.MaxRequestBytes,
		"rpc-max-request-bytes",
		server.DefaultRPCMaxRequestBytes,
		"Maximum client request size in bytes the server will accept.",
	)
	cmd.Flags().DurationVar(
		&rpcHeartbeatInterval,
		"rpc-heartbeat-interval",
		server.DefaultRPCHeartbeatInterval,
		"Interval of keepalive frames on event streams.",
	)
	cmd.Flags().DurationVar(
		&rpcWriteTimeout,
		"rpc-write-timeout",
		server.DefaultRPCWriteTimeout,
		"Deadline of a single write to an event stream.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().DurationVar(
		&housekeepingInterval,
		"housekeeping-interval",
		server.DefaultHousekeepingInterval,
		"housekeeping interval between idle document evictions",
	)
	cmd.Flags().DurationVar(
		&housekeepingIdleTTL,
		"housekeeping-idle-ttl",
		server.DefaultHousekeepingIdleTTL,
		"how long an untouched document without subscribers stays resident",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Store,
		"backend-store",
		server.DefaultStore,
		"Durable store of checkpoints: memory, mongo, postgres, redis or bolt.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.SubscriberBufferSize,
		"backend-subscriber-buffer-size",
		conf.Backend.SubscriberBufferSize,
		"Number of events a subscriber may lag behind before it is dropped.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.MaxSubscribersPerDocument,
		"backend-max-subscribers-per-document",
		0,
		"Maximum number of subscribers of a document. 0 means unlimited.",
	)
	cmd.Flags().DurationVar(
		&lockTimeout,
		"canvas-lock-timeout",
		server.DefaultLockTimeout,
		"Longest a submission waits for its document before it is reported busy.",
	)
	cmd.Flags().IntVar(
		&conf.Canvases.MaxContentLength,
		"canvas-max-content-length",
		conf.Canvases.MaxContentLength,
		"Largest document in characters.",
	)
	cmd.Flags().DurationVar(
		&checkpointInterval,
		"checkpoint-interval",
		checkpoint.DefaultInterval,
		"How long a document may carry unpersisted changes.",
	)
	cmd.Flags().Int64Var(
		&conf.Checkpoint.Threshold,
		"checkpoint-threshold",
		conf.Checkpoint.Threshold,
		"Number of pending operations that forces a checkpoint.",
	)
	cmd.Flags().DurationVar(
		&checkpointTickInterval,
		"checkpoint-tick-interval",
		checkpoint.DefaultTickInterval,
		"Period of the scan that fires time based checkpoints.",
	)
	cmd.Flags().StringVar(
		&boltPath,
		"bolt-path",
		"",
		"Path of the bolt database file",
	)

	rootCmd.AddCommand(cmd)
}
