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

package rpc

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.New("invalid port number for RPC server")
	// ErrInvalidCertFile occurs when the certificate file is invalid.
	ErrInvalidCertFile = errors.New("invalid cert file for RPC server")
	// ErrInvalidKeyFile occurs when the key file is invalid.
	ErrInvalidKeyFile = errors.New("invalid key file for RPC server")
	// ErrInvalidHeartbeatInterval occurs when the heartbeat interval is invalid.
	ErrInvalidHeartbeatInterval = errors.New("invalid heartbeat interval for RPC server")
	// ErrInvalidWriteTimeout occurs when the write timeout is invalid.
	ErrInvalidWriteTimeout = errors.New("invalid write timeout for RPC server")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the RPC server.
	Port int `yaml:"Port"`

	// CertFile is the path to the certificate file.
	CertFile string `yaml:"CertFile"`

	// KeyFile is the path to the key file.
	KeyFile string `yaml:"KeyFile"`

	// MaxRequestBytes is the maximum client request size in bytes the server will accept.
	MaxRequestBytes int64 `yaml:"MaxRequestBytes"`

	// AuthSecret is the HS256 secret of bearer tokens. Authentication is
	// disabled when it is empty.
	AuthSecret string `yaml:"AuthSecret"`

	// HeartbeatInterval is the period of websocket pings and SSE comments.
	HeartbeatInterval string `yaml:"HeartbeatInterval"`

	// WriteTimeout bounds a single write to a streaming listener.
	WriteTimeout string `yaml:"WriteTimeout"`
}

// Validate validates the port number and the files for certification.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}

	// when specific cert or key file are configured
	if c.CertFile != "" {
		if _, err := os.Stat(c.CertFile); err != nil {
			return fmt.Errorf("%s: %w", c.CertFile, ErrInvalidCertFile)
		}
	}

	if c.KeyFile != "" {
		if _, err := os.Stat(c.KeyFile); err != nil {
			return fmt.Errorf("%s: %w", c.KeyFile, ErrInvalidKeyFile)
		}
	}

	if d, err := time.ParseDuration(c.HeartbeatInterval); err != nil || d <= 0 {
		return fmt.Errorf("%s: %w", c.HeartbeatInterval, ErrInvalidHeartbeatInterval)
	}

	if d, err := time.ParseDuration(c.WriteTimeout); err != nil || d <= 0 {
		return fmt.Errorf("%s: %w", c.WriteTimeout, ErrInvalidWriteTimeout)
	}

	return nil
}

// ParseHeartbeatInterval returns the heartbeat interval. Call Validate first.
func (c *Config) ParseHeartbeatInterval() time.Duration {
	d, _ := time.ParseDuration(c.HeartbeatInterval)
	return d
}

// ParseWriteTimeout returns the write timeout. Call Validate first.
func (c *Config) ParseWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}
