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

// Package main is the entry point of the canvas CLI.
package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var flagEnvPath string

var rootCmd = &cobra.Command{
	Use:   "canvas",
	Short: "Server of shared text canvases",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(flagEnvPath)
	},
}

// Run executes CLI.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

// loadEnv loads secrets from the given dotenv file. A missing file is not an
// error. Variables already set in the environment take precedence.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvPath, "env-file", ".env", "Path of the dotenv file holding secrets")
}
