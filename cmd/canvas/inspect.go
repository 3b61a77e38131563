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
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yorkie-team/canvas/api/types"
	"github.com/yorkie-team/canvas/server"
	"github.com/yorkie-team/canvas/server/backend"
)

var (
	inspectConfPath string
	inspectLimit    int
	inspectTimeout  time.Duration
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [document id]",
		Short: "Show the checkpoint history of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}

			conf := server.NewConfig()
			if inspectConfPath != "" {
				parsed, err := server.NewConfigFromFile(inspectConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}
			applyEnv(conf)

			st, _, err := backend.OpenStore(conf.Backend.Store, conf.StoreConfigs())
			if err != nil {
				return err
			}
			defer func() {
				_ = st.Close()
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), inspectTimeout)
			defer cancel()

			checkpoints, err := st.History(ctx, args[0], inspectLimit)
			if err != nil {
				return err
			}

			cmd.Printf("%s\n", renderHistory(checkpoints))
			return nil
		},
	}
}

// renderHistory renders the given checkpoints as a table.
func renderHistory(checkpoints []*types.Checkpoint) string {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{
		"VERSION",
		"FINGERPRINT",
		"LENGTH",
		"CREATED AT",
	})
	for _, cp := range checkpoints {
		tw.AppendRow(table.Row{
			cp.Version,
			cp.Fingerprint,
			utf8.RuneCountInString(cp.Content),
			cp.CreatedAt.Format(time.RFC3339),
		})
	}
	return tw.Render()
}

func init() {
	cmd := newInspectCmd()
	cmd.Flags().StringVarP(
		&inspectConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().IntVar(
		&inspectLimit,
		"limit",
		10,
		"The number of checkpoints to show, newest first",
	)
	cmd.Flags().DurationVar(
		&inspectTimeout,
		"timeout",
		10*time.Second,
		"Timeout of the store query",
	)
	rootCmd.AddCommand(cmd)
}
