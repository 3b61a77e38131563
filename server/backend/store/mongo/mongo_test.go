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

package mongo_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/server/backend/store/mongo"
	"github.com/yorkie-team/canvas/server/backend/store/testcases"
)

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		conf := mongo.Config{
			ConnectionURI:     "mongodb://localhost:27017",
			ConnectionTimeout: "5s",
			PingTimeout:       "5s",
			Database:          "canvas",
		}
		assert.NoError(t, conf.Validate())

		conf.ConnectionTimeout = "five"
		assert.Error(t, conf.Validate())

		conf.ConnectionTimeout = "5s"
		conf.PingTimeout = "-"
		assert.Error(t, conf.Validate())

		conf.PingTimeout = "5s"
		conf.ConnectionURI = ""
		assert.Error(t, conf.Validate())
	})
}

// TestStore needs a running MongoDB, given by CANVAS_TEST_MONGO_URI.
func TestStore(t *testing.T) {
	uri := os.Getenv("CANVAS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CANVAS_TEST_MONGO_URI is not set")
	}

	s, err := mongo.Dial(&mongo.Config{
		ConnectionURI:     uri,
		ConnectionTimeout: "5s",
		PingTimeout:       "5s",
		Database:          "canvas-test",
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, s.Close())
	}()

	testcases.RunAll(t, s)
}
