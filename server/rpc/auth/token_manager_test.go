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

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/canvas/pkg/errors"
	"github.com/yorkie-team/canvas/server/rpc/auth"
)

func TestTokenManager(t *testing.T) {
	manager := auth.NewTokenManager("secret", time.Hour)

	t.Run("generate and verify test", func(t *testing.T) {
		token, err := manager.Generate("alice")
		require.NoError(t, err)

		claims, err := manager.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
	})

	t.Run("wrong secret test", func(t *testing.T) {
		token, err := auth.NewTokenManager("other", time.Hour).Generate("alice")
		require.NoError(t, err)

		_, err = manager.Verify(token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		assert.Equal(t, errors.ErrCodeUnauthenticated, errors.StatusOf(err))
	})

	t.Run("expired token test", func(t *testing.T) {
		token, err := auth.NewTokenManager("secret", -time.Minute).Generate("alice")
		require.NoError(t, err)

		_, err = manager.Verify(token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("unexpected signing method test", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "mallory"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = manager.Verify(token)
		assert.Error(t, err)
	})

	t.Run("subject context test", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, "", auth.SubjectFromCtx(ctx))
		assert.Equal(t, "alice", auth.SubjectFromCtx(auth.CtxWithSubject(ctx, "alice")))
	})
}
