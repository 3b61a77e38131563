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

package interceptors

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/yorkie-team/canvas/server/rpc/auth"
	"github.com/yorkie-team/canvas/server/rpc/httphelper"
)

// TokenQueryParam carries the token of clients that cannot set headers, such
// as browser EventSource and WebSocket.
const TokenQueryParam = "token"

// NewAuthMiddleware rejects requests without a valid bearer token. A nil
// token manager disables authentication.
func NewAuthMiddleware(tokenManager *auth.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if tokenManager == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httphelper.WriteError(r.Context(), w, auth.ErrUnauthenticated)
				return
			}

			claims, err := tokenManager.Verify(token)
			if err != nil {
				httphelper.WriteError(r.Context(), w, err)
				return
			}

			ctx := auth.CtxWithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	return r.URL.Query().Get(TokenQueryParam)
}
