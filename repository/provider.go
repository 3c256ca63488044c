/*
 * Copyright 2025 tomoncle.
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

package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// ConnectionProvider hands out a dedicated store connection per call.
// The caller owns the returned connection and must Close it.
type ConnectionProvider interface {
	Acquire(ctx context.Context) (bun.Conn, error)
}

// ProviderFunc adapts a function to ConnectionProvider.
type ProviderFunc func(ctx context.Context) (bun.Conn, error)

func (f ProviderFunc) Acquire(ctx context.Context) (bun.Conn, error) { return f(ctx) }

// FromDB returns a provider drawing connections from the pool of db.
func FromDB(db *bun.DB) ConnectionProvider {
	return ProviderFunc(func(ctx context.Context) (bun.Conn, error) {
		if db == nil {
			return bun.Conn{}, fmt.Errorf("database not initialized")
		}
		return db.Conn(ctx)
	})
}
