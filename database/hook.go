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

package database

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

var silentMode bool

// EnableSilent mutes the failed and slow query hooks.
func EnableSilent(b bool) {
	silentMode = b
}

// failedQueryHook logs statements that returned an error other than
// "no rows".
type failedQueryHook struct {
	logger Logger
}

var _ bun.QueryHook = (*failedQueryHook)(nil)

func (h *failedQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *failedQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if silentMode || event.Err == nil {
		return
	}
	_, kind := IsSqlError(event.Err)
	if kind == NoRowsErr {
		return
	}
	h.logger.Warn("Database query failed",
		"operation", event.Operation(),
		"kind", kind.String(),
		"duration", time.Since(event.StartTime).Round(time.Microsecond),
		"query", event.Query,
		"error", event.Err,
	)
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if silentMode || event.Err != nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"operation", event.Operation(),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}
