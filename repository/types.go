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

	"github.com/tomoncle/clientele/types"
)

// Adder inserts new entities.
type Adder[T any] interface {
	Add(ctx context.Context, item *T) error
}

// Updater replaces every mutable column of a persisted entity.
type Updater[T any] interface {
	Update(ctx context.Context, item *T) error
}

// LogicalDeleter marks a persisted entity inactive, keeping its row.
type LogicalDeleter[T any] interface {
	LogicallyDelete(ctx context.Context, item *T) error
}

// PermanentlyDeleter removes the row of a persisted entity.
type PermanentlyDeleter[T any] interface {
	PermanentlyDelete(ctx context.Context, item *T) error
}

// Finder looks entities up by identifier or by criteria.
type Finder[T any, C types.Criteria] interface {
	// SearchByID returns nil without error when no row matches.
	SearchByID(ctx context.Context, id int64) (*T, error)

	// SearchBy returns the 1-based page of rows matching criteria.
	SearchBy(ctx context.Context, criteria C, page int) (*types.SearchResult[C], error)
}

// Checker is the pre-insert business rule gate.
type Checker[T any] interface {
	ItemIsValid(ctx context.Context, item *T) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc[T any] func(ctx context.Context, item *T) error

func (f CheckerFunc[T]) ItemIsValid(ctx context.Context, item *T) error { return f(ctx, item) }

// AcceptAll is the default Checker; it accepts every item.
type AcceptAll[T any] struct{}

func (AcceptAll[T]) ItemIsValid(context.Context, *T) error { return nil }

// Repository combines every capability contract for one entity type.
type Repository[T any, C types.Criteria] interface {
	Adder[T]
	Updater[T]
	LogicalDeleter[T]
	PermanentlyDeleter[T]
	Finder[T, C]
}

// Entity constrains the pointer type of a persisted entity: it must expose
// an int64 identifier and an active flag.
type Entity[T any] interface {
	*T
	types.Identifiable[int64]
	types.SoftDeletable
}
