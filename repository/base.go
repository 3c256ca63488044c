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
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/clientele/types"
	"github.com/uptrace/bun"
)

// Options configures the generic repository for one entity table.
type Options struct {
	// PageSize is the number of rows per SearchBy page.
	PageSize int
	// OrderBy is the display column pages are sorted by, ascending.
	OrderBy string
	// IDColumn is the primary key column.
	IDColumn string
	// ActiveColumn is the soft-delete flag column.
	ActiveColumn string
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = types.DefaultPageSize
	}
	if o.IDColumn == "" {
		o.IDColumn = "id"
	}
	if o.ActiveColumn == "" {
		o.ActiveColumn = "active"
	}
	if o.OrderBy == "" {
		o.OrderBy = o.IDColumn
	}
	return o
}

type baseRepositoryImpl[T any, P Entity[T], C types.Criteria] struct {
	provider ConnectionProvider
	opts     Options
	checker  Checker[T]
}

// NewRepository returns a Repository for entity T backed by provider. A nil
// checker accepts every item.
func NewRepository[T any, P Entity[T], C types.Criteria](provider ConnectionProvider, opts Options, checker Checker[T]) Repository[T, C] {
	if checker == nil {
		checker = AcceptAll[T]{}
	}
	return &baseRepositoryImpl[T, P, C]{
		provider: provider,
		opts:     opts.withDefaults(),
		checker:  checker,
	}
}

func (r *baseRepositoryImpl[T, P, C]) withConn(ctx context.Context, fn func(conn bun.Conn) error) error {
	conn, err := r.provider.Acquire(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

func (r *baseRepositoryImpl[T, P, C]) idColumn() bun.Ident { return bun.Ident(r.opts.IDColumn) }

func (r *baseRepositoryImpl[T, P, C]) Add(ctx context.Context, item *T) error {
	if err := r.checker.ItemIsValid(ctx, item); err != nil {
		return &ValidationError{Err: err}
	}
	return r.withConn(ctx, func(conn bun.Conn) error {
		if _, err := conn.NewInsert().Model(item).Exec(ctx); err != nil {
			return &StorageError{Op: "add", Err: err}
		}
		return nil
	})
}

func (r *baseRepositoryImpl[T, P, C]) Update(ctx context.Context, item *T) error {
	id := P(item).Identifier()
	if id == nil {
		return &MissingIdentifierError{Op: "update"}
	}
	return r.withConn(ctx, func(conn bun.Conn) error {
		_, err := conn.NewUpdate().
			Model(item).
			ExcludeColumn(r.opts.IDColumn).
			Where("? = ?", r.idColumn(), *id).
			Exec(ctx)
		if err != nil {
			return &StorageError{Op: "update", Err: err}
		}
		return nil
	})
}

func (r *baseRepositoryImpl[T, P, C]) LogicallyDelete(ctx context.Context, item *T) error {
	id := P(item).Identifier()
	if id == nil {
		return &MissingIdentifierError{Op: "logically delete"}
	}
	err := r.withConn(ctx, func(conn bun.Conn) error {
		_, err := conn.NewUpdate().
			Model((*T)(nil)).
			Set("? = ?", bun.Ident(r.opts.ActiveColumn), false).
			Where("? = ?", r.idColumn(), *id).
			Exec(ctx)
		if err != nil {
			return &StorageError{Op: "logically delete", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	P(item).SetActive(false)
	return nil
}

func (r *baseRepositoryImpl[T, P, C]) PermanentlyDelete(ctx context.Context, item *T) error {
	id := P(item).Identifier()
	if id == nil {
		return &MissingIdentifierError{Op: "permanently delete"}
	}
	return r.withConn(ctx, func(conn bun.Conn) error {
		_, err := conn.NewDelete().
			Model((*T)(nil)).
			Where("? = ?", r.idColumn(), *id).
			Exec(ctx)
		if err != nil {
			return &StorageError{Op: "permanently delete", Err: err}
		}
		return nil
	})
}

func (r *baseRepositoryImpl[T, P, C]) SearchByID(ctx context.Context, id int64) (*T, error) {
	var found *T
	err := r.withConn(ctx, func(conn bun.Conn) error {
		entity := new(T)
		err := conn.NewSelect().
			Model(entity).
			Where("? = ?", r.idColumn(), id).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return &StorageError{Op: "search by id", Err: err}
		}
		found = entity
		return nil
	})
	return found, err
}

func (r *baseRepositoryImpl[T, P, C]) SearchBy(ctx context.Context, criteria C, page int) (*types.SearchResult[C], error) {
	req := types.NewPageRequest(page, r.opts.PageSize, types.ActiveFilters(criteria), []string{
		r.opts.OrderBy + " ASC",
		r.opts.IDColumn + " ASC",
	})
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	var result *types.SearchResult[C]
	err := r.withConn(ctx, func(conn bun.Conn) error {
		total, err := applyFilters(conn.NewSelect().Model((*T)(nil)), req.GetFilters()).Count(ctx)
		if err != nil {
			return &StorageError{Op: "count", Err: err}
		}

		rows := make([]T, 0, req.GetPageSize())
		if !req.Beyond(total) {
			err = applyFilters(conn.NewSelect().Model(&rows), req.GetFilters()).
				Order(req.GetOrders()...).
				Offset(req.GetOffset()).
				Limit(req.GetPageSize()).
				Scan(ctx)
			if err != nil {
				return &StorageError{Op: "search", Err: err}
			}
		}
		if rows == nil {
			rows = []T{}
		}

		payload, err := types.NewPayload(rows)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		result = types.NewSearchResult(req.GetPage(), req.TotalPages(total), criteria, payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyFilters conjoins one equality predicate per filter.
func applyFilters(query *bun.SelectQuery, filters []types.Filter) *bun.SelectQuery {
	for _, f := range filters {
		query = query.Where("? = ?", bun.Ident(f.Column), f.Value)
	}
	return query
}
