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
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/clientele/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID     *int64 `bun:"id,pk,autoincrement" json:"id"`
	Active bool   `bun:"active,notnull" json:"active"`
	Name   string `bun:"name,notnull,unique" json:"name"`
	Color  string `bun:"color,notnull" json:"color"`
}

func (w *widget) Identifier() *int64 { return w.ID }
func (w *widget) IsActive() bool { return w.Active }
func (w *widget) SetActive(on bool) { w.Active = on }

func newWidget(name, color string) *widget {
	return &widget{Active: true, Name: name, Color: color}
}

type widgetCriteria struct {
	Active *bool   `json:"active,omitempty"`
	Name   *string `json:"name,omitempty"`
	Color  *string `json:"color,omitempty"`
}

func (c widgetCriteria) Filters() []types.Filter {
	return []types.Filter{
		types.Eq("active", c.Active),
		types.Eq("name", c.Name),
		types.Eq("color", c.Color),
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*widget)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)
	return db
}

// countingProvider records how many connections were requested.
type countingProvider struct {
	next  ConnectionProvider
	calls atomic.Int32
}

func (p *countingProvider) Acquire(ctx context.Context) (bun.Conn, error) {
	p.calls.Add(1)
	return p.next.Acquire(ctx)
}

func newWidgetRepo(t *testing.T, pageSize int) (Repository[widget, widgetCriteria], *countingProvider) {
	t.Helper()
	provider := &countingProvider{next: FromDB(newTestDB(t))}
	repo := NewRepository[widget, *widget, widgetCriteria](provider, Options{
		PageSize: pageSize,
		OrderBy:  "name",
	}, nil)
	return repo, provider
}

func ptr[V any](v V) *V { return &v }

func TestMissingIdentifierSkipsStore(t *testing.T) {
	repo, provider := newWidgetRepo(t, 15)
	ctx := context.Background()
	item := newWidget("orphan", "red")

	var missing *MissingIdentifierError

	require.ErrorAs(t, repo.Update(ctx, item), &missing)
	require.Equal(t, "update", missing.Op)
	require.ErrorAs(t, repo.LogicallyDelete(ctx, item), &missing)
	require.Equal(t, "logically delete", missing.Op)
	require.ErrorAs(t, repo.PermanentlyDelete(ctx, item), &missing)
	require.Equal(t, "permanently delete", missing.Op)

	require.Zero(t, provider.calls.Load())
	require.True(t, item.Active)
}

func TestAddThenSearchByID(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()

	item := newWidget("gear", "blue")
	require.NoError(t, repo.Add(ctx, item))
	require.NotNil(t, item.ID)

	got, err := repo.SearchByID(ctx, *item.ID)
	require.NoError(t, err)
	require.Equal(t, item, got)
}

func TestSearchByIDNotFound(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)

	got, err := repo.SearchByID(context.Background(), 404)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUpdateReplacesRow(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()

	item := newWidget("bolt", "grey")
	require.NoError(t, repo.Add(ctx, item))
	other := newWidget("nut", "grey")
	require.NoError(t, repo.Add(ctx, other))

	item.Name = "bolt-m8"
	item.Color = "black"
	item.Active = false
	require.NoError(t, repo.Update(ctx, item))

	got, err := repo.SearchByID(ctx, *item.ID)
	require.NoError(t, err)
	require.Equal(t, item, got)

	untouched, err := repo.SearchByID(ctx, *other.ID)
	require.NoError(t, err)
	require.Equal(t, other, untouched)
}

func TestSoftDeleteThenPermanentDelete(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()

	item := newWidget("spring", "silver")
	require.NoError(t, repo.Add(ctx, item))

	require.NoError(t, repo.LogicallyDelete(ctx, item))
	require.False(t, item.Active)

	got, err := repo.SearchByID(ctx, *item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.False(t, got.Active)
	require.Equal(t, "spring", got.Name)
	require.Equal(t, "silver", got.Color)

	require.NoError(t, repo.PermanentlyDelete(ctx, item))
	got, err = repo.SearchByID(ctx, *item.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLogicalDeleteOnlyTouchesActive(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()

	item := newWidget("washer", "gold")
	require.NoError(t, repo.Add(ctx, item))

	// Local edits that were never saved must not leak into the row.
	stale := *item
	stale.Color = "unsaved"
	require.NoError(t, repo.LogicallyDelete(ctx, &stale))

	got, err := repo.SearchByID(ctx, *item.ID)
	require.NoError(t, err)
	require.Equal(t, "gold", got.Color)
	require.False(t, got.Active)
}

func seedWidgets(t *testing.T, repo Repository[widget, widgetCriteria], n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		color := "red"
		if i%2 == 1 {
			color = "blue"
		}
		require.NoError(t, repo.Add(context.Background(), newWidget(fmt.Sprintf("w%03d", i), color)))
	}
}

func decodeWidgets(t *testing.T, res *types.SearchResult[widgetCriteria]) []widget {
	t.Helper()
	var rows []widget
	require.NoError(t, res.Result.Decode(&rows))
	return rows
}

func TestSearchByPagination(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()
	seedWidgets(t, repo, 32)

	seen := map[string]bool{}
	var ordered []string
	for page, want := range map[int]int{1: 15, 2: 15, 3: 2} {
		res, err := repo.SearchBy(ctx, widgetCriteria{}, page)
		require.NoError(t, err)
		require.Equal(t, 3, res.TotalPages)
		require.Equal(t, page, res.Page)

		rows := decodeWidgets(t, res)
		require.Len(t, rows, want, "page %d", page)
		for _, w := range rows {
			require.False(t, seen[w.Name], "duplicate %s", w.Name)
			seen[w.Name] = true
		}
		if page == 3 {
			ordered = []string{rows[0].Name, rows[1].Name}
		}
	}
	require.Len(t, seen, 32)
	require.Equal(t, []string{"w030", "w031"}, ordered)
}

func TestSearchByPagesAreOrdered(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()
	seedWidgets(t, repo, 20)

	var names []string
	for page := 1; page <= 2; page++ {
		res, err := repo.SearchBy(ctx, widgetCriteria{}, page)
		require.NoError(t, err)
		for _, w := range decodeWidgets(t, res) {
			names = append(names, w.Name)
		}
	}
	require.Len(t, names, 20)
	require.IsIncreasing(t, names)
}

func TestSearchByFilters(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()
	seedWidgets(t, repo, 10)

	res, err := repo.SearchBy(ctx, widgetCriteria{Color: ptr("blue")}, 1)
	require.NoError(t, err)
	rows := decodeWidgets(t, res)
	require.Len(t, rows, 5)
	for _, w := range rows {
		require.Equal(t, "blue", w.Color)
	}
	require.Equal(t, 1, res.TotalPages)
	require.Equal(t, "blue", *res.Criteria.Color)

	res, err = repo.SearchBy(ctx, widgetCriteria{Color: ptr("blue"), Name: ptr("w003")}, 1)
	require.NoError(t, err)
	rows = decodeWidgets(t, res)
	require.Len(t, rows, 1)
	require.Equal(t, "w003", rows[0].Name)

	res, err = repo.SearchBy(ctx, widgetCriteria{Color: ptr("red"), Name: ptr("w003")}, 1)
	require.NoError(t, err)
	require.Empty(t, decodeWidgets(t, res))
	require.Equal(t, 0, res.TotalPages)
}

func TestSearchByActiveFilter(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()
	seedWidgets(t, repo, 4)

	first, err := repo.SearchBy(ctx, widgetCriteria{Name: ptr("w000")}, 1)
	require.NoError(t, err)
	rows := decodeWidgets(t, first)
	require.Len(t, rows, 1)
	require.NoError(t, repo.LogicallyDelete(ctx, &rows[0]))

	res, err := repo.SearchBy(ctx, widgetCriteria{Active: ptr(true)}, 1)
	require.NoError(t, err)
	require.Len(t, decodeWidgets(t, res), 3)

	res, err = repo.SearchBy(ctx, widgetCriteria{Active: ptr(false)}, 1)
	require.NoError(t, err)
	inactive := decodeWidgets(t, res)
	require.Len(t, inactive, 1)
	require.Equal(t, "w000", inactive[0].Name)
}

func TestSearchByOutOfRangePage(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()
	seedWidgets(t, repo, 16)

	criteria := widgetCriteria{Color: ptr("red")}
	res, err := repo.SearchBy(ctx, criteria, 9)
	require.NoError(t, err)
	require.Equal(t, 9, res.Page)
	require.Equal(t, 1, res.TotalPages)
	require.Equal(t, criteria, res.Criteria)
	require.JSONEq(t, `[]`, res.Result.String())
}

func TestSearchByHugePageIsEmpty(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()
	seedWidgets(t, repo, 3)

	res, err := repo.SearchBy(ctx, widgetCriteria{}, 1<<62)
	require.NoError(t, err)
	require.Equal(t, 1<<62, res.Page)
	require.Equal(t, 1, res.TotalPages)
	require.JSONEq(t, `[]`, res.Result.String())
}

func TestSearchByEmptyTable(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)

	res, err := repo.SearchBy(context.Background(), widgetCriteria{}, 1)
	require.NoError(t, err)
	require.Equal(t, 0, res.TotalPages)
	require.JSONEq(t, `[]`, res.Result.String())
}

func TestSearchByInvalidPage(t *testing.T) {
	repo, provider := newWidgetRepo(t, 15)

	_, err := repo.SearchBy(context.Background(), widgetCriteria{}, 0)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	require.ErrorIs(t, err, types.ErrInvalidPage)
	require.Zero(t, provider.calls.Load())
}

func TestCheckerRejectsBeforeStore(t *testing.T) {
	provider := &countingProvider{next: FromDB(newTestDB(t))}
	reject := errors.New("colour not allowed")
	repo := NewRepository[widget, *widget, widgetCriteria](provider, Options{OrderBy: "name"},
		CheckerFunc[widget](func(_ context.Context, w *widget) error {
			if w.Color == "pink" {
				return reject
			}
			return nil
		}))

	err := repo.Add(context.Background(), newWidget("flamingo", "pink"))
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	require.ErrorIs(t, err, reject)
	require.Zero(t, provider.calls.Load())

	require.NoError(t, repo.Add(context.Background(), newWidget("crow", "black")))
	require.EqualValues(t, 1, provider.calls.Load())
}

func TestStorageErrorPreservesCause(t *testing.T) {
	repo, _ := newWidgetRepo(t, 15)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, newWidget("dup", "red")))
	err := repo.Add(ctx, newWidget("dup", "blue"))

	var storage *StorageError
	require.ErrorAs(t, err, &storage)
	require.Equal(t, "add", storage.Op)
	require.NotNil(t, errors.Unwrap(err))
	require.Contains(t, strings.ToLower(err.Error()), "unique")
}

func TestConnectionError(t *testing.T) {
	down := errors.New("store unreachable")
	repo := NewRepository[widget, *widget, widgetCriteria](ProviderFunc(func(context.Context) (bun.Conn, error) {
		return bun.Conn{}, down
	}), Options{OrderBy: "name"}, nil)
	ctx := context.Background()

	var connErr *ConnectionError
	require.ErrorAs(t, repo.Add(ctx, newWidget("x", "y")), &connErr)
	require.ErrorIs(t, connErr, down)

	_, err := repo.SearchByID(ctx, 1)
	require.ErrorAs(t, err, &connErr)

	_, err = repo.SearchBy(ctx, widgetCriteria{}, 1)
	require.ErrorAs(t, err, &connErr)

	item := newWidget("x", "y")
	item.ID = ptr(int64(1))
	require.ErrorAs(t, repo.LogicallyDelete(ctx, item), &connErr)
	require.True(t, item.Active)
}

func TestFromNilDB(t *testing.T) {
	_, err := FromDB(nil).Acquire(context.Background())
	require.Error(t, err)
}

func TestConnectionsAreReleased(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository[widget, *widget, widgetCriteria](FromDB(db), Options{OrderBy: "name"}, nil)
	ctx := context.Background()

	// One open connection at most: a leaked conn would block the next call.
	for i := 0; i < 5; i++ {
		item := newWidget(fmt.Sprintf("r%d", i), "red")
		require.NoError(t, repo.Add(ctx, item))
		require.Error(t, repo.Add(ctx, newWidget(item.Name, "red")))
		_, err := repo.SearchBy(ctx, widgetCriteria{}, 1)
		require.NoError(t, err)
	}
	require.Equal(t, 0, db.Stats().InUse)
}
