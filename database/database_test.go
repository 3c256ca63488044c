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
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type note struct {
	bun.BaseModel `bun:"table:notes"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Body string `bun:"body,notnull,unique"`
}

func init() {
	RegisteredModel(NewModelAdapter((*note)(nil), 1))
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := DefaultConfig()
	cfg.ConnectionConfig.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.MaxIdleConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.ConnectionConfig.EnableMetrics = true
	cfg.DataMigrateConfig.EnableMigrateOnStartup = true
	return cfg
}

func initTestDB(t *testing.T, cfg *Config) *bun.DB {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_TYPE", "")
	db, err := InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })
	return db
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	require.Equal(t, "clientele", cfg.ConnectionConfig.DBName)
	require.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection:
  type: postgres
  host: db.local
  port: 5432
  dbname: clients
  slow_query_time: 250ms
migrate:
  enable_migrate_on_startup: false
init:
  environment: dev
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.ConnectionConfig.Type)
	require.Equal(t, "db.local", cfg.ConnectionConfig.Host)
	require.Equal(t, 5432, cfg.ConnectionConfig.Port)
	require.Equal(t, 250*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
	require.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns, "unset keys keep defaults")
	require.False(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	require.Equal(t, "dev", cfg.DataInitConfig.Environment)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/d?sslmode=disable")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")

	cfg := DefaultConnectionConfig()
	OverrideFromEnv(cfg)
	require.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DSN)
	require.Equal(t, "postgres", cfg.Type)
	require.Equal(t, 6543, cfg.Port)
	require.Equal(t, 7, cfg.MaxOpenConns)
	require.True(t, cfg.EnableQueryLog)
	require.NoError(t, ValidateConnectionConfig(cfg))
}

func TestValidateConnectionConfig(t *testing.T) {
	require.Error(t, ValidateConnectionConfig(&ConnectionConfig{Type: "oracle"}))
	require.Error(t, ValidateConnectionConfig(&ConnectionConfig{Type: "mysql", DBName: "x"}))
	require.Error(t, ValidateConnectionConfig(&ConnectionConfig{Type: "sqlite"}))
	require.NoError(t, ValidateConnectionConfig(&ConnectionConfig{Type: "sqlite", DBName: "x"}))
	require.NoError(t, ValidateConnectionConfig(&ConnectionConfig{Type: "mysql", DSN: "u:p@tcp(h)/d"}))
}

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		err  error
		is   bool
		kind SQLError
	}{
		{&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{&mysql.MySQLError{Number: 1146}, true, NoTableErr},
		{&mysql.MySQLError{Number: 9999}, true, UnknownErr},
		{&pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{&pq.Error{Code: "23502"}, true, NotNullViolationErr},
		{fmt.Errorf("add: %w", &pq.Error{Code: "42P01"}), true, NoTableErr},
		{errors.New("constraint failed: UNIQUE constraint failed: clients.username (2067)"), true, DuplicateKeyErr},
		{errors.New("NOT NULL constraint failed: clients.birth_date"), true, NotNullViolationErr},
		{errors.New("SQL logic error: no such table: clients (1)"), true, NoTableErr},
		{errors.New("context canceled"), false, UnknownErr},
		{nil, false, UnknownErr},
	}
	for _, tc := range cases {
		is, kind := IsSqlError(tc.err)
		require.Equal(t, tc.is, is, "%v", tc.err)
		require.Equal(t, tc.kind, kind, "%v", tc.err)
	}
	require.True(t, IsDuplicateKey(&pq.Error{Code: "23505"}))
	require.False(t, IsDuplicateKey(errors.New("boom")))
}

func TestModelRegistry(t *testing.T) {
	r := newModelRegistry()
	type a struct{}
	type b struct{}
	r.Register(NewModelAdapter((*b)(nil), 5))
	r.Register(NewModelAdapter((*a)(nil), 10))
	r.Register(NewModelAdapter((*a)(nil), 1))

	models := r.Models()
	require.Len(t, models, 2)
	require.IsType(t, (*a)(nil), models[0].Model())
	require.Equal(t, 1, models[0].Priority())
	require.IsType(t, (*b)(nil), models[1].Model())
}

func TestAcquireBeforeInit(t *testing.T) {
	require.NoError(t, CloseDB())
	_, err := Acquire(context.Background())
	require.Error(t, err)
	require.Nil(t, GetDB())
	require.False(t, GetHealthStatus(context.Background()).Healthy)
	require.Error(t, RunMigrations(context.Background()))
}

func TestInitDBMigratesAndAcquires(t *testing.T) {
	initTestDB(t, testConfig(t))
	ctx := context.Background()

	conn, err := Acquire(ctx)
	require.NoError(t, err)
	_, err = conn.NewInsert().Model(&note{Body: "hello"}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	var got note
	require.NoError(t, GetDB().NewSelect().Model(&got).Where("body = ?", "hello").Scan(ctx))
	require.NotZero(t, got.ID)

	applied, err := NewMigrationManager(GetDB(), nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.Equal(t, "001", applied[0].Version)

	// A second run is a no-op.
	require.NoError(t, RunMigrations(ctx))

	status := GetHealthStatus(ctx)
	require.True(t, status.Healthy)
	require.Equal(t, 1, GetDatabaseStats().MaxOpenConns)
}

func writeSQL(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSeedFromSQLFiles(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "002_second.sql"), "INSERT INTO notes (body) VALUES ('second');\n")
	writeSQL(t, filepath.Join(root, "common", "001_first.sql"), "-- first file\nINSERT INTO notes (body)\nVALUES ('first');\nINSERT INTO notes (body) VALUES ('first-b');\n")
	writeSQL(t, filepath.Join(root, "environments", "test", "001_env.sql"), "INSERT INTO notes (body) VALUES ('env');")
	writeSQL(t, filepath.Join(root, "environments", "prod", "001_prod.sql"), "INSERT INTO notes (body) VALUES ('prod');")

	db := initTestDB(t, testConfig(t))
	ctx := context.Background()

	files, err := NewSQLInitManager(db, "test").SetSQLRootPath(root).GetSQLFiles()
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"001_first.sql", "002_second.sql", "001_env.sql"}, names)

	require.NoError(t, InitDataWithSQL(ctx, "test", root))

	var bodies []string
	require.NoError(t, db.NewSelect().Model((*note)(nil)).Column("body").Order("id ASC").Scan(ctx, &bodies))
	require.Equal(t, []string{"first", "first-b", "second", "env"}, bodies)

	// A failing file rolls back its own statements.
	dupRoot := t.TempDir()
	writeSQL(t, filepath.Join(dupRoot, "common", "001_dup.sql"), "INSERT INTO notes (body) VALUES ('fresh');\nINSERT INTO notes (body) VALUES ('env');\n")
	err = NewSQLInitManager(db, "test").SetSQLRootPath(dupRoot).ExecuteInitialization(ctx)
	require.Error(t, err)
	exists, err := db.NewSelect().Model((*note)(nil)).Where("body = ?", "fresh").Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements("-- comment\nSELECT 1;\n\nINSERT INTO t\n  VALUES (1);\nSELECT 2")
	require.Equal(t, []string{"SELECT 1;", "INSERT INTO t VALUES (1);", "SELECT 2"}, stmts)
	require.Equal(t, 3, parseFileOrder("003_x.sql"))
	require.Equal(t, 999, parseFileOrder("x.sql"))
}

func TestRegisterMetricsTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	require.NoError(t, RegisterMetrics(reg))
}

func selectSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, queryDuration.WithLabelValues("SELECT").(prometheus.Histogram).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsHookRecordsQueries(t *testing.T) {
	db := initTestDB(t, testConfig(t))
	ctx := context.Background()

	failures := queryErrors.WithLabelValues("SELECT", NoTableErr.String())
	samples, errs := selectSamples(t), testutil.ToFloat64(failures)

	_, err := db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	require.Equal(t, samples+1, selectSamples(t))
	require.Equal(t, errs, testutil.ToFloat64(failures))
	require.GreaterOrEqual(t, testutil.CollectAndCount(queryDuration, "clientele_db_query_duration_seconds"), 1)

	_, err = db.ExecContext(ctx, "SELECT * FROM missing_metrics_table")
	require.Error(t, err)
	require.Equal(t, samples+2, selectSamples(t))
	require.Equal(t, errs+1, testutil.ToFloat64(failures))
}

func TestMetricsHookIgnoresNoRows(t *testing.T) {
	db := initTestDB(t, testConfig(t))
	ctx := context.Background()

	before := testutil.CollectAndCount(queryErrors)
	var got note
	err := db.NewSelect().Model(&got).Where("body = ?", "absent").Scan(ctx)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.Equal(t, before, testutil.CollectAndCount(queryErrors))
}

func TestDefaultLoggerFields(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	NewDefaultLogger(l).Warn("query failed", "operation", "INSERT", "error", errors.New("boom"), "dangling")

	out := buf.String()
	require.Contains(t, out, `"operation":"INSERT"`)
	require.Contains(t, out, `"error":"boom"`)
	require.Contains(t, out, `"msg":"query failed"`)
	require.NotContains(t, out, "dangling")
}
