// Package database provides connection management for MySQL, PostgreSQL and
// SQLite on top of Bun: YAML and environment configuration, per-call
// connection acquisition, health checks, query hooks, migrations for
// registered models, SQL seed files, and driver error classification.
package database
