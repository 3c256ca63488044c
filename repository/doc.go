// Package repository provides a generic repository built on Bun: insert,
// full-row update, logical and permanent delete by identifier, lookup by
// identifier, and paginated equality search driven by per-entity criteria.
// Every operation acquires its own connection from a ConnectionProvider.
package repository
