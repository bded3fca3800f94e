// Package store persists the final account state of pipeline runs in SQL.
//
// Two backends share one Store type:
//   - SQLite (mattn/go-sqlite3), opened with Open(path)
//   - PostgreSQL (lib/pq), opened with OpenPostgres(ctx, dsn)
//
// # Tables
//
//   - runs: one row per run that reached emission, keyed by run id
//   - account_snapshots: one row per (run, client)
//
// A snapshot is written in a single transaction: a run is either fully
// stored or absent. Amounts are stored with exactly four fractional digits.
// The pipeline only writes; Accounts and Runs exist for exports and tests.
//
// # SQLite configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
