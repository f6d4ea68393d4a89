// Package storage defines the pluggable key/value Store used for the auth
// token slot, the current user, preferences, drafts and search history.
//
// Three implementations are provided:
//
//   - MemoryStore: process-local, the default.
//   - SQLiteStore: a single-file database (modernc.org/sqlite) migrated with
//     goose; survives restarts and is what the CLI uses.
//   - S3Store: one object per key in an S3-compatible bucket.
//
// Keys are flat strings; Key builds the "namespace:key" form that Clear
// understands. A missing or expired key is reported as common.ErrNotFound.
package storage
