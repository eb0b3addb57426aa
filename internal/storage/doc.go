// Package storage provides SQLite-based persistence for indexed pattern
// registries.
//
// The storage layer manages:
//   - Registry metadata (path, content hash, index timings)
//   - Patterns and the operators that implement them
//   - Resolved Lua signatures for each operator
//   - Type tokens the resolver could not map
//   - Full-text search indexes
//
// # Database Schema
//
// Tables:
//   - registries: One row per indexed registry.json
//   - patterns: Pattern metadata keyed by (registry, resource ID)
//   - patterns_fts: FTS5 index over pattern IDs, names and descriptions
//   - operators: Operators per pattern with raw and resolved types
//   - unresolved_types: Unknown tokens from the last index run
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.hexlua/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	reg, err := store.GetRegistry(ctx, "/path/to/registry.json")
//
// # Transactions
//
// Use transactions for atomic operations:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertPattern(ctx, pattern)
//	_ = tx.UpsertOperator(ctx, op)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Full-Text Search
//
// Query using BM25 ranking:
//
//	results, err := store.SearchText(ctx, reg.ID, "vector add", 10, &storage.SearchFilters{
//	    ModIDs: []string{"hexcasting"},
//	})
//	for _, result := range results {
//	    fmt.Printf("Pattern %d: score %.3f\n", result.PatternID, result.BM25Score)
//	}
//
// The FTS5 index is kept current by triggers on the patterns table.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires a C compiler and the driver's sqlite_fts5 tag
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo sqlite_fts5" ./...
package storage
