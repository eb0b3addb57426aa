// Package indexer loads a pattern registry, resolves every operator's type
// descriptions into LuaLS types and persists the result.
//
// # Basic Usage
//
//	idx := indexer.New(store, nil, logger)
//
//	stats, err := idx.IndexRegistry(ctx, "/path/to/registry.json", &indexer.Config{
//	    Workers:   4,
//	    BatchSize: 50,
//	})
//
//	fmt.Printf("Indexed %d patterns in %v\n", stats.PatternsIndexed, stats.Duration)
//
// # Pipeline
//
//  1. Hash: SHA-256 of the registry file. An unchanged hash skips the run
//     unless Config.Force is set.
//  2. Load: Decode registry.json.
//  3. Resolve: Validate each pattern and resolve its operators concurrently.
//     Invalid patterns are reported in Statistics.ErrorMessages.
//  4. Store: Upsert patterns and operators in batched transactions.
//  5. Finish: Delete patterns that left the registry, replace the list of
//     unresolved type tokens and update the registry row.
//
// Each run uses a fresh typeexpr.Tracker, so an unknown token is logged once
// per run and the persisted list always reflects the latest registry.
//
// # Concurrency
//
// Only one run may be active per Indexer. A second call returns
// ErrIndexingInProgress instead of blocking.
package indexer
