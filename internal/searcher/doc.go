// Package searcher provides keyword search over indexed patterns.
//
// Queries run against the FTS5 index maintained by the storage package and
// are ranked with BM25. Each hit is expanded into the full pattern with its
// operators and the resolved Lua signature of its first operator.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, 0)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:      "vector add",
//	    RegistryID: reg.ID,
//	    Limit:      10,
//	    Filters:    &storage.SearchFilters{ModIDs: []string{"hexcasting"}},
//	    UseCache:   true,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%d. %s (%.2f)\n", r.Rank, r.PatternID, r.RelevanceScore)
//	}
//
// # Caching
//
// Responses can be cached in an LRU keyed by a SHA-256 of the query, limit,
// registry and filters. Entries expire after SearchRequest.CacheTTL. Cached
// responses are deep-copied on the way in and out, so callers may modify
// what they get back. Call InvalidateCache after reindexing.
package searcher
