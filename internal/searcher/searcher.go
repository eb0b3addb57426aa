package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/hexlua/internal/storage"
	"github.com/dshills/hexlua/pkg/types"
)

const (
	// DefaultLimit is used when a request does not set one
	DefaultLimit = 10
	// MaxLimit caps the number of results per request
	MaxLimit = 100
	// DefaultCacheSize is the number of responses kept in the LRU cache
	DefaultCacheSize = 1000
	// DefaultCacheTTL is how long a cached response stays valid
	DefaultCacheTTL = time.Hour
)

// ErrEmptyQuery is returned when the query is blank
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query      string
	Limit      int
	RegistryID int64
	Filters    *storage.SearchFilters
	UseCache   bool // Whether to use the response cache
	CacheTTL   time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	registryID int64
	response   *SearchResponse
	expiresAt  time.Time
}

// Searcher runs keyword searches over indexed patterns
type Searcher struct {
	storage storage.Storage
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a new Searcher instance. A cacheSize <= 0 uses
// DefaultCacheSize.
func NewSearcher(store storage.Storage, cacheSize int) *Searcher {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage: store,
		cache:   cache,
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	textResults, err := s.storage.SearchText(ctx, req.RegistryID, req.Query, req.Limit, req.Filters)
	if err != nil {
		return nil, err
	}

	results, err := s.fetchResults(ctx, textResults)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		Duration:     time.Since(startTime),
	}

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// fetchResults loads the pattern and operators behind each hit
func (s *Searcher) fetchResults(ctx context.Context, textResults []storage.TextResult) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(textResults))
	for i, tr := range textResults {
		row, err := s.storage.GetPatternByID(ctx, tr.PatternID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pattern %d: %w", tr.PatternID, err)
		}
		ops, err := s.storage.ListOperators(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load operators for %s: %w", row.ResourceID, err)
		}

		pattern := row.ToTypesPattern(ops)
		result := types.SearchResult{
			PatternID:      row.ResourceID,
			Rank:           i + 1,
			RelevanceScore: tr.BM25Score,
			Pattern:        &pattern,
		}
		if len(ops) > 0 {
			result.Signature = &types.Signature{
				Params:  ops[0].LuaParams,
				Returns: ops[0].LuaReturns,
			}
		}
		if err := result.Validate(); err != nil {
			return nil, fmt.Errorf("invalid search result %s: %w", row.ResourceID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	return nil
}

// checkCache looks up a cached response, returning nil on a miss
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	// Copy while holding the read lock so the entry cannot change underneath
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves a copy of response
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	hash := computeQueryHash(req)
	entry := &cacheEntry{
		registryID: req.RegistryID,
		response:   copySearchResponse(response),
		expiresAt:  time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalResults: src.TotalResults,
		Duration:     src.Duration,
		CacheHit:     src.CacheHit,
		Results:      make([]types.SearchResult, len(src.Results)),
	}

	for i, result := range src.Results {
		dst.Results[i] = types.SearchResult{
			PatternID:      result.PatternID,
			Rank:           result.Rank,
			RelevanceScore: result.RelevanceScore,
		}
		if result.Pattern != nil {
			dst.Results[i].Pattern = copyPattern(result.Pattern)
		}
		if result.Signature != nil {
			dst.Results[i].Signature = &types.Signature{
				Params:  cloneStrings(result.Signature.Params),
				Returns: cloneStrings(result.Signature.Returns),
			}
		}
	}

	return dst
}

func copyPattern(p *types.Pattern) *types.Pattern {
	out := *p
	out.Operators = make([]types.Operator, len(p.Operators))
	for i, op := range p.Operators {
		out.Operators[i] = op
		if op.Inputs != nil {
			in := *op.Inputs
			out.Operators[i].Inputs = &in
		}
		if op.Outputs != nil {
			o := *op.Outputs
			out.Operators[i].Outputs = &o
		}
	}
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d|%d", req.RegistryID, req.Limit))

	if req.Filters != nil {
		mods := append([]string(nil), req.Filters.ModIDs...)
		sort.Strings(mods)
		namespaces := append([]string(nil), req.Filters.Namespaces...)
		sort.Strings(namespaces)

		data.WriteString("|filters:")
		data.WriteString(strings.Join(mods, ","))
		data.WriteString("|")
		data.WriteString(strings.Join(namespaces, ","))
		data.WriteString("|")
		data.WriteString(fmt.Sprintf("%.2f", req.Filters.MinRelevance))
	}

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops the cached responses of one registry after it is
// reindexed. Entries for other registries stay.
func (s *Searcher) InvalidateCache(registryID int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for _, key := range s.cache.Keys() {
		if entry, ok := s.cache.Peek(key); ok && entry.registryID == registryID {
			s.cache.Remove(key)
		}
	}
}
