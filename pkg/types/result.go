package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	PatternID string // Namespaced pattern ID
	Rank      int    // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Normalized BM25 score

	// Metadata
	Pattern   *Pattern
	Signature *Signature // Nullable - resolved Lua types of the first operator
}

// Signature is the resolved LuaLS view of an operator
type Signature struct {
	Params  []string
	Returns []string
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.PatternID == "" {
		return ErrInvalidPatternID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Pattern == nil {
		return ErrMissingPattern
	}

	return nil
}
