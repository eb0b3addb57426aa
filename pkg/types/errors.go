package types

import "errors"

// Domain errors for type validation
var (
	// Pattern errors
	ErrInvalidDirection = errors.New("invalid pattern direction")
	ErrInvalidSignature = errors.New("pattern signature may only contain a, q, w, e, d")
	ErrMissingModID     = errors.New("operator mod ID is required")

	// Search result errors
	ErrInvalidPatternID      = errors.New("invalid pattern ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrMissingPattern        = errors.New("pattern is required")
)
