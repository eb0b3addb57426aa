package typeexpr

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Tracker remembers which unresolved tokens have already been reported.
// One Tracker is meant to live for a single processing run.
type Tracker struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	logger *log.Logger
}

// NewTracker creates a tracker that reports through logger.
// A nil logger falls back to log.Default().
func NewTracker(logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// ReportOnce logs token the first time it is seen and returns true.
// Later calls with the same token do nothing and return false.
func (t *Tracker) ReportOnce(token string) bool {
	t.mu.Lock()
	if _, ok := t.seen[token]; ok {
		t.mu.Unlock()
		return false
	}
	t.seen[token] = struct{}{}
	t.mu.Unlock()

	t.logger.Warn("unknown type", "token", token)
	return true
}

// Reported returns every token reported so far, sorted
func (t *Tracker) Reported() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tokens := make([]string, 0, len(t.seen))
	for token := range t.seen {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Len returns the number of distinct tokens reported
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
