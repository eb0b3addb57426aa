package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/hexlua/internal/registry"
	"github.com/dshills/hexlua/internal/storage"
	"github.com/dshills/hexlua/internal/typeexpr"
	"github.com/dshills/hexlua/pkg/types"
)

// DefaultBatchSize is the number of patterns committed per transaction
const DefaultBatchSize = 50

// ErrIndexingInProgress is returned when another index run holds the lock
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Indexer coordinates the indexing pipeline: load -> resolve -> store
type Indexer struct {
	storage storage.Storage
	tables  *typeexpr.Tables
	logger  *log.Logger
	lock    IndexLock
}

// Config contains configuration for the indexer
type Config struct {
	Workers   int  // Number of concurrent resolvers (default: runtime.NumCPU())
	BatchSize int  // Number of patterns to commit per transaction (default: 50)
	Force     bool // Re-index even when the registry hash is unchanged
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	PatternsIndexed  int
	PatternsSkipped  int
	PatternsFailed   int
	PatternsRemoved  int
	OperatorsIndexed int
	UnresolvedTypes  []string
	Duration         time.Duration
	ErrorMessages    []string
}

// resolvedPattern is a validated pattern with the Lua signature of each
// operator, ready to be stored
type resolvedPattern struct {
	pattern types.Pattern
	params  [][]string
	returns [][]string
}

// New creates a new Indexer. A nil tables uses the default type tables and
// a nil logger uses log.Default().
func New(store storage.Storage, tables *typeexpr.Tables, logger *log.Logger) *Indexer {
	if tables == nil {
		tables = typeexpr.DefaultTables()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Indexer{
		storage: store,
		tables:  tables,
		logger:  logger,
	}
}

// IndexRegistry indexes the registry.json at path
func (idx *Indexer) IndexRegistry(ctx context.Context, path string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config = withDefaults(config)
	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registry path: %w", err)
	}

	hash, err := computeFileHash(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", registry.ErrRegistryNotFound, absPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash registry: %w", err)
	}

	reg, err := idx.getOrCreateRegistry(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create registry: %w", err)
	}

	if !config.Force && !reg.LastIndexedAt.IsZero() && reg.ContentHash == hash {
		idx.logger.Info("registry unchanged, skipping", "path", absPath)
		stats.PatternsSkipped = reg.TotalPatterns
		stats.UnresolvedTypes, err = idx.storage.ListUnresolved(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list unresolved types: %w", err)
		}
		stats.Duration = time.Since(startTime)
		return stats, nil
	}

	data, err := registry.Load(absPath)
	if err != nil {
		return nil, err
	}

	tracker := typeexpr.NewTracker(idx.logger)
	resolved, err := idx.resolvePatterns(ctx, data, tracker, config, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patterns: %w", err)
	}

	if err := idx.storePatterns(ctx, reg, resolved, config, stats); err != nil {
		return nil, fmt.Errorf("failed to store patterns: %w", err)
	}

	stats.UnresolvedTypes = tracker.Reported()
	stats.Duration = time.Since(startTime)

	reg.ContentHash = hash
	reg.IndexDuration = stats.Duration
	if err := idx.finish(ctx, reg, resolved, stats); err != nil {
		return nil, fmt.Errorf("failed to update registry: %w", err)
	}

	idx.logger.Info("indexed registry",
		"path", absPath,
		"patterns", stats.PatternsIndexed,
		"operators", stats.OperatorsIndexed,
		"failed", stats.PatternsFailed,
		"unresolved", len(stats.UnresolvedTypes),
		"duration", stats.Duration)
	return stats, nil
}

func withDefaults(config *Config) *Config {
	out := Config{}
	if config != nil {
		out = *config
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	return &out
}

// getOrCreateRegistry retrieves an existing registry row or creates a new one
func (idx *Indexer) getOrCreateRegistry(ctx context.Context, path string) (*storage.Registry, error) {
	reg, err := idx.storage.GetRegistry(ctx, path)
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	reg = &storage.Registry{
		Path:         path,
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if err := idx.storage.CreateRegistry(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// resolvePatterns validates every pattern and resolves its operator types
// concurrently. Invalid patterns are recorded in stats and left out.
func (idx *Indexer) resolvePatterns(ctx context.Context, data *types.Registry, tracker *typeexpr.Tracker,
	config *Config, stats *Statistics) ([]*resolvedPattern, error) {

	resolver := typeexpr.New(idx.tables, tracker)
	patterns := registry.Sorted(data)
	results := make([]*resolvedPattern, len(patterns))
	failures := make([]error, len(patterns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for i := range patterns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := patterns[i]
			if err := p.Validate(); err != nil {
				failures[i] = err
				return nil
			}
			rp := &resolvedPattern{
				pattern: p,
				params:  make([][]string, len(p.Operators)),
				returns: make([][]string, len(p.Operators)),
			}
			for j := range p.Operators {
				rp.params[j] = resolver.ResolveList(p.Operators[j].Inputs)
				rp.returns[j] = resolver.ResolveList(p.Operators[j].Outputs)
			}
			results[i] = rp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := make([]*resolvedPattern, 0, len(patterns))
	for i, rp := range results {
		if failures[i] != nil {
			stats.PatternsFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", patterns[i].ID, failures[i]))
			continue
		}
		resolved = append(resolved, rp)
	}
	return resolved, nil
}

// storePatterns writes resolved patterns in batched transactions
func (idx *Indexer) storePatterns(ctx context.Context, reg *storage.Registry, resolved []*resolvedPattern,
	config *Config, stats *Statistics) error {

	for i := 0; i < len(resolved); i += config.BatchSize {
		end := i + config.BatchSize
		if end > len(resolved) {
			end = len(resolved)
		}
		if err := idx.storeBatch(ctx, reg, resolved[i:end], stats); err != nil {
			return err
		}
	}
	return nil
}

// storeBatch stores a batch of patterns within a transaction
func (idx *Indexer) storeBatch(ctx context.Context, reg *storage.Registry, batch []*resolvedPattern, stats *Statistics) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	operators := 0
	for _, rp := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := storePattern(ctx, tx, reg.ID, rp)
		if err != nil {
			return fmt.Errorf("%s: %w", rp.pattern.ID, err)
		}
		operators += n
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	stats.PatternsIndexed += len(batch)
	stats.OperatorsIndexed += operators
	return nil
}

// storePattern upserts one pattern and replaces its operators
func storePattern(ctx context.Context, store storage.Storage, registryID int64, rp *resolvedPattern) (int, error) {
	row := storage.FromTypesPattern(&rp.pattern, registryID)
	if err := store.UpsertPattern(ctx, row); err != nil {
		return 0, err
	}

	// Drop operators a previous version of the registry may have had
	if err := store.DeleteOperatorsByPattern(ctx, row.ID); err != nil {
		return 0, fmt.Errorf("failed to delete old operators: %w", err)
	}

	for j := range rp.pattern.Operators {
		op := storage.FromTypesOperator(&rp.pattern.Operators[j], row.ID, j, rp.params[j], rp.returns[j])
		if err := store.UpsertOperator(ctx, op); err != nil {
			return 0, err
		}
	}
	return len(rp.pattern.Operators), nil
}

// finish removes patterns that are no longer in the registry, replaces the
// unresolved type list and updates the registry row, all in one transaction
func (idx *Indexer) finish(ctx context.Context, reg *storage.Registry, resolved []*resolvedPattern, stats *Statistics) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := make(map[string]bool, len(resolved))
	for _, rp := range resolved {
		current[rp.pattern.ID] = true
	}

	stored, err := tx.ListPatterns(ctx, reg.ID)
	if err != nil {
		return err
	}
	total := 0
	for _, p := range stored {
		if current[p.ResourceID] {
			total++
			continue
		}
		if err := tx.DeletePattern(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to delete stale pattern %s: %w", p.ResourceID, err)
		}
		stats.PatternsRemoved++
	}

	if err := tx.ClearUnresolved(ctx, reg.ID); err != nil {
		return err
	}
	if err := tx.RecordUnresolved(ctx, reg.ID, stats.UnresolvedTypes); err != nil {
		return err
	}

	reg.TotalPatterns = total
	reg.TotalOperators = stats.OperatorsIndexed
	reg.IndexVersion = storage.CurrentSchemaVersion
	reg.LastIndexedAt = time.Now()
	if err := tx.UpdateRegistry(ctx, reg); err != nil {
		return err
	}

	return tx.Commit()
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))
	return result, nil
}

// Lock exposes the run lock so callers can tell whether a run is active
func (idx *Indexer) Lock() *IndexLock {
	return &idx.lock
}
