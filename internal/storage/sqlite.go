package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery is returned when a search query has no searchable terms
	ErrEmptyQuery = errors.New("empty search query")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction. The pool holds a single connection, so
// every call made through a transaction, reads included, must use the
// transaction's querier or it would wait on itself.
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Registry operations

const registryColumns = `
	id, path, content_hash, total_patterns, total_operators, index_version,
	index_duration_ms, last_indexed_at, created_at, updated_at`

// scanRegistry reads a single registry row
func scanRegistry(row interface{ Scan(...interface{}) error }) (*Registry, error) {
	var registry Registry
	var hash []byte
	var durationMS int64
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&registry.ID, &registry.Path, &hash, &registry.TotalPatterns,
		&registry.TotalOperators, &registry.IndexVersion, &durationMS,
		&lastIndexedAt, &registry.CreatedAt, &registry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(registry.ContentHash[:], hash)
	registry.IndexDuration = time.Duration(durationMS) * time.Millisecond
	if lastIndexedAt.Valid {
		registry.LastIndexedAt = lastIndexedAt.Time
	}
	return &registry, nil
}

// createRegistryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRegistryWithQuerier(ctx context.Context, q querier, registry *Registry) error {
	query := `
		INSERT INTO registries (path, content_hash, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		registry.Path, registry.ContentHash[:], registry.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	registry.ID = id
	registry.CreatedAt = now
	registry.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateRegistry(ctx context.Context, registry *Registry) error {
	return s.createRegistryWithQuerier(ctx, s.querier(), registry)
}

// getRegistryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getRegistryWithQuerier(ctx context.Context, q querier, path string) (*Registry, error) {
	query := `SELECT` + registryColumns + ` FROM registries WHERE path = ?`
	return scanRegistry(q.QueryRowContext(ctx, query, path))
}

func (s *SQLiteStorage) GetRegistry(ctx context.Context, path string) (*Registry, error) {
	return s.getRegistryWithQuerier(ctx, s.querier(), path)
}

func (s *SQLiteStorage) getRegistryByIDWithQuerier(ctx context.Context, q querier, id int64) (*Registry, error) {
	query := `SELECT` + registryColumns + ` FROM registries WHERE id = ?`
	return scanRegistry(q.QueryRowContext(ctx, query, id))
}

// updateRegistryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateRegistryWithQuerier(ctx context.Context, q querier, registry *Registry) error {
	query := `
		UPDATE registries
		SET content_hash = ?, total_patterns = ?, total_operators = ?,
		    index_version = ?, index_duration_ms = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		registry.ContentHash[:], registry.TotalPatterns, registry.TotalOperators,
		registry.IndexVersion, registry.IndexDuration.Milliseconds(),
		registry.LastIndexedAt, now, registry.ID)
	if err != nil {
		return fmt.Errorf("failed to update registry: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	registry.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateRegistry(ctx context.Context, registry *Registry) error {
	return s.updateRegistryWithQuerier(ctx, s.querier(), registry)
}

// Pattern operations

const patternColumns = `
	id, registry_id, resource_id, namespace, name, direction, signature,
	is_per_world, description, created_at, updated_at`

func scanPattern(row interface{ Scan(...interface{}) error }) (*Pattern, error) {
	var pattern Pattern
	var description sql.NullString
	err := row.Scan(
		&pattern.ID, &pattern.RegistryID, &pattern.ResourceID, &pattern.Namespace,
		&pattern.Name, &pattern.Direction, &pattern.Signature, &pattern.IsPerWorld,
		&description, &pattern.CreatedAt, &pattern.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pattern.Description = description.String
	return &pattern, nil
}

// upsertPatternWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertPatternWithQuerier(ctx context.Context, q querier, pattern *Pattern) error {
	query := `
		INSERT INTO patterns (registry_id, resource_id, namespace, name, direction, signature,
		                      is_per_world, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(registry_id, resource_id) DO UPDATE SET
			namespace = excluded.namespace,
			name = excluded.name,
			direction = excluded.direction,
			signature = excluded.signature,
			is_per_world = excluded.is_per_world,
			description = excluded.description,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		pattern.RegistryID, pattern.ResourceID, pattern.Namespace, pattern.Name,
		pattern.Direction, pattern.Signature, pattern.IsPerWorld, pattern.Description,
		now, now).Scan(&pattern.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}
	pattern.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertPattern(ctx context.Context, pattern *Pattern) error {
	return s.upsertPatternWithQuerier(ctx, s.querier(), pattern)
}

// getPatternWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getPatternWithQuerier(ctx context.Context, q querier, registryID int64, resourceID string) (*Pattern, error) {
	query := `SELECT` + patternColumns + ` FROM patterns WHERE registry_id = ? AND resource_id = ?`
	return scanPattern(q.QueryRowContext(ctx, query, registryID, resourceID))
}

func (s *SQLiteStorage) GetPattern(ctx context.Context, registryID int64, resourceID string) (*Pattern, error) {
	return s.getPatternWithQuerier(ctx, s.querier(), registryID, resourceID)
}

func (s *SQLiteStorage) getPatternByIDWithQuerier(ctx context.Context, q querier, id int64) (*Pattern, error) {
	query := `SELECT` + patternColumns + ` FROM patterns WHERE id = ?`
	return scanPattern(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) GetPatternByID(ctx context.Context, id int64) (*Pattern, error) {
	return s.getPatternByIDWithQuerier(ctx, s.querier(), id)
}

// listPatternsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listPatternsWithQuerier(ctx context.Context, q querier, registryID int64) ([]*Pattern, error) {
	query := `SELECT` + patternColumns + ` FROM patterns WHERE registry_id = ? ORDER BY resource_id`
	rows, err := q.QueryContext(ctx, query, registryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	patterns := make([]*Pattern, 0)
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return patterns, rows.Err()
}

func (s *SQLiteStorage) ListPatterns(ctx context.Context, registryID int64) ([]*Pattern, error) {
	return s.listPatternsWithQuerier(ctx, s.querier(), registryID)
}

// deletePatternWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deletePatternWithQuerier(ctx context.Context, q querier, id int64) error {
	query := `DELETE FROM patterns WHERE id = ?`
	_, err := q.ExecContext(ctx, query, id)
	return err
}

func (s *SQLiteStorage) DeletePattern(ctx context.Context, id int64) error {
	return s.deletePatternWithQuerier(ctx, s.querier(), id)
}

// Operator operations

// upsertOperatorWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertOperatorWithQuerier(ctx context.Context, q querier, op *Operator) error {
	query := `
		INSERT INTO operators (pattern_id, position, mod_id, description, inputs, outputs,
		                       lua_params, lua_returns, book_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_id, position) DO UPDATE SET
			mod_id = excluded.mod_id,
			description = excluded.description,
			inputs = excluded.inputs,
			outputs = excluded.outputs,
			lua_params = excluded.lua_params,
			lua_returns = excluded.lua_returns,
			book_url = excluded.book_url
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		op.PatternID, op.Position, op.ModID, op.Description, op.Inputs, op.Outputs,
		joinLuaList(op.LuaParams), joinLuaList(op.LuaReturns), op.BookURL, now).Scan(&op.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert operator: %w", err)
	}
	op.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertOperator(ctx context.Context, op *Operator) error {
	return s.upsertOperatorWithQuerier(ctx, s.querier(), op)
}

// listOperatorsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listOperatorsWithQuerier(ctx context.Context, q querier, patternID int64) ([]*Operator, error) {
	query := `
		SELECT id, pattern_id, position, mod_id, description, inputs, outputs,
		       lua_params, lua_returns, book_url, created_at
		FROM operators
		WHERE pattern_id = ?
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, patternID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ops := make([]*Operator, 0)
	for rows.Next() {
		var op Operator
		var description, inputs, outputs, params, returns, bookURL sql.NullString
		if err := rows.Scan(
			&op.ID, &op.PatternID, &op.Position, &op.ModID, &description,
			&inputs, &outputs, &params, &returns, &bookURL, &op.CreatedAt,
		); err != nil {
			return nil, err
		}
		op.Description = description.String
		op.BookURL = bookURL.String
		op.LuaParams = splitLuaList(params.String)
		op.LuaReturns = splitLuaList(returns.String)
		if inputs.Valid {
			op.Inputs = &inputs.String
		}
		if outputs.Valid {
			op.Outputs = &outputs.String
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

func (s *SQLiteStorage) ListOperators(ctx context.Context, patternID int64) ([]*Operator, error) {
	return s.listOperatorsWithQuerier(ctx, s.querier(), patternID)
}

// deleteOperatorsByPatternWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteOperatorsByPatternWithQuerier(ctx context.Context, q querier, patternID int64) error {
	query := `DELETE FROM operators WHERE pattern_id = ?`
	_, err := q.ExecContext(ctx, query, patternID)
	return err
}

func (s *SQLiteStorage) DeleteOperatorsByPattern(ctx context.Context, patternID int64) error {
	return s.deleteOperatorsByPatternWithQuerier(ctx, s.querier(), patternID)
}

// Search operations

func (s *SQLiteStorage) SearchText(ctx context.Context, registryID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.querier(), registryID, query, limit, filters)
}

// Unresolved type operations

// recordUnresolvedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) recordUnresolvedWithQuerier(ctx context.Context, q querier, registryID int64, tokens []string) error {
	query := `INSERT OR IGNORE INTO unresolved_types (registry_id, token) VALUES (?, ?)`
	for _, token := range tokens {
		if _, err := q.ExecContext(ctx, query, registryID, token); err != nil {
			return fmt.Errorf("failed to record unresolved type %q: %w", token, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) RecordUnresolved(ctx context.Context, registryID int64, tokens []string) error {
	return s.recordUnresolvedWithQuerier(ctx, s.querier(), registryID, tokens)
}

// listUnresolvedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listUnresolvedWithQuerier(ctx context.Context, q querier, registryID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT token FROM unresolved_types WHERE registry_id = ? ORDER BY token`, registryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *SQLiteStorage) ListUnresolved(ctx context.Context, registryID int64) ([]string, error) {
	return s.listUnresolvedWithQuerier(ctx, s.querier(), registryID)
}

func (s *SQLiteStorage) clearUnresolvedWithQuerier(ctx context.Context, q querier, registryID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM unresolved_types WHERE registry_id = ?`, registryID)
	return err
}

func (s *SQLiteStorage) ClearUnresolved(ctx context.Context, registryID int64) error {
	return s.clearUnresolvedWithQuerier(ctx, s.querier(), registryID)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context, registryID int64) (*RegistryStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), registryID)
}

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, registryID int64) (*RegistryStatus, error) {
	registry, err := s.getRegistryByIDWithQuerier(ctx, q, registryID)
	if err != nil {
		return nil, err
	}

	status := &RegistryStatus{
		Registry:      registry,
		LastIndexedAt: registry.LastIndexedAt,
		IndexDuration: registry.IndexDuration,
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns WHERE registry_id = ?", registryID).
		Scan(&status.PatternsCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM operators o
		JOIN patterns p ON o.pattern_id = p.id
		WHERE p.registry_id = ?
	`, registryID).Scan(&status.OperatorsCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM unresolved_types WHERE registry_id = ?", registryID).
		Scan(&status.UnresolvedCount)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsName string
	ftsErr := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='patterns_fts'").Scan(&ftsName)

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexesBuilt:    ftsErr == nil,
	}

	return status, nil
}

// Transaction implementations route every call through the transaction

func (t *sqliteTx) CreateRegistry(ctx context.Context, registry *Registry) error {
	return t.storage.createRegistryWithQuerier(ctx, t.querier(), registry)
}

func (t *sqliteTx) GetRegistry(ctx context.Context, path string) (*Registry, error) {
	return t.storage.getRegistryWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) UpdateRegistry(ctx context.Context, registry *Registry) error {
	return t.storage.updateRegistryWithQuerier(ctx, t.querier(), registry)
}

func (t *sqliteTx) UpsertPattern(ctx context.Context, pattern *Pattern) error {
	return t.storage.upsertPatternWithQuerier(ctx, t.querier(), pattern)
}

func (t *sqliteTx) GetPattern(ctx context.Context, registryID int64, resourceID string) (*Pattern, error) {
	return t.storage.getPatternWithQuerier(ctx, t.querier(), registryID, resourceID)
}

func (t *sqliteTx) GetPatternByID(ctx context.Context, id int64) (*Pattern, error) {
	return t.storage.getPatternByIDWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListPatterns(ctx context.Context, registryID int64) ([]*Pattern, error) {
	return t.storage.listPatternsWithQuerier(ctx, t.querier(), registryID)
}

func (t *sqliteTx) DeletePattern(ctx context.Context, id int64) error {
	return t.storage.deletePatternWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) UpsertOperator(ctx context.Context, op *Operator) error {
	return t.storage.upsertOperatorWithQuerier(ctx, t.querier(), op)
}

func (t *sqliteTx) ListOperators(ctx context.Context, patternID int64) ([]*Operator, error) {
	return t.storage.listOperatorsWithQuerier(ctx, t.querier(), patternID)
}

func (t *sqliteTx) DeleteOperatorsByPattern(ctx context.Context, patternID int64) error {
	return t.storage.deleteOperatorsByPatternWithQuerier(ctx, t.querier(), patternID)
}

func (t *sqliteTx) SearchText(ctx context.Context, registryID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, t.querier(), registryID, query, limit, filters)
}

func (t *sqliteTx) RecordUnresolved(ctx context.Context, registryID int64, tokens []string) error {
	return t.storage.recordUnresolvedWithQuerier(ctx, t.querier(), registryID, tokens)
}

func (t *sqliteTx) ListUnresolved(ctx context.Context, registryID int64) ([]string, error) {
	return t.storage.listUnresolvedWithQuerier(ctx, t.querier(), registryID)
}

func (t *sqliteTx) ClearUnresolved(ctx context.Context, registryID int64) error {
	return t.storage.clearUnresolvedWithQuerier(ctx, t.querier(), registryID)
}

func (t *sqliteTx) GetStatus(ctx context.Context, registryID int64) (*RegistryStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), registryID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
