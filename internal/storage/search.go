package storage

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// bm25Weights ranks name matches above ID matches above description
// matches. Columns: resource_id, name, description.
const bm25Weights = "5.0, 10.0, 1.0"

// searchText performs a BM25-ranked FTS5 search over a registry's patterns
func searchText(ctx context.Context, q querier, registryID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT
			p.id as pattern_id,
			bm25(patterns_fts, ` + bm25Weights + `) as score
		FROM patterns_fts
		INNER JOIN patterns p ON patterns_fts.rowid = p.id
		WHERE patterns_fts MATCH ?
		AND p.registry_id = ?
	`
	args := []interface{}{sanitized, registryID}

	sqlQuery, args = applyTextFilters(sqlQuery, args, filters)

	// Order by BM25 score (lower is better) and limit
	sqlQuery += " ORDER BY score, p.resource_id LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0)
	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.PatternID, &result.BM25Score); err != nil {
			return nil, err
		}

		result.BM25Score = normalizeBM25(result.BM25Score)

		if filters != nil && filters.MinRelevance > 0 && result.BM25Score < filters.MinRelevance {
			continue
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

// normalizeBM25 converts a BM25 score (negative, lower is better) into a
// relevance in [0, 1) that grows as the score improves
func normalizeBM25(score float64) float64 {
	r := math.Abs(score)
	return r / (1.0 + r)
}

// applyTextFilters adds WHERE clause filters for text search
func applyTextFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if len(filters.Namespaces) > 0 {
		query += " AND p.namespace IN (" + placeholders(len(filters.Namespaces)) + ")"
		for _, ns := range filters.Namespaces {
			args = append(args, ns)
		}
	}

	if len(filters.ModIDs) > 0 {
		query += " AND p.id IN (SELECT pattern_id FROM operators WHERE mod_id IN (" +
			placeholders(len(filters.ModIDs)) + "))"
		for _, mod := range filters.ModIDs {
			args = append(args, mod)
		}
	}

	return query, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ftsTermPattern matches the runs of characters the unicode61 tokenizer
// keeps together
var ftsTermPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// sanitizeFTSQuery rewrites free text into an FTS5 query that cannot carry
// operators or column filters. Each term becomes a quoted prefix query and
// the terms are OR'ed so bm25 ranks patterns that match more terms higher.
func sanitizeFTSQuery(query string) string {
	terms := ftsTermPattern.FindAllString(query, -1)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + term + `"*`
	}
	return strings.Join(quoted, " OR ")
}
