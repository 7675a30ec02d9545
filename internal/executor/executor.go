// Package executor runs a compiled planner.Plan against Postgres,
// resolves embeddings for semantic requests, performs the adaptive
// count of spec.md §4.4.3, and shapes raw pgx rows back into JSON-ready
// records. Grounded on the teacher's PaperRepository.Search (context-
// timeout-per-call, pgx.Rows iteration) generalized from one fixed query
// to the Planner's three compiled strategies.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/planner"
)

// Executor ties the Planner to a live connection pool.
type Executor struct {
	pool               *pgxpool.Pool
	catalog            *catalog.Catalog
	embedder           Embedder
	plannerCfg         planner.Config
	statementTimeoutMS int64
	countTimeoutMS     int64
	dedup              singleflight.Group
}

// Embedder resolves search text to a vector. appctx.Context.Embedder
// satisfies this; declared locally so this package doesn't import appctx
// (appctx depends on nothing executor-specific, and keeping the dependency
// direction one-way avoids future surprises).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New builds an Executor bound to pool and cat, using cfg for planner
// bounds and the two statement-timeout values spec.md §4.4.5/§4.4.3 name.
func New(pool *pgxpool.Pool, cat *catalog.Catalog, embedder Embedder, plannerCfg planner.Config, statementTimeoutMS, countTimeoutMS int64) *Executor {
	return &Executor{
		pool:               pool,
		catalog:            cat,
		embedder:           embedder,
		plannerCfg:         plannerCfg,
		statementTimeoutMS: statementTimeoutMS,
		countTimeoutMS:     countTimeoutMS,
	}
}

// Result is the full outcome of a search request: the chosen strategy
// (surfaced for observability), the shaped rows, the count, and any
// non-fatal degradations the client should be told about.
type Result struct {
	Strategy     planner.Strategy
	Rows         []map[string]any
	Count        domain.CountResult
	Warnings     []string
	SQL          string // plan.SQL, echoed back per spec.md §6's "query" response field
	CountSQL     string // plan.CountSQL, echoed back as "count_query"; empty when the count was skipped

	// Timings, all in milliseconds, for spec.md §6's three *_execution_time_ms
	// response fields. ExecutionTimeMS is the wall-clock cost of Search as a
	// whole (embedding resolution included); QueryTimeMS and CountTimeMS are
	// the two Postgres round trips broken out individually so a client can
	// tell a slow count from a slow row fetch.
	ExecutionTimeMS   int64
	QueryTimeMS       int64
	CountTimeMS       int64
}

// embeddingServiceUnavailableWarning is the text spec.md §4.4.1/§6
// requires in the warnings array when a semantic request degrades to
// non-semantic because the embedding service timed out or failed
// permanently.
const embeddingServiceUnavailableWarning = "EMBEDDING_SERVICE_UNAVAILABLE: embedding service unavailable, results are not ranked by semantic similarity"

// Search validates, plans, and executes req, applying the similarity
// post-filter (spec.md §4.4.4) for semantic strategies before returning.
// When req.SearchText is set but the embedding service is unavailable,
// Search degrades: it re-plans as a non-semantic request and appends a
// warning instead of failing the whole request (spec.md §4.4.1).
// searchOnce runs one request through the full embed -> plan -> execute ->
// count pipeline. Search (dedup.go) is the public entry point; it wraps
// this in a singleflight group so identical concurrent requests share one
// run instead of each hitting Postgres independently.
func (e *Executor) searchOnce(ctx context.Context, req domain.FilterRequest) (*Result, error) {
	start := time.Now()
	var embedding []float32
	var warnings []string

	if req.SearchText != "" {
		vec, err := e.embedder.Embed(ctx, req.SearchText)
		if err != nil {
			if !isEmbeddingDegradable(err) {
				return nil, err
			}
			warnings = append(warnings, embeddingServiceUnavailableWarning)
			req.SearchText = ""
		} else {
			embedding = vec
		}
	}

	plan, err := planner.New(req, embedding, e.catalog, e.plannerCfg)
	if err != nil {
		return nil, err
	}

	queryStart := time.Now()
	rows, err := e.runQuery(ctx, plan)
	queryElapsed := time.Since(queryStart)
	if err != nil {
		return nil, mapExecutionError(err)
	}

	if plan.SkipCount {
		filtered := filterBySimilarity(rows, plan.SimilarityThreshold)
		return &Result{
			Strategy:        plan.Strategy,
			Rows:            paginate(filtered, req.Offset, plan.Limit),
			Count:           domain.CountResult{Total: len(filtered), IsEstimate: true},
			Warnings:        warnings,
			SQL:             plan.SQL,
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			QueryTimeMS:     queryElapsed.Milliseconds(),
		}, nil
	}

	countStart := time.Now()
	count, err := adaptiveCount(ctx, e.pool, plan, e.countTimeoutMS)
	countElapsed := time.Since(countStart)
	if err != nil {
		return nil, mapExecutionError(err)
	}

	return &Result{
		Strategy:        plan.Strategy,
		Rows:            rows,
		Count:           count,
		Warnings:        warnings,
		SQL:             plan.SQL,
		CountSQL:        plan.CountSQL,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		QueryTimeMS:     queryElapsed.Milliseconds(),
		CountTimeMS:     countElapsed.Milliseconds(),
	}, nil
}

// isEmbeddingDegradable reports whether err is the kind of embedding
// failure spec.md §4.4.1 says should degrade the request to non-semantic
// rather than fail it outright: a service timeout or the permanent
// EMBEDDING_SERVICE_UNAVAILABLE error EmbeddingClient.Embed returns
// after exhausting retries.
func isEmbeddingDegradable(err error) bool {
	if apiErr, ok := err.(*apierr.Error); ok {
		return apiErr.Code == apierr.CodeEmbeddingServiceUnavailable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// runQuery executes plan.SQL under the default per-query statement
// timeout and shapes every row into a column-name -> value map, applying
// postProcessValue to vector/point columns.
func (e *Executor) runQuery(ctx context.Context, plan *planner.Plan) ([]map[string]any, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", e.statementTimeoutMS)); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(values))
		for i, v := range values {
			name := string(fields[i].Name)
			logicalType := ""
			if f, ok := e.catalog.Lookup(name); ok {
				logicalType = string(f.Type)
			}
			record[name] = postProcessValue(logicalType, v)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// filterBySimilarity drops rows below threshold, the post-filter
// spec.md §4.4.4 requires because pgvector's ANN index returns approximate
// nearest neighbors without itself enforcing a similarity floor.
func filterBySimilarity(rows []map[string]any, threshold float64) []map[string]any {
	if threshold <= 0 {
		return rows
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		sim, ok := r["similarity_score"].(float64)
		if !ok || sim >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// paginate applies offset/limit in memory, used only for the semantic
// strategies: their SQL already overfetches past limit so the
// similarity filter has room to drop rows without starving the page.
func paginate(rows []map[string]any, offset, limit int) []map[string]any {
	if offset >= len(rows) {
		return []map[string]any{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// pgStatementTimeoutCode is the Postgres error code raised when a
// statement exceeds SET LOCAL statement_timeout (query_canceled).
const pgStatementTimeoutCode = "57014"

// mapExecutionError applies spec.md §4.4.6's failure-semantics mapping:
// a canceled-by-timeout query becomes QUERY_TIMEOUT, anything else
// reaching this far is a DATABASE_UNAVAILABLE (connection refused, pool
// exhausted, network partition).
func mapExecutionError(err error) error {
	if apiErr, ok := err.(*apierr.Error); ok {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Wrap(apierr.CodeQueryTimeout, "query exceeded its deadline", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgStatementTimeoutCode {
		return apierr.Wrap(apierr.CodeQueryTimeout, "query exceeded statement_timeout", err)
	}
	return apierr.Wrap(apierr.CodeDatabaseUnavailable, "query execution failed", err)
}
