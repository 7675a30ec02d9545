package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/planner"
)

// explainNode is the subset of Postgres's EXPLAIN (FORMAT JSON) plan tree
// this package reads: just enough to pull "Plan Rows" back out.
type explainNode struct {
	PlanRows float64 `json:"Plan Rows"`
}

type explainOutput struct {
	Plan explainNode `json:"Plan"`
}

// adaptiveCount implements spec.md §4.4.3: try an exact COUNT(*) capped at
// a short statement_timeout, and fall back to the planner's row estimate
// when the exact count would be too slow. Semantic queries (plan.SkipCount)
// never reach here — their total is just len(results), set by the caller.
//
// Tier 3 (the estimate itself) never fails the request: if EXPLAIN errors
// out too, spec.md §4.4.3/§4.4.6/§7 call for reporting {0, is_estimate:
// true} rather than surfacing a fatal error for what is, at worst, a
// missing count.
func adaptiveCount(ctx context.Context, pool *pgxpool.Pool, plan *planner.Plan, countTimeoutMS int64) (domain.CountResult, error) {
	exact, err := tryExactCount(ctx, pool, plan, countTimeoutMS)
	if err == nil {
		return domain.CountResult{Total: exact, IsEstimate: false}, nil
	}

	estimate, estErr := estimateCount(ctx, pool, plan)
	if estErr != nil {
		return domain.CountResult{Total: 0, IsEstimate: true}, nil
	}
	return domain.CountResult{Total: estimate, IsEstimate: true}, nil
}

func tryExactCount(ctx context.Context, pool *pgxpool.Pool, plan *planner.Plan, countTimeoutMS int64) (int, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", countTimeoutMS)); err != nil {
		return 0, err
	}

	var total int
	if err := tx.QueryRow(ctx, plan.CountSQL, plan.CountArgs...).Scan(&total); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

func estimateCount(ctx context.Context, pool *pgxpool.Pool, plan *planner.Plan) (int, error) {
	// Replace the SELECT list with 1 (spec.md §4.4.3): under SELECT COUNT(*),
	// the top-level EXPLAIN node is the Aggregate, whose Plan Rows is always
	// 1 (one output row) regardless of how many rows match. Rewritten this
	// way, the top node is the scan itself, and its Plan Rows is Postgres's
	// estimate of the matching row count.
	explainSQL := "EXPLAIN (FORMAT JSON) " + rewriteCountSQLForEstimate(plan.CountSQL)

	var rows pgx.Rows
	var err error
	rows, err = pool.Query(ctx, explainSQL, plan.CountArgs...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var raw string
	for rows.Next() {
		if err := rows.Scan(&raw); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var parsed []explainOutput
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return 0, err
	}
	if len(parsed) == 0 {
		return 0, fmt.Errorf("explain output had no plan")
	}
	return int(parsed[0].Plan.PlanRows), nil
}

// rewriteCountSQLForEstimate swaps plan.CountSQL's "SELECT COUNT(*)" select
// list for "SELECT 1", leaving the FROM/WHERE clause (and therefore the
// query plan Postgres would choose) untouched.
func rewriteCountSQLForEstimate(countSQL string) string {
	const from = "SELECT COUNT(*)"
	if strings.HasPrefix(countSQL, from) {
		return "SELECT 1" + countSQL[len(from):]
	}
	return countSQL
}
