// Package planner turns a validated search request into one of the
// execution strategies spec.md §4.3.3 describes (S1 materialized-view
// fast path, S2 direct semantic ANN, S3 semantic CTE), or into a plain
// base-table query when none of those applies, grounded on
// the teacher's PaperRepository.Search dynamic WHERE/ORDER composition
// (internal/repository/postgres/paper_repository.go) and the incrementing
// argIdx parameter-binding pattern from the pgvector example store.
package planner

import (
	"fmt"
	"strings"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/domain"
)

// Config is the subset of config.PlannerConfig the Planner consults.
// Defined locally so this package never imports internal/config,
// keeping the dependency direction pointing outward from domain logic.
type Config struct {
	EnabledSources             []string
	DefaultSimilarityThreshold float64
	DefaultLimit               int
	MaxLimit                   int
	CTECapDefault              int
	CTECapMax                  int
}

// Strategy names the chosen execution path, reported back to callers for
// observability (spec.md §4.3.3 requires the response to name it).
type Strategy string

const (
	StrategyMaterializedView Strategy = "S1_MATERIALIZED_VIEW"
	StrategyBaseTable        Strategy = "BASE_TABLE"
	StrategyDirectSemantic   Strategy = "S2_DIRECT_SEMANTIC"
	StrategySemanticCTE      Strategy = "S3_SEMANTIC_CTE"
)

// Plan is the compiled, ready-to-execute query pair the Executor runs.
type Plan struct {
	Strategy            Strategy
	SQL                 string
	CountSQL            string // empty when SkipCount is true
	Args                []any
	CountArgs           []any // args for CountSQL; omitted (nil) when SkipCount is true
	SkipCount           bool  // true for semantic queries, per spec.md §4.4.3
	SimilarityThreshold float64
	Limit               int
	Offset              int
}

// New validates req and compiles it into an executable Plan. embedding
// must be non-nil whenever req.SearchText is non-empty; the Executor is
// responsible for resolving it (via its embedding cache) before calling
// New, so a semantic request reaching here without one is a programming
// error, not a user error.
func New(req domain.FilterRequest, embedding []float32, cat *catalog.Catalog, cfg Config) (*Plan, error) {
	v, err := validate(req, cat, cfg)
	if err != nil {
		return nil, err
	}

	needsSemantic := v.searchText != ""
	if needsSemantic && embedding == nil {
		return nil, apierr.New(apierr.CodeInternalPlanError, "semantic request reached planner without a resolved embedding")
	}

	joins := inferJoins(cat, v.referencedTables)

	switch {
	case !needsSemantic && usesMaterializedViewFastPath(v, joins):
		return planMaterializedView(v, joins, cfg)
	case !needsSemantic:
		return planBaseTable(v, joins, cfg)
	case hasSelectiveCoFilters(v, joins):
		return planSemanticCTE(v, joins, embedding, cfg)
	default:
		return planDirectSemantic(v, joins, embedding, cfg)
	}
}

// usesMaterializedViewFastPath reports whether a non-semantic request
// qualifies for S1 (spec.md §4.1/§4.3.4): no enrichment joins, no bbox
// filter (papers_sorted_by_year is a projection of the base table and
// doesn't carry the spatial index on embedding_2d, so a bbox filter needs
// the base table), and the default (publication_year DESC, paper_id ASC)
// sort. A request with a join, a bbox, or a custom sort_field needs
// planBaseTable instead, since the materialized view's row order or
// column set no longer matches what it must produce (spec.md Scenario B).
func usesMaterializedViewFastPath(v *validated, joins []joinClause) bool {
	return len(joins) == 0 && v.bbox == nil && v.sortField == nil && !v.disableSort
}

// hasSelectiveCoFilters reports whether the request narrows the result
// set enough, independent of the semantic ranking, that it pays to filter
// first and rank second (S3) instead of ranking the whole corpus (S2).
func hasSelectiveCoFilters(v *validated, joins []joinClause) bool {
	return v.sqlFilterSQL != "" || v.bbox != nil || v.yearRange != nil || len(joins) > 0
}

// overfetchFor implements spec.md §4.3.4's overfetch formula: limit·f,
// where f scales down as limit grows (3x up to 100, 1.5x up to 1000, a
// flat +500 above that), floored at 500 so a small limit still leaves the
// similarity post-filter (spec.md §4.4.4) enough rows to trim from.
func overfetchFor(limit int) int {
	var v int
	switch {
	case limit <= 100:
		v = limit * 3
	case limit <= 1000:
		v = int(float64(limit) * 1.5)
	default:
		v = limit + 500
	}
	if v < 500 {
		v = 500
	}
	return v
}

// planMaterializedView builds S1: a scan of the pre-sorted materialized
// view papers_sorted_by_year with the requested filters layered on top,
// relying on its (publication_year DESC NULLS LAST, paper_id ASC) physical
// order to make simple pagination cheap without a semantic ranking.
func planMaterializedView(v *validated, joins []joinClause, cfg Config) (*Plan, error) {
	b := newArgBuilder()
	where := buildCommonWhere(v, cfg, b)

	// papers_sorted_by_year carries the same columns as papers, and is
	// aliased the same ("dp") so the catalog's field aliases, the
	// rewritten sql_filter, and join ON-clauses all resolve unchanged
	// regardless of which relation the FROM clause names.
	selectCols := selectColumns(v)
	joinClauseSQL := joinSQL(joins, catalog.BaseAlias)

	orderSQL := fmt.Sprintf("ORDER BY %s.publication_year DESC NULLS LAST, %s.paper_id ASC", catalog.BaseAlias, catalog.BaseAlias)
	if v.sortField != nil {
		orderSQL = fmt.Sprintf("ORDER BY %s.%s %s, %s.paper_id ASC", v.sortField.Alias, v.sortField.Column, sqlDirection(v.sortDir), catalog.BaseAlias)
	}
	if v.disableSort {
		orderSQL = ""
	}

	limitArg := b.add(v.limit)
	offsetArg := b.add(v.offset)

	sql := fmt.Sprintf(
		"SELECT %s FROM papers_sorted_by_year %s %s %s %s LIMIT %s OFFSET %s",
		selectCols, catalog.BaseAlias, joinClauseSQL, whereSQL(where), orderSQL, limitArg, offsetArg,
	)

	countArgs := append([]any(nil), b.args[:len(b.args)-2]...) // drop limit/offset, added last
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM papers_sorted_by_year %s %s %s", catalog.BaseAlias, joinClauseSQL, whereSQL(where))

	return &Plan{
		Strategy:            StrategyMaterializedView,
		SQL:                 sql,
		CountSQL:            countSQL,
		Args:                b.args,
		CountArgs:           countArgs,
		SkipCount:           false,
		SimilarityThreshold: v.simThreshold,
		Limit:               v.limit,
		Offset:              v.offset,
	}, nil
}

// planBaseTable builds the non-semantic base-table plan: the same shape
// as planMaterializedView but scanning papers directly, for requests that
// disqualify from the S1 fast path (an enrichment join, a bbox filter, a
// custom sort field, or disableSort) per usesMaterializedViewFastPath —
// spec.md §4.3.6's "base path" branch, sibling to S1 under the
// no-search-text half of the state machine.
func planBaseTable(v *validated, joins []joinClause, cfg Config) (*Plan, error) {
	b := newArgBuilder()
	where := buildCommonWhere(v, cfg, b)

	selectCols := selectColumns(v)
	joinClauseSQL := joinSQL(joins, catalog.BaseAlias)

	orderSQL := fmt.Sprintf("ORDER BY %s.publication_year DESC NULLS LAST, %s.paper_id ASC", catalog.BaseAlias, catalog.BaseAlias)
	if v.sortField != nil {
		orderSQL = fmt.Sprintf("ORDER BY %s.%s %s, %s.paper_id ASC", v.sortField.Alias, v.sortField.Column, sqlDirection(v.sortDir), catalog.BaseAlias)
	}
	if v.disableSort {
		orderSQL = ""
	}

	limitArg := b.add(v.limit)
	offsetArg := b.add(v.offset)

	sql := fmt.Sprintf(
		"SELECT %s FROM papers %s %s %s %s LIMIT %s OFFSET %s",
		selectCols, catalog.BaseAlias, joinClauseSQL, whereSQL(where), orderSQL, limitArg, offsetArg,
	)

	countArgs := append([]any(nil), b.args[:len(b.args)-2]...) // drop limit/offset, added last
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM papers %s %s %s", catalog.BaseAlias, joinClauseSQL, whereSQL(where))

	return &Plan{
		Strategy:            StrategyBaseTable,
		SQL:                 sql,
		CountSQL:            countSQL,
		Args:                b.args,
		CountArgs:           countArgs,
		SkipCount:           false,
		SimilarityThreshold: v.simThreshold,
		Limit:               v.limit,
		Offset:              v.offset,
	}, nil
}

// planDirectSemantic builds S2: ANN order over the base table directly,
// overfetching per overfetchFor so the Executor's similarity post-filter
// (spec.md §4.4.4) still has enough rows left after trimming any below
// the threshold.
func planDirectSemantic(v *validated, joins []joinClause, embedding []float32, cfg Config) (*Plan, error) {
	b := newArgBuilder()
	where := buildCommonWhere(v, cfg, b)

	vecArg := b.add(vectorLiteral(embedding))
	selectCols := selectColumns(v)
	selectCols += fmt.Sprintf(", 1 - (%s.embedding <=> %s::vector) AS similarity_score", catalog.BaseAlias, vecArg)
	joinClauseSQL := joinSQL(joins, catalog.BaseAlias)

	fetchLimit := overfetchFor(v.limit)
	limitArg := b.add(fetchLimit)

	sql := fmt.Sprintf(
		"SELECT %s FROM papers %s %s %s ORDER BY %s.embedding <=> %s::vector ASC LIMIT %s",
		selectCols, catalog.BaseAlias, joinClauseSQL, whereSQL(where), catalog.BaseAlias, vecArg, limitArg,
	)

	return &Plan{
		Strategy:            StrategyDirectSemantic,
		SQL:                 sql,
		SkipCount:           true,
		Args:                b.args,
		SimilarityThreshold: v.simThreshold,
		Limit:               v.limit,
		Offset:              v.offset,
	}, nil
}

// planSemanticCTE builds S3: a CTE narrows the corpus by every non-semantic
// filter first, capped at cteCap rows (computed below), then ranks that reduced
// set by cosine distance. This is the path selective co-filters take so
// the ANN index never has to rank rows the filters would discard anyway.
//
// The narrowing join happens once inside the CTE (to filter), and again
// in the outer query (to surface any requested enrichment columns) — the
// second pass is cheap because it only ever touches cteCap rows.
func planSemanticCTE(v *validated, joins []joinClause, embedding []float32, cfg Config) (*Plan, error) {
	const filteredAlias = "filtered"

	b := newArgBuilder()
	where := buildCommonWhere(v, cfg, b)
	innerJoinSQL := joinSQL(joins, catalog.BaseAlias)
	outerJoinSQL := joinSQL(joins, filteredAlias)

	overfetch := overfetchFor(v.limit)

	// spec.md §4.3.4: cte_cap = max(50_000, overfetch * 10), so the
	// ANN-then-filter candidate set never narrows below a size that keeps
	// the index useful, regardless of how small cfg.CTECapDefault is
	// configured. cfg.CTECapMax still bounds it from above.
	cteCap := 50_000
	if scaled := overfetch * 10; scaled > cteCap {
		cteCap = scaled
	}
	if cteCap > cfg.CTECapMax {
		cteCap = cfg.CTECapMax
	}
	cteCapArg := b.add(cteCap)

	vecArg := b.add(vectorLiteral(embedding))
	selectCols := selectColumnsWithBaseAlias(v, filteredAlias)
	selectCols += fmt.Sprintf(", 1 - (%s.embedding <=> %s::vector) AS similarity_score", filteredAlias, vecArg)

	limitArg := b.add(overfetch)

	sql := fmt.Sprintf(
		`WITH %s AS (
			SELECT %s.* FROM papers %s %s %s LIMIT %s
		)
		SELECT %s FROM %s %s
		ORDER BY %s.embedding <=> %s::vector ASC
		LIMIT %s`,
		filteredAlias, catalog.BaseAlias, catalog.BaseAlias, innerJoinSQL, whereSQL(where), cteCapArg,
		selectCols, filteredAlias, outerJoinSQL,
		filteredAlias, vecArg, limitArg,
	)

	return &Plan{
		Strategy:            StrategySemanticCTE,
		SQL:                 sql,
		SkipCount:           true,
		Args:                b.args,
		SimilarityThreshold: v.simThreshold,
		Limit:               v.limit,
		Offset:              v.offset,
	}, nil
}

// buildCommonWhere assembles the filter conditions shared by all three
// strategies: source enablement, bbox, year range, and the rewritten
// user sql_filter.
func buildCommonWhere(v *validated, cfg Config, b *argBuilder) []string {
	var conds []string

	if len(cfg.EnabledSources) > 0 {
		placeholders := make([]string, len(cfg.EnabledSources))
		for i, s := range cfg.EnabledSources {
			placeholders[i] = b.add(s)
		}
		conds = append(conds, fmt.Sprintf("%s.source IN (%s)", catalog.BaseAlias, strings.Join(placeholders, ", ")))
	}

	if v.bbox != nil {
		x1, y1, x2, y2 := b.add(v.bbox.X1), b.add(v.bbox.Y1), b.add(v.bbox.X2), b.add(v.bbox.Y2)
		conds = append(conds, fmt.Sprintf(
			"%s.embedding_2d <@ box(point(%s, %s), point(%s, %s))",
			catalog.BaseAlias, x1, y1, x2, y2,
		))
	}

	if v.yearRange != nil {
		start, end := b.add(v.yearRange.Start), b.add(v.yearRange.End)
		conds = append(conds, fmt.Sprintf("%s.publication_year BETWEEN %s AND %s", catalog.BaseAlias, start, end))
	}

	if v.sqlFilterSQL != "" {
		conds = append(conds, "("+v.sqlFilterSQL+")")
	}

	return conds
}

func whereSQL(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ")
}

func joinSQL(joins []joinClause, baseAlias string) string {
	if len(joins) == 0 {
		return ""
	}
	parts := make([]string, len(joins))
	for i, j := range joins {
		parts[i] = j.SQL(baseAlias)
	}
	return strings.Join(parts, " ")
}

func selectColumns(v *validated) string {
	return selectColumnsWithBaseAlias(v, catalog.BaseAlias)
}

// selectColumnsWithBaseAlias renders the requested fields qualified by
// their catalog alias, except base-table fields, which are qualified by
// baseAlias — the alias of whatever relation plays the papers role in
// this strategy's FROM clause (papers, papers_sorted_by_year, or a CTE).
func selectColumnsWithBaseAlias(v *validated, baseAlias string) string {
	if len(v.fields) == 0 {
		return baseAlias + ".*"
	}
	cols := make([]string, len(v.fields))
	for i, f := range v.fields {
		alias := f.Alias
		if f.Table == catalog.BaseTable {
			alias = baseAlias
		}
		cols[i] = alias + "." + f.Column
	}
	return strings.Join(cols, ", ")
}

func sqlDirection(d domain.SortDirection) string {
	if d == domain.SortAsc {
		return "ASC"
	}
	return "DESC"
}

// vectorLiteral renders an embedding as the Postgres pgvector literal
// format, grounded on the pgvector example store's toVectorLiteral.
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, f := range embedding {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// argBuilder assigns incrementing $N placeholders and keeps args in the
// same order, the pattern the pgvector example store uses to avoid
// hand-counting positional parameters.
type argBuilder struct {
	args []any
}

func newArgBuilder() *argBuilder { return &argBuilder{} }

func (b *argBuilder) add(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}
