package planner

import (
	"sort"

	"github.com/randcorp/docscope/internal/catalog"
)

// joinClause is one LEFT JOIN the compiled query needs to satisfy a
// referenced enrichment field (spec.md §4.3.2, join inference).
type joinClause struct {
	Table string
	Alias string
}

// SQL renders the join as a LEFT JOIN on paper_id, the FK every
// enrichment and per-source metadata table carries back to papers.
// baseAlias is whatever the base table/view is aliased as in this
// strategy's FROM clause ("dp" for papers and for the materialized view,
// "filtered" for the S3 CTE's outer query).
func (j joinClause) SQL(baseAlias string) string {
	return "LEFT JOIN " + j.Table + " " + j.Alias + " ON " + j.Alias + ".paper_id = " + baseAlias + ".paper_id"
}

// inferJoins walks the set of tables a validated request touched and
// returns the joins needed, in a stable (sorted) order so compiled SQL is
// deterministic across otherwise-identical requests.
func inferJoins(cat *catalog.Catalog, referenced map[string]bool) []joinClause {
	var tables []string
	for t := range referenced {
		if t == catalog.BaseTable {
			continue
		}
		tables = append(tables, t)
	}
	sort.Strings(tables)

	joins := make([]joinClause, 0, len(tables))
	for _, t := range tables {
		alias, ok := cat.AliasFor(t)
		if !ok {
			continue
		}
		joins = append(joins, joinClause{Table: t, Alias: alias})
	}
	return joins
}
