package planner

import (
	"regexp"
	"strings"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/domain"
)

// denyListKeywords blocks any sql_filter snippet that tries to escape the
// single boolean expression the Planner expects (spec.md §4.3.1). This is
// a deny-list, not a parser: it exists to stop the obvious attempts, the
// same posture the teacher's repository layer never needed because it
// never accepted user-supplied SQL fragments at all.
var denyListKeywords = []string{
	"drop", "delete", "insert", "update", "alter", "truncate", "grant",
	"revoke", "exec", "execute", "create", "union", "into", "copy",
	"pg_sleep", "information_schema", "pg_catalog",
	// spec.md §4.3.1's full deny-list: sql_filter is a boolean expression
	// only, so none of these should ever legitimately appear in one.
	"merge", "replace", "commit", "rollback", "savepoint", "transaction",
	"lock", "unlock", "analyze", "vacuum", "reindex", "cluster",
	"bulk", "load", "import", "export",
	"select", "from", "where", "join", "having", "group by", "order by",
}

var commentOrTerminatorPattern = regexp.MustCompile(`--|/\*|\*/|;`)

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?`)
var stringLiteralPattern = regexp.MustCompile(`'(?:[^']|'')*'`)

const (
	maxSQLFilterLength = 2000
	maxSearchTextLength = 2000
	minSimilarityThreshold = 0.0
	maxSimilarityThreshold = 1.0
)

// validated is the normalized, catalog-checked form of a FilterRequest,
// ready for join inference and strategy selection.
type validated struct {
	fields        []catalog.Field
	sqlFilterSQL  string // identifiers rewritten to alias.column, literals intact
	bbox          *domain.BBox
	yearRange     *domain.YearRange
	searchText    string
	simThreshold  float64
	limit         int
	offset        int
	sortField     *catalog.Field
	sortDir       domain.SortDirection
	disableSort   bool
	referencedTables map[string]bool
}

// validate checks a FilterRequest against the catalog and the Planner's
// own bounds (spec.md §4.3.1), normalizing it into a validated plan input.
// It never touches the database; every failure is an apierr with code
// INVALID_PARAMETER or FORBIDDEN_SQL.
func validate(req domain.FilterRequest, cat *catalog.Catalog, cfg Config) (*validated, error) {
	v := &validated{
		referencedTables: map[string]bool{catalog.BaseTable: true},
	}

	for _, name := range req.Fields {
		f, ok := cat.Lookup(name)
		if !ok {
			return nil, apierr.Invalidf("unknown field %q", name)
		}
		v.fields = append(v.fields, f)
		v.referencedTables[f.Table] = true
	}

	if len(req.SQLFilter) > maxSQLFilterLength {
		return nil, apierr.Invalidf("sql_filter exceeds maximum length of %d", maxSQLFilterLength)
	}
	if strings.TrimSpace(req.SQLFilter) != "" {
		rewritten, tables, err := rewriteFilter(req.SQLFilter, cat)
		if err != nil {
			return nil, err
		}
		v.sqlFilterSQL = rewritten
		for t := range tables {
			v.referencedTables[t] = true
		}
	}

	if req.BBox != nil {
		b := *req.BBox
		if b.X1 > b.X2 {
			b.X1, b.X2 = b.X2, b.X1
		}
		if b.Y1 > b.Y2 {
			b.Y1, b.Y2 = b.Y2, b.Y1
		}
		v.bbox = &b
	}

	if req.YearRange != nil {
		yr := *req.YearRange
		if yr.Start > yr.End {
			return nil, apierr.Invalidf("year_range start %d is after end %d", yr.Start, yr.End)
		}
		v.yearRange = &yr
	}

	if len(req.SearchText) > maxSearchTextLength {
		return nil, apierr.Invalidf("search_text exceeds maximum length of %d", maxSearchTextLength)
	}
	v.searchText = strings.TrimSpace(req.SearchText)

	threshold := req.SimilarityThreshold
	if threshold == 0 {
		threshold = cfg.DefaultSimilarityThreshold
	}
	if threshold < minSimilarityThreshold || threshold > maxSimilarityThreshold {
		return nil, apierr.Invalidf("similarity_threshold must be in [%.1f, %.1f]", minSimilarityThreshold, maxSimilarityThreshold)
	}
	v.simThreshold = threshold

	limit := req.Limit
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	v.limit = limit

	offset := req.Offset
	if offset < 0 {
		return nil, apierr.Invalidf("offset must be non-negative, got %d", offset)
	}
	v.offset = offset

	v.disableSort = req.DisableSort
	if !v.disableSort && req.SortField != "" {
		f, ok := cat.Lookup(req.SortField)
		if !ok {
			return nil, apierr.Invalidf("unknown sort_field %q", req.SortField)
		}
		if !f.Sortable {
			return nil, apierr.Invalidf("field %q is not sortable", req.SortField)
		}
		v.sortField = &f
		v.referencedTables[f.Table] = true
	}
	v.sortDir = req.SortDirection
	if v.sortDir == "" {
		v.sortDir = domain.SortDesc
	}

	return v, nil
}

// rewriteFilter validates a user sql_filter against the deny list and
// rewrites every catalog field reference it contains into its
// alias-qualified column name, per spec.md §4.3.1's "qualified name
// rewriting" requirement. String literals are left untouched.
func rewriteFilter(filter string, cat *catalog.Catalog) (string, map[string]bool, error) {
	lower := strings.ToLower(filter)
	if commentOrTerminatorPattern.MatchString(filter) {
		return "", nil, apierr.New(apierr.CodeForbiddenSQL, "sql_filter contains a comment or statement terminator")
	}
	for _, kw := range denyListKeywords {
		if strings.Contains(lower, kw) {
			return "", nil, apierr.New(apierr.CodeForbiddenSQL, "sql_filter contains a forbidden keyword: "+kw)
		}
	}

	// Protect string literals (and double single-quote escapes within them)
	// from identifier rewriting by extracting them first.
	var literals []string
	masked := stringLiteralPattern.ReplaceAllStringFunc(filter, func(lit string) string {
		literals = append(literals, lit)
		return "\x00" + string(rune('0'+len(literals)-1)) + "\x00"
	})

	tables := map[string]bool{}
	rewritten := identifierPattern.ReplaceAllStringFunc(masked, func(ident string) string {
		if isSQLKeyword(ident) {
			return ident
		}
		f, ok := cat.Lookup(ident)
		if !ok {
			return ident
		}
		tables[f.Table] = true
		return f.Alias + "." + f.Column
	})

	for i, lit := range literals {
		placeholder := "\x00" + string(rune('0'+i)) + "\x00"
		rewritten = strings.Replace(rewritten, placeholder, lit, 1)
	}

	return rewritten, tables, nil
}

var sqlKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "is": true, "null": true,
	"true": true, "false": true, "like": true, "ilike": true, "in": true,
	"between": true, "exists": true,
}

func isSQLKeyword(ident string) bool {
	return sqlKeywords[strings.ToLower(ident)]
}
