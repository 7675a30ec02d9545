package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/domain"
)

func testConfig() Config {
	return Config{
		EnabledSources:             []string{"openalex", "arxiv"},
		DefaultSimilarityThreshold: 0.0,
		DefaultLimit:               50,
		MaxLimit:                   500,
		CTECapDefault:              5000,
		CTECapMax:                  50000,
	}
}

func TestNew_NoSearchTextChoosesMaterializedView(t *testing.T) {
	cat := catalog.New()
	p, err := New(domain.FilterRequest{Limit: 20}, nil, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategyMaterializedView, p.Strategy)
	assert.Contains(t, p.SQL, "papers_sorted_by_year")
	assert.False(t, p.SkipCount)
	assert.NotEmpty(t, p.CountSQL)
}

func TestNew_SearchTextWithoutCoFiltersChoosesDirectSemantic(t *testing.T) {
	cat := catalog.New()
	embedding := []float32{0.1, 0.2, 0.3}
	p, err := New(domain.FilterRequest{SearchText: "neural networks", Limit: 10}, embedding, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectSemantic, p.Strategy)
	assert.True(t, p.SkipCount)
	assert.Contains(t, p.SQL, "<=>")
}

func TestNew_SearchTextWithBBoxChoosesSemanticCTE(t *testing.T) {
	cat := catalog.New()
	embedding := []float32{0.1, 0.2}
	req := domain.FilterRequest{
		SearchText: "quantum computing",
		BBox:       &domain.BBox{X1: 0, Y1: 0, X2: 5, Y2: 5},
		Limit:      10,
	}
	p, err := New(req, embedding, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategySemanticCTE, p.Strategy)
	assert.Contains(t, p.SQL, "WITH filtered AS")
	assert.True(t, p.SkipCount)
}

func TestNew_SemanticRequestWithoutEmbeddingIsPlanError(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{SearchText: "x"}, nil, cat, testConfig())
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeInternalPlanError, apiErr.Code)
}

func TestNew_UnknownFieldIsInvalidParameter(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{Fields: []string{"not_a_real_field"}}, nil, cat, testConfig())
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeInvalidParameter, apiErr.Code)
}

func TestNew_SQLFilterWithDropKeywordIsForbidden(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{SQLFilter: "1=1; DROP TABLE papers"}, nil, cat, testConfig())
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeForbiddenSQL, apiErr.Code)
}

func TestNew_SQLFilterWithSubqueryIsForbidden(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{SQLFilter: "title IN (SELECT title FROM papers)"}, nil, cat, testConfig())
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeForbiddenSQL, apiErr.Code)
}

func TestNew_SQLFilterWithLockKeywordIsForbidden(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{SQLFilter: "1=1 OR pg_advisory_lock(1) IS NOT NULL"}, nil, cat, testConfig())
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeForbiddenSQL, apiErr.Code)
}

func TestNew_SQLFilterWithCommentIsForbidden(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{SQLFilter: "country_name = 'US' -- comment"}, nil, cat, testConfig())
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeForbiddenSQL, apiErr.Code)
}

func TestNew_SQLFilterReferencingEnrichmentTableInfersJoin(t *testing.T) {
	cat := catalog.New()
	req := domain.FilterRequest{SQLFilter: "country_name = 'China'"}
	p, err := New(req, nil, cat, testConfig())
	require.NoError(t, err)
	assert.Contains(t, p.SQL, "LEFT JOIN enrichment_country ec")
	assert.Contains(t, p.SQL, "ec.country_name")
}

func TestNew_NonSemanticWithJoinUsesBaseTableNotMaterializedView(t *testing.T) {
	cat := catalog.New()
	req := domain.FilterRequest{SQLFilter: "country_name = 'China'"}
	p, err := New(req, nil, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategyBaseTable, p.Strategy)
	assert.Contains(t, p.SQL, "FROM papers ")
	assert.NotContains(t, p.SQL, "papers_sorted_by_year")
}

func TestNew_NonSemanticWithCustomSortUsesBaseTable(t *testing.T) {
	cat := catalog.New()
	req := domain.FilterRequest{SortField: "title", SortDirection: domain.SortAsc}
	p, err := New(req, nil, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategyBaseTable, p.Strategy)
	assert.Contains(t, p.SQL, "FROM papers ")
	assert.NotContains(t, p.SQL, "papers_sorted_by_year")
	assert.False(t, p.SkipCount)
}

func TestNew_NonSemanticWithBBoxUsesBaseTable(t *testing.T) {
	cat := catalog.New()
	req := domain.FilterRequest{BBox: &domain.BBox{X1: -1, Y1: -1, X2: 1, Y2: 1}, Limit: 5000}
	p, err := New(req, nil, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategyBaseTable, p.Strategy)
	assert.Contains(t, p.SQL, "FROM papers ")
	assert.NotContains(t, p.SQL, "papers_sorted_by_year")
	assert.Contains(t, p.SQL, "embedding_2d <@ box(")
}

func TestNew_NonSemanticDefaultCaseStillUsesMaterializedView(t *testing.T) {
	cat := catalog.New()
	p, err := New(domain.FilterRequest{Limit: 20}, nil, cat, testConfig())
	require.NoError(t, err)
	assert.Equal(t, StrategyMaterializedView, p.Strategy)
	assert.Contains(t, p.SQL, "papers_sorted_by_year")
}

func TestNew_LimitIsClampedToMax(t *testing.T) {
	cat := catalog.New()
	cfg := testConfig()
	cfg.MaxLimit = 100
	p, err := New(domain.FilterRequest{Limit: 10000}, nil, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Limit)
}

func TestNew_NegativeOffsetIsInvalid(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{Offset: -5}, nil, cat, testConfig())
	require.Error(t, err)
}

func TestNew_YearRangeStartAfterEndIsInvalid(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{YearRange: &domain.YearRange{Start: 2020, End: 2010}}, nil, cat, testConfig())
	require.Error(t, err)
}

func TestNew_BBoxIsNormalized(t *testing.T) {
	v, err := validate(domain.FilterRequest{BBox: &domain.BBox{X1: 5, Y1: 5, X2: 1, Y2: 1}}, catalog.New(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.bbox.X1)
	assert.Equal(t, 5.0, v.bbox.X2)
}

func TestNew_UnsortableFieldIsRejected(t *testing.T) {
	cat := catalog.New()
	_, err := New(domain.FilterRequest{SortField: "embedding"}, nil, cat, testConfig())
	require.Error(t, err)
}

func TestArgBuilder_PlaceholdersMatchArgCount(t *testing.T) {
	b := newArgBuilder()
	p1 := b.add("a")
	p2 := b.add("b")
	assert.Equal(t, "$1", p1)
	assert.Equal(t, "$2", p2)
	assert.Len(t, b.args, 2)
}

func TestVectorLiteral_Format(t *testing.T) {
	lit := vectorLiteral([]float32{1, 2.5, -3})
	assert.True(t, strings.HasPrefix(lit, "["))
	assert.True(t, strings.HasSuffix(lit, "]"))
	assert.Equal(t, "[1,2.5,-3]", lit)
}

func TestNew_MaterializedViewCountArgsAreArgsWithoutLimitOffset(t *testing.T) {
	cat := catalog.New()
	req := domain.FilterRequest{YearRange: &domain.YearRange{Start: 2015, End: 2020}, Limit: 25, Offset: 50}
	p, err := New(req, nil, cat, testConfig())
	require.NoError(t, err)

	// CountArgs must be exactly Args minus the trailing limit/offset pair.
	require.Len(t, p.Args, len(p.CountArgs)+2)
	assert.Equal(t, p.Args[:len(p.CountArgs)], p.CountArgs)
}
