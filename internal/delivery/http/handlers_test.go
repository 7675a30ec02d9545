package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/executor"
	"github.com/randcorp/docscope/internal/repository/postgres"
)

// fakeSearcher and fakePaperReader let handler tests exercise Handler
// without a real Executor or database, the seam Searcher/PaperReader were
// declared for.
type fakeSearcher struct {
	result *executor.Result
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, req domain.FilterRequest) (*executor.Result, error) {
	return f.result, f.err
}

type fakePaperReader struct {
	paper            map[string]any
	paperErr         error
	total            int64
	withEmbeddings   int64
	bySource         []domain.CategoryCount
	statsErr         error
	enrichmentValues []postgres.EnrichmentValue
	enrichmentErr    error
}

func (f *fakePaperReader) GetByIDWithEnrichment(ctx context.Context, id uuid.UUID) (map[string]any, error) {
	return f.paper, f.paperErr
}

func (f *fakePaperReader) Stats(ctx context.Context, sources []domain.Source) (int64, int64, []domain.CategoryCount, error) {
	return f.total, f.withEmbeddings, f.bySource, f.statsErr
}

func (f *fakePaperReader) EnrichmentData(ctx context.Context, table, field string, ids []uuid.UUID) ([]postgres.EnrichmentValue, error) {
	return f.enrichmentValues, f.enrichmentErr
}

func newTestHandler(searcher Searcher, papers PaperReader) *Handler {
	return NewHandler(searcher, papers, catalog.New(), nil, nil, zerolog.Nop(), domain.AllSources)
}

func TestListPapers_Success(t *testing.T) {
	searcher := &fakeSearcher{result: &executor.Result{
		Rows:            []map[string]any{{"paper_id": "abc"}},
		Count:           domain.CountResult{Total: 1, IsEstimate: false},
		Warnings:        []string{"degraded"},
		SQL:             "SELECT 1",
		CountSQL:        "SELECT count(*)",
		ExecutionTimeMS: 12,
		QueryTimeMS:     8,
		CountTimeMS:     4,
	}}
	h := newTestHandler(searcher, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/papers?limit=10", nil)
	w := httptest.NewRecorder()
	h.ListPapers(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body listPapersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalCount)
	assert.Equal(t, []string{"degraded"}, body.Warnings)
	assert.Equal(t, "SELECT 1", body.Query)
	assert.Equal(t, int64(12), body.ExecutionTimeMS)
}

func TestListPapers_InvalidQueryParamIs400(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/papers?limit=notanumber", nil)
	w := httptest.NewRecorder()
	h.ListPapers(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPapers_ExecutorErrorPropagatesStatus(t *testing.T) {
	h := newTestHandler(&fakeSearcher{err: apierr.New(apierr.CodeForbiddenSQL, "nope")}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/papers", nil)
	w := httptest.NewRecorder()
	h.ListPapers(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPaper_Found(t *testing.T) {
	id := uuid.New()
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{paper: map[string]any{"paper_id": id.String()}})

	router := chi.NewRouter()
	router.Get("/papers/{id}", h.GetPaper)

	r := httptest.NewRequest("GET", "/papers/"+id.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetPaper_NotFound(t *testing.T) {
	id := uuid.New()
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{paper: nil})

	router := chi.NewRouter()
	router.Get("/papers/{id}", h.GetPaper)

	r := httptest.NewRequest("GET", "/papers/"+id.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPaper_InvalidUUID(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	router := chi.NewRouter()
	router.Get("/papers/{id}", h.GetPaper)

	r := httptest.NewRequest("GET", "/papers/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats_Success(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{
		total: 100, withEmbeddings: 80,
		bySource: []domain.CategoryCount{{Category: "arxiv", Count: 60}, {Category: "openalex", Count: 40}},
	})

	r := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	h.Stats(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body statsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(100), body.TotalPapers)
	assert.Len(t, body.SourceDistribution, 2)
}

func TestStats_DatabaseErrorIs503(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{statsErr: assertError{}})

	r := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	h.Stats(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth_AlwaysOK(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnrichmentFields_KnownSource(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	router := chi.NewRouter()
	router.Get("/sources/{source}/enrichment-fields", h.EnrichmentFields)

	r := httptest.NewRequest("GET", "/sources/arxiv/enrichment-fields", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body []enrichmentFieldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body)
}

func TestEnrichmentFields_UnknownSource(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	router := chi.NewRouter()
	router.Get("/sources/{source}/enrichment-fields", h.EnrichmentFields)

	r := httptest.NewRequest("GET", "/sources/bogus/enrichment-fields", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichmentData_MissingParams(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/enrichment/data", nil)
	w := httptest.NewRecorder()
	h.EnrichmentData(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichmentData_RejectsBaseTable(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/enrichment/data?table=papers&field=title&paper_ids="+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	h.EnrichmentData(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichmentData_UnknownField(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/enrichment/data?table=arxiv_metadata&field=not_a_field&paper_ids="+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	h.EnrichmentData(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichmentData_Success(t *testing.T) {
	id := uuid.New()
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{
		enrichmentValues: []postgres.EnrichmentValue{{PaperID: id, Value: "cs.LG"}},
	})

	r := httptest.NewRequest("GET", "/enrichment/data?table=arxiv_metadata&field=primary_category&paper_ids="+id.String(), nil)
	w := httptest.NewRecorder()
	h.EnrichmentData(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body []postgres.EnrichmentValue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, id, body[0].PaperID)
}

func TestEnrichmentData_InvalidPaperID(t *testing.T) {
	h := newTestHandler(&fakeSearcher{}, &fakePaperReader{})

	r := httptest.NewRequest("GET", "/enrichment/data?table=arxiv_metadata&field=primary_category&paper_ids=not-a-uuid", nil)
	w := httptest.NewRecorder()
	h.EnrichmentData(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// assertError is a minimal error used where a test only needs *some*
// non-nil error, not a specific apierr code.
type assertError struct{}

func (assertError) Error() string { return "boom" }
