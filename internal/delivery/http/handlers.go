// Package http is the Query API's delivery layer: it turns HTTP requests
// into domain.FilterRequest values, runs them through executor.Executor
// (which itself runs validate -> plan -> execute), and shapes the result
// back into the response bodies spec.md §6 specifies. Grounded on the
// teacher's delivery/http.Handler (same writeJSON helper, same
// constructor-injected dependencies), generalized from user/paper/library
// usecases onto the Query Engine's Executor/PaperRepository/Catalog.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/executor"
	"github.com/randcorp/docscope/internal/middleware"
	"github.com/randcorp/docscope/internal/repository/postgres"
)

// Searcher is the subset of executor.Executor the handlers need, declared
// locally so handler tests can substitute a fake instead of standing up
// a real connection pool.
type Searcher interface {
	Search(ctx context.Context, req domain.FilterRequest) (*executor.Result, error)
}

// PaperReader is the subset of postgres.PaperRepository the handlers need.
type PaperReader interface {
	GetByIDWithEnrichment(ctx context.Context, id uuid.UUID) (map[string]any, error)
	Stats(ctx context.Context, sources []domain.Source) (total, withEmbeddings int64, bySource []domain.CategoryCount, err error)
	EnrichmentData(ctx context.Context, table, field string, ids []uuid.UUID) ([]postgres.EnrichmentValue, error)
}

// Handler holds every dependency the Query API's HTTP surface needs.
type Handler struct {
	Executor   Searcher
	Papers     PaperReader
	Catalog    *catalog.Catalog
	Admin      *middleware.AdminAuth
	Ingestion  *IngestionTrigger
	Log        zerolog.Logger
	EnabledSrc []domain.Source
}

func NewHandler(exec Searcher, papers PaperReader, cat *catalog.Catalog, admin *middleware.AdminAuth, ingestion *IngestionTrigger, log zerolog.Logger, enabledSources []domain.Source) *Handler {
	return &Handler{
		Executor:   exec,
		Papers:     papers,
		Catalog:    cat,
		Admin:      admin,
		Ingestion:  ingestion,
		Log:        log,
		EnabledSrc: enabledSources,
	}
}

// writeJSON mirrors the teacher's helper: a status code plus a value, no
// error-swallowing (json.NewEncoder errors are logged, not hidden).
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error().Err(err).Msg("failed to encode response body")
	}
}

// listPapersResponse is GET /papers's body, field-for-field from spec.md §6.
type listPapersResponse struct {
	Results              []map[string]any `json:"results"`
	TotalCount           int              `json:"total_count"`
	TotalCountIsEstimate bool             `json:"total_count_is_estimate"`
	Warnings             []string         `json:"warnings"`
	Query                string           `json:"query"`
	CountQuery           string           `json:"count_query"`
	ExecutionTimeMS      int64            `json:"execution_time_ms"`
	QueryExecutionTimeMS int64            `json:"query_execution_time_ms"`
	CountExecutionTimeMS int64            `json:"count_execution_time_ms"`
}

// ListPapers implements GET /papers: spec.md §4's list_papers operation,
// the only one that exercises the full parse -> validate -> plan ->
// execute -> shape -> emit pipeline (validate/plan/execute all happen
// inside Executor.Search).
func (h *Handler) ListPapers(w http.ResponseWriter, r *http.Request) {
	req, err := parseListPapersRequest(r)
	if err != nil {
		apierr.WriteHTTP(w, r, err)
		return
	}

	result, err := h.Executor.Search(r.Context(), req)
	if err != nil {
		apierr.WriteHTTP(w, r, err)
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}

	h.writeJSON(w, http.StatusOK, listPapersResponse{
		Results:              rows,
		TotalCount:           result.Count.Total,
		TotalCountIsEstimate: result.Count.IsEstimate,
		Warnings:             warnings,
		Query:                result.SQL,
		CountQuery:           result.CountSQL,
		ExecutionTimeMS:      result.ExecutionTimeMS,
		QueryExecutionTimeMS: result.QueryTimeMS,
		CountExecutionTimeMS: result.CountTimeMS,
	})
}

// GetPaper implements GET /papers/{id}: the full canonical row plus every
// enrichment field joined (spec.md §6).
func (h *Handler) GetPaper(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		apierr.WriteHTTP(w, r, apierr.Invalidf("paper id %q is not a valid uuid", raw))
		return
	}

	record, err := h.Papers.GetByIDWithEnrichment(r.Context(), id)
	if err != nil {
		apierr.WriteHTTP(w, r, apierr.Wrap(apierr.CodeDatabaseUnavailable, "failed to fetch paper", err))
		return
	}
	if record == nil {
		apierr.WriteHTTP(w, r, apierr.New(apierr.CodePaperNotFound, "no paper with that id"))
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// statsResponse is GET /stats's body, spec.md §6.
type statsResponse struct {
	TotalPapers          int64                  `json:"total_papers"`
	PapersWithEmbeddings int64                  `json:"papers_with_embeddings"`
	SourceDistribution   []domain.CategoryCount `json:"source_distribution"`
}

// Stats implements GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	total, withEmbeddings, bySource, err := h.Papers.Stats(r.Context(), h.EnabledSrc)
	if err != nil {
		apierr.WriteHTTP(w, r, apierr.Wrap(apierr.CodeDatabaseUnavailable, "failed to compute stats", err))
		return
	}
	h.writeJSON(w, http.StatusOK, statsResponse{
		TotalPapers:          total,
		PapersWithEmbeddings: withEmbeddings,
		SourceDistribution:   bySource,
	})
}

// Health implements GET /health: liveness only, no dependency checks,
// matching spec.md §6's "liveness" framing exactly.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// enrichmentFieldResponse is one entry of GET /sources/{source}/enrichment-fields.
type enrichmentFieldResponse struct {
	Table string `json:"table"`
	Field string `json:"field"`
	Type  string `json:"type"`
}

// sourceMetadataTable maps a canonical source to the per-source metadata
// table the catalog registers for it (catalog.go); openalex has none — its
// enrichment lives entirely in the shared enrichment_country/category
// tables every source can carry.
func sourceMetadataTable(source domain.Source) string {
	switch source {
	case domain.SourceArXiv:
		return "arxiv_metadata"
	case domain.SourceRandPub:
		return "randpub_metadata"
	case domain.SourceExtPub:
		return "extpub_metadata"
	default:
		return ""
	}
}

// EnrichmentFields implements GET /sources/{source}/enrichment-fields:
// catalog introspection for the UI (spec.md §6), enumerating every
// enrichment table applicable to source and its fields.
func (h *Handler) EnrichmentFields(w http.ResponseWriter, r *http.Request) {
	source := domain.Source(chi.URLParam(r, "source"))
	if !isKnownSource(source) {
		apierr.WriteHTTP(w, r, apierr.Invalidf("unknown source %q", source))
		return
	}

	tables := []string{"enrichment_country", "enrichment_category"}
	if t := sourceMetadataTable(source); t != "" {
		tables = append(tables, t)
	}

	var out []enrichmentFieldResponse
	for _, table := range tables {
		for _, f := range h.Catalog.FieldsForTable(table) {
			out = append(out, enrichmentFieldResponse{Table: table, Field: f.Name, Type: string(f.Type)})
		}
	}
	if out == nil {
		out = []enrichmentFieldResponse{}
	}

	h.writeJSON(w, http.StatusOK, out)
}

func isKnownSource(s domain.Source) bool {
	for _, known := range domain.AllSources {
		if known == s {
			return true
		}
	}
	return false
}

// EnrichmentData implements GET /enrichment/data: given a paper-id list
// plus (source, table, field), returns [{paper_id, value}...] (spec.md
// §6). source is accepted for symmetry with EnrichmentFields but the
// (table, field) pair alone is what's validated against the catalog and
// queried — it already disambiguates which table family a field belongs to.
func (h *Handler) EnrichmentData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table := q.Get("table")
	field := q.Get("field")
	idsParam := q.Get("paper_ids")

	if table == "" || field == "" || idsParam == "" {
		apierr.WriteHTTP(w, r, apierr.Invalidf("table, field, and paper_ids are all required"))
		return
	}

	f, ok := h.Catalog.Lookup(table + "." + field)
	if !ok || f.Table != table {
		apierr.WriteHTTP(w, r, apierr.Invalidf("unknown field %q on table %q", field, table))
		return
	}
	if table == catalog.BaseTable {
		apierr.WriteHTTP(w, r, apierr.Invalidf("table %q is not an enrichment table", table))
		return
	}

	idStrs := splitTrimmed(idsParam)
	ids := make([]uuid.UUID, 0, len(idStrs))
	for _, s := range idStrs {
		id, err := uuid.Parse(s)
		if err != nil {
			apierr.WriteHTTP(w, r, apierr.Invalidf("paper_ids contains an invalid uuid %q", s))
			return
		}
		ids = append(ids, id)
	}

	values, err := h.Papers.EnrichmentData(r.Context(), f.Table, f.Column, ids)
	if err != nil {
		apierr.WriteHTTP(w, r, apierr.Wrap(apierr.CodeDatabaseUnavailable, "failed to fetch enrichment data", err))
		return
	}
	if values == nil {
		values = []postgres.EnrichmentValue{}
	}

	h.writeJSON(w, http.StatusOK, values)
}

// AdminLogin implements POST /admin/login: exchanges the single static
// admin credential for a bearer JWT. Only reachable when ADMIN_PASSWORD_HASH
// was configured; otherwise VerifyPassword always rejects and operators
// mint tokens out of band.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.WriteHTTP(w, r, apierr.Invalidf("malformed request body"))
		return
	}

	if !h.Admin.VerifyPassword(body.Password) {
		apierr.WriteHTTP(w, r, apierr.New(apierr.CodeInvalidParameter, "invalid admin credential"))
		return
	}

	token, err := h.Admin.IssueToken("admin", time.Hour)
	if err != nil {
		apierr.WriteHTTP(w, r, apierr.Wrap(apierr.CodeInternalError, "failed to issue token", err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// AdminIngest implements POST /admin/ingest/{source}: the operator-facing
// trigger for the ingestion pipeline (SPEC_FULL.md §2.6). Guarded by
// middleware.AdminAuth.Require upstream; this handler only needs to
// dispatch to the matching transform.*Source adapter.
func (h *Handler) AdminIngest(w http.ResponseWriter, r *http.Request) {
	source := domain.Source(strings.ToLower(chi.URLParam(r, "source")))
	if !isKnownSource(source) {
		apierr.WriteHTTP(w, r, apierr.Invalidf("unknown source %q", source))
		return
	}

	var opts TriggerOptions
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&opts)
	}

	result, err := h.Ingestion.Run(r.Context(), source, opts)
	if err != nil {
		apierr.WriteHTTP(w, r, apierr.Wrap(apierr.CodeInternalError, "ingestion run failed", err))
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
