package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/randcorp/docscope/internal/apierr"
	"github.com/randcorp/docscope/internal/domain"
)

// parseListPapersRequest turns GET /papers's query string into a
// domain.FilterRequest, per the parameter list spec.md §6 names: fields,
// limit, offset, bbox, sql_filter, embedding_type, search_text,
// similarity_threshold, target_count, sort_field, disable_sort.
//
// This stage only parses — every bound, deny-list check, and catalog
// lookup lives in planner.validate, which executor.Search reaches via
// planner.New. A malformed numeric, boolean or bbox argument is the one
// thing this stage itself rejects, since planner.validate has no raw string
// to parse.
func parseListPapersRequest(r *http.Request) (domain.FilterRequest, error) {
	q := r.URL.Query()
	req := domain.FilterRequest{}

	if fields := q.Get("fields"); fields != "" {
		req.Fields = splitTrimmed(fields)
	}

	req.SQLFilter = q.Get("sql_filter")
	req.SearchText = q.Get("search_text")
	req.EmbeddingType = q.Get("embedding_type")
	req.SortField = q.Get("sort_field")

	if v := q.Get("sort_direction"); v != "" {
		req.SortDirection = domain.SortDirection(strings.ToLower(v))
	}

	if v := q.Get("disable_sort"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, apierr.Invalidf("disable_sort must be a boolean, got %q", v)
		}
		req.DisableSort = b
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apierr.Invalidf("limit must be an integer, got %q", v)
		}
		req.Limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apierr.Invalidf("offset must be an integer, got %q", v)
		}
		req.Offset = n
	}

	if v := q.Get("similarity_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, apierr.Invalidf("similarity_threshold must be a number, got %q", v)
		}
		req.SimilarityThreshold = f
	}

	if v := q.Get("bbox"); v != "" {
		bbox, err := parseBBox(v)
		if err != nil {
			return req, err
		}
		req.BBox = bbox
	}

	// target_count is accepted but currently informational: spec.md §6
	// names it as a GET /papers parameter without further specifying its
	// semantics, and no Planner/Executor behavior consumes it today. It is
	// parsed here only so a client that sends it gets a 2xx, not a 400 for
	// an unrecognized parameter.
	_ = q.Get("target_count")

	return req, nil
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBBox parses the "x1,y1,x2,y2" form spec.md §6 specifies.
func parseBBox(s string) (*domain.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, apierr.Invalidf("bbox must have exactly 4 comma-separated values, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, apierr.Invalidf("bbox value %q is not a number", p)
		}
		vals[i] = f
	}
	return &domain.BBox{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}, nil
}
