// Package transform adapts the teacher's four harvester clients
// (pkg/openalex, pkg/arxiv, pkg/oaipmh, pkg/semanticscholar) to
// internal/ingest.Source, one file per canonical source.
package transform

import (
	"context"
	"strconv"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/pkg/openalex"
)

// OpenAlexSource harvests a query's result set from the OpenAlex works
// API page by page, using an offset cursor.
type OpenAlexSource struct {
	client   *openalex.Client
	query    string
	pageSize int
}

func NewOpenAlexSource(client *openalex.Client, query string, pageSize int) *OpenAlexSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &OpenAlexSource{client: client, query: query, pageSize: pageSize}
}

func (s *OpenAlexSource) Name() domain.Source { return domain.SourceOpenAlex }

func (s *OpenAlexSource) Fetch(ctx context.Context, cursor string) ([]ingest.Record, string, bool, error) {
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", false, err
		}
		offset = parsed
	}

	result, err := s.client.Search(s.query, "", "date", s.pageSize, offset)
	if err != nil {
		return nil, "", false, err
	}

	records := make([]ingest.Record, 0, len(result.Papers))
	for _, p := range result.Papers {
		records = append(records, ingest.Record{Paper: p})
	}

	next := offset + len(result.Papers)
	more := len(result.Papers) == s.pageSize && next < result.TotalResults
	return records, strconv.Itoa(next), more, nil
}
