package transform

import (
	"context"
	"strconv"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/pkg/arxiv"
)

// ArXivSource harvests a query's result set from arXiv's Atom search API,
// using an offset cursor.
type ArXivSource struct {
	client   *arxiv.Client
	query    string
	pageSize int
}

func NewArXivSource(client *arxiv.Client, query string, pageSize int) *ArXivSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ArXivSource{client: client, query: query, pageSize: pageSize}
}

func (s *ArXivSource) Name() domain.Source { return domain.SourceArXiv }

func (s *ArXivSource) Fetch(ctx context.Context, cursor string) ([]ingest.Record, string, bool, error) {
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", false, err
		}
		offset = parsed
	}

	result, err := s.client.Search(s.query, s.pageSize, offset)
	if err != nil {
		return nil, "", false, err
	}

	records := make([]ingest.Record, 0, len(result.Papers))
	for i, p := range result.Papers {
		var enr ingest.Enrichment
		if i < len(result.Categories) && result.Categories[i] != "" {
			enr.Category = result.Categories[i]
			enr.ArXivMetadata = &ingest.ArXivFields{PrimaryCategory: result.Categories[i]}
		}
		records = append(records, ingest.Record{Paper: p, Enrichment: enr})
	}

	next := offset + len(result.Papers)
	more := len(result.Papers) == s.pageSize && next < result.TotalResults
	return records, strconv.Itoa(next), more, nil
}
