package transform

import (
	"context"
	"strconv"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/pkg/semanticscholar"
)

// ExtPubSource runs a keyword paper search for a seed query (typically a
// RAND DOI or author name) against the Semantic Scholar graph API, producing
// "extpub" rows — externally authored publications related to RAND's own
// output (SPEC_FULL.md §2.2). Citation and reference links are not
// followed. citesRandPubPaperID is attached to every row's extpub_metadata
// as the RAND publication the seed query centers on.
type ExtPubSource struct {
	client               *semanticscholar.Client
	seedQuery            string
	citesRandPubPaperID string
	pageSize             int
}

func NewExtPubSource(client *semanticscholar.Client, seedQuery, citesRandPubPaperID string, pageSize int) *ExtPubSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ExtPubSource{client: client, seedQuery: seedQuery, citesRandPubPaperID: citesRandPubPaperID, pageSize: pageSize}
}

func (s *ExtPubSource) Name() domain.Source { return domain.SourceExtPub }

func (s *ExtPubSource) Fetch(ctx context.Context, cursor string) ([]ingest.Record, string, bool, error) {
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", false, err
		}
		offset = parsed
	}

	result, err := s.client.Search(s.seedQuery, s.pageSize, offset, "relevance")
	if err != nil {
		return nil, "", false, err
	}

	records := make([]ingest.Record, 0, len(result.Papers))
	for _, p := range result.Papers {
		records = append(records, ingest.Record{
			Paper: p,
			Enrichment: ingest.Enrichment{
				ExtPubMetadata: &ingest.ExtPubFields{
					CitingDOI:      p.DOI,
					CitesRandPubID: s.citesRandPubPaperID,
				},
			},
		})
	}

	next := offset + len(result.Papers)
	more := len(result.Papers) == s.pageSize && next < result.TotalResults
	return records, strconv.Itoa(next), more, nil
}
