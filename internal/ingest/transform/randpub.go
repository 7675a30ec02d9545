package transform

import (
	"context"
	"time"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/pkg/oaipmh"
)

// RandPubSource harvests "randpub" rows via OAI-PMH, the standard
// institutional-repository protocol, from whatever base URL its
// oaipmh.Client carries. oaipmh.NewClient() defaults to the arXiv
// endpoint, and cmd/ingest and cmd/server build the client that way, so
// no RAND-specific repository URL is configured (SPEC_FULL.md §2.2). The
// OAI-PMH resumption token is used directly as the pipeline cursor.
type RandPubSource struct {
	client *oaipmh.Client
	set    string // optional OAI-PMH set, e.g. a RAND division
}

func NewRandPubSource(client *oaipmh.Client, set string) *RandPubSource {
	return &RandPubSource{client: client, set: set}
}

func (s *RandPubSource) Name() domain.Source { return domain.SourceRandPub }

func (s *RandPubSource) Fetch(ctx context.Context, cursor string) ([]ingest.Record, string, bool, error) {
	params := oaipmh.ListRecordsParams{
		MetadataPrefix:  oaipmh.MetadataPrefixDC,
		Set:             s.set,
		ResumptionToken: cursor,
	}

	result, err := s.client.ListRecords(params)
	if err != nil {
		return nil, "", false, err
	}

	records := make([]ingest.Record, 0, len(result.Papers))
	for _, hp := range result.Papers {
		if hp.IsDeleted {
			continue
		}
		records = append(records, toRecord(hp))
	}

	more := result.ResumptionToken != ""
	return records, result.ResumptionToken, more, nil
}

func toRecord(hp *oaipmh.HarvestedPaper) ingest.Record {
	authors := make([]domain.Author, 0, len(hp.Authors))
	for _, a := range hp.Authors {
		authors = append(authors, domain.Author{Name: a.Name, Affiliation: a.Affiliation})
	}

	var primaryDate *time.Time
	if !hp.PublishedDate.IsZero() {
		primaryDate = &hp.PublishedDate
	}

	paper := &domain.Paper{
		Source:      domain.SourceRandPub,
		SourceID:    hp.ArXivID,
		Title:       hp.Title,
		Abstract:    hp.Abstract,
		Authors:     authors,
		PrimaryDate: primaryDate,
		DOI:         hp.DOI,
	}

	return ingest.Record{
		Paper: paper,
		Enrichment: ingest.Enrichment{
			Category: hp.PrimaryCategory,
			RandPubMetadata: &ingest.RandPubFields{
				ReportNumber: hp.ArXivID,
				Program:      hp.PrimaryCategory,
			},
		},
	}
}
