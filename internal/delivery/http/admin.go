package http

import (
	"context"
	"fmt"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/internal/ingest/transform"
	"github.com/randcorp/docscope/pkg/arxiv"
	"github.com/randcorp/docscope/pkg/oaipmh"
	"github.com/randcorp/docscope/pkg/openalex"
	"github.com/randcorp/docscope/pkg/semanticscholar"
)

// TriggerOptions is POST /admin/ingest/{source}'s request body: the bits
// of a harvest run an operator can steer per source. Fields not relevant
// to the targeted source are ignored.
type TriggerOptions struct {
	Query          string `json:"query"`           // openalex, arxiv: search query
	PageSize       int    `json:"page_size"`       // openalex, arxiv, extpub
	Set            string `json:"set"`             // randpub: OAI-PMH set
	SeedQuery      string `json:"seed_query"`      // extpub: Semantic Scholar seed query
	CitesRandPubID string `json:"cites_randpub_id"` // extpub: RAND publication this graph centers on
}

// IngestionTrigger adapts the four harvester clients to one admin-facing
// entry point, constructing the matching transform.*Source per call and
// handing it to the shared ingest.Pipeline. One run per call: there is no
// background scheduler here, per SPEC_FULL.md §2.6's framing of this as an
// operator-triggered surface, not an autonomous cron.
type IngestionTrigger struct {
	pipeline       *ingest.Pipeline
	arxivClient    *arxiv.Client
	openAlexClient *openalex.Client
	oaiClient      *oaipmh.Client
	s2Client       *semanticscholar.Client
}

func NewIngestionTrigger(pipeline *ingest.Pipeline, arxivClient *arxiv.Client, openAlexClient *openalex.Client, oaiClient *oaipmh.Client, s2Client *semanticscholar.Client) *IngestionTrigger {
	return &IngestionTrigger{
		pipeline:       pipeline,
		arxivClient:    arxivClient,
		openAlexClient: openAlexClient,
		oaiClient:      oaiClient,
		s2Client:       s2Client,
	}
}

func (t *IngestionTrigger) Run(ctx context.Context, source domain.Source, opts TriggerOptions) (ingest.Result, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var src ingest.Source
	switch source {
	case domain.SourceOpenAlex:
		src = transform.NewOpenAlexSource(t.openAlexClient, opts.Query, pageSize)
	case domain.SourceArXiv:
		src = transform.NewArXivSource(t.arxivClient, opts.Query, pageSize)
	case domain.SourceRandPub:
		src = transform.NewRandPubSource(t.oaiClient, opts.Set)
	case domain.SourceExtPub:
		src = transform.NewExtPubSource(t.s2Client, opts.SeedQuery, opts.CitesRandPubID, pageSize)
	default:
		return ingest.Result{}, fmt.Errorf("unsupported source %q", source)
	}

	return t.pipeline.Run(ctx, src)
}
