// Package ingest implements the Stream -> Filter -> Transform -> Validate
// -> Batch -> Upsert pipeline shared by every harvester (spec.md §4.2),
// grounded on the teacher's streaming cmd/ingest JSONL reader and
// generalized from a single file format to the Source interface each
// source package in internal/ingest/transform satisfies.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/repository/postgres"
)

// Embedder resolves free text to a vector, matching the Query Executor's
// embedding client so ingestion shares its cache (spec.md §4.2: "The
// embedding cache (§4.4) is shared with the Query Executor").
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PaperWriter is the subset of PaperRepository the pipeline needs.
type PaperWriter interface {
	Upsert(ctx context.Context, p *domain.Paper) error
}

// EnrichmentWriter is the subset of EnrichmentRepository the pipeline needs.
type EnrichmentWriter interface {
	UpsertCategory(ctx context.Context, e postgres.CategoryEnrichment) error
	UpsertArXivMetadata(ctx context.Context, m postgres.ArXivMetadata) error
	UpsertRandPubMetadata(ctx context.Context, m postgres.RandPubMetadata) error
	UpsertExtPubMetadata(ctx context.Context, m postgres.ExtPubMetadata) error
}

// Result is the pipeline's {total, processed, errors} report, accumulated
// over the whole run; Run returns one Result and does not report per batch.
type Result struct {
	Total     int
	Processed int
	Errors    int
}

// Pipeline wires one run of Stream->Filter->Transform->Validate->Batch->Upsert.
type Pipeline struct {
	papers      PaperWriter
	enrichments EnrichmentWriter
	embedder    Embedder
	batchSize   int
	log         zerolog.Logger
}

func New(papers PaperWriter, enrichments EnrichmentWriter, embedder Embedder, batchSize int, log zerolog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Pipeline{papers: papers, enrichments: enrichments, embedder: embedder, batchSize: batchSize, log: log}
}

// Run drains src to exhaustion, one page at a time. Per-record errors
// (sanitize/validate failures, an individual upsert failing) are caught
// and counted; an embedding failure is not an error, the paper is stored
// without a vector and counted as processed. A failure to fetch the next page is a batch-level
// error that aborts the run and bubbles up, per spec.md §4.2's failure
// model.
func (p *Pipeline) Run(ctx context.Context, src Source) (Result, error) {
	var result Result
	cursor := ""
	for {
		batch, next, more, err := src.Fetch(ctx, cursor)
		if err != nil {
			return result, fmt.Errorf("fetch page from %s: %w", src.Name(), err)
		}
		result.Total += len(batch)

		for i := range batch {
			if err := p.upsertOne(ctx, &batch[i]); err != nil {
				result.Errors++
				p.log.Warn().Err(err).Str("source", string(src.Name())).Msg("record upsert failed")
				continue
			}
			result.Processed++
			if result.Processed%p.batchSize == 0 {
				p.log.Info().Str("source", string(src.Name())).Int("processed", result.Processed).Msg("ingestion progress")
			}
		}

		cursor = next
		if !more {
			break
		}
	}
	return result, nil
}

// upsertOne runs sanitize -> validate -> embed -> upsert for a single
// harvested record, including its enrichment row if any.
func (p *Pipeline) upsertOne(ctx context.Context, rec *Record) error {
	paper := rec.Paper
	paper.Title = SanitizeTitle(paper.Title)
	paper.Abstract = SanitizeAbstract(paper.Abstract)

	if paper.Title == "" {
		return fmt.Errorf("record %s/%s has no title after sanitization", paper.Source, paper.SourceID)
	}

	if p.embedder != nil {
		text := paper.Title
		if paper.Abstract != "" {
			text = paper.Title + ". " + paper.Abstract
		}
		if vec, err := p.embedder.Embed(ctx, text); err != nil {
			// Permanent embedding failure: insert with null embedding per
			// spec.md §4.2 rather than dropping the record outright.
			p.log.Warn().Err(err).Str("source_id", paper.SourceID).Msg("embedding unavailable, inserting without vector")
		} else {
			paper.Embedding = vec
		}
	}

	if err := p.papers.Upsert(ctx, paper); err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}

	return p.upsertEnrichment(ctx, paper.PaperID, rec.Enrichment)
}

func (p *Pipeline) upsertEnrichment(ctx context.Context, paperID uuid.UUID, e Enrichment) error {
	if e.Category != "" {
		cat := postgres.CategoryFromTaxonomy(paperID, e.Category)
		if err := p.enrichments.UpsertCategory(ctx, cat); err != nil {
			return fmt.Errorf("upsert category enrichment: %w", err)
		}
	}
	if m := e.ArXivMetadata; m != nil {
		row := postgres.ArXivMetadata{PaperID: paperID, PrimaryCategory: m.PrimaryCategory, Comment: m.Comment}
		if err := p.enrichments.UpsertArXivMetadata(ctx, row); err != nil {
			return fmt.Errorf("upsert arxiv metadata: %w", err)
		}
	}
	if m := e.RandPubMetadata; m != nil {
		row := postgres.RandPubMetadata{PaperID: paperID, ReportNumber: m.ReportNumber, Program: m.Program}
		if err := p.enrichments.UpsertRandPubMetadata(ctx, row); err != nil {
			return fmt.Errorf("upsert randpub metadata: %w", err)
		}
	}
	if m := e.ExtPubMetadata; m != nil {
		row := postgres.ExtPubMetadata{PaperID: paperID, CitingDOI: m.CitingDOI}
		if m.CitesRandPubID != "" {
			if citedID, err := uuid.Parse(m.CitesRandPubID); err == nil {
				row.CitesRandPubID = &citedID
			}
		}
		if err := p.enrichments.UpsertExtPubMetadata(ctx, row); err != nil {
			return fmt.Errorf("upsert extpub metadata: %w", err)
		}
	}
	return nil
}
