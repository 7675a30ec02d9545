package ingest

import (
	"context"

	"github.com/randcorp/docscope/internal/domain"
)

// Enrichment carries the side-table rows a transformer derives alongside
// a canonical paper — the arXiv primary category, a RAND report number,
// an extpub citation link. It carries no paper ID: the pipeline writes
// these rows under the paper's ID once the paper row has been upserted.
type Enrichment struct {
	ArXivMetadata   *ArXivFields
	RandPubMetadata *RandPubFields
	ExtPubMetadata  *ExtPubFields
	Category        string // raw category/taxonomy ID, resolved via domain.GetCategoryInfo
}

type ArXivFields struct {
	PrimaryCategory string
	Comment         string
}

type RandPubFields struct {
	ReportNumber string
	Program      string
}

type ExtPubFields struct {
	CitingDOI      string
	CitesRandPubID string // paper_id (UUID) of the RAND publication this cites, if known; a non-UUID value is dropped
}

// Record is one harvested item: the canonical paper plus whatever
// enrichment the source transformer could derive from the same payload.
type Record struct {
	Paper      *domain.Paper
	Enrichment Enrichment
}

// Source is the pull-based contract every harvester adapter satisfies.
// Fetch returns one page starting at cursor (opaque to the pipeline —
// an offset, a resumption token, whatever the underlying API uses) and
// the cursor to resume from on the next call. more=false means the
// source is exhausted; the pipeline does not call Fetch again.
type Source interface {
	Name() domain.Source
	Fetch(ctx context.Context, cursor string) (batch []Record, nextCursor string, more bool, err error)
}
