// Package domain holds the canonical paper schema shared by every other
// component: Storage, Ingestion, the Planner, and the API response shaper.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is the provenance tag on a canonical paper row.
type Source string

const (
	SourceOpenAlex Source = "openalex"
	SourceArXiv    Source = "arxiv"
	SourceRandPub  Source = "randpub"
	SourceExtPub   Source = "extpub"
)

// AllSources lists every known source in a stable order, used by the HTTP
// layer to recognise a source name in the enrichment endpoints.
var AllSources = []Source{SourceOpenAlex, SourceArXiv, SourceRandPub, SourceExtPub}

// Author is one entry in a paper's ordered author list.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Point2D is a 2D projection coordinate, physically a Postgres point.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Paper is the canonical row described by spec.md §3.
type Paper struct {
	PaperID         uuid.UUID
	Source          Source
	SourceID        string
	Title           string
	Abstract        string
	Authors         []Author
	PrimaryDate     *time.Time
	PublicationYear *int
	DOI             string
	Links           string
	Embedding       []float32 // nil when absent
	Embedding2D     *Point2D  // nil when absent
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReferenceEmbeddingDim is the dimensionality D used by the reference
// corpus (spec.md §3). Deployments configure their own D via EMBEDDING_DIM;
// this constant only seeds defaults and tests.
const ReferenceEmbeddingDim = 1536

// YearFromDate implements invariant 5 of spec.md §3:
// publication_year = extract_year(primary_date) when primary_date is set, else nil.
func YearFromDate(d *time.Time) *int {
	if d == nil {
		return nil
	}
	y := d.Year()
	return &y
}
