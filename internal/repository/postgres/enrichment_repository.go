package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/randcorp/docscope/internal/domain"
)

// EnrichmentRepository upserts the side tables the catalog joins in on
// demand (enrichment_country, enrichment_category, and the per-source
// metadata tables). Split out from PaperRepository because these rows
// are populated by distinct pipeline stages (geographic enrichment,
// category backfill, per-source harvesters) that run independently of
// the base paper upsert.
type EnrichmentRepository struct {
	db *pgxpool.Pool
}

func NewEnrichmentRepository(db *pgxpool.Pool) *EnrichmentRepository {
	return &EnrichmentRepository{db: db}
}

// CountryEnrichment is one row of enrichment_country, spec.md §3's own
// worked example of an enrichment table.
type CountryEnrichment struct {
	PaperID          uuid.UUID
	CountryName      string
	CountryUSChina   string
	InstitutionName  string
	EnrichmentMethod string
}

func (r *EnrichmentRepository) UpsertCountry(ctx context.Context, e CountryEnrichment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO enrichment_country (paper_id, country_name, country_uschina, institution_name, enrichment_method)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (paper_id) DO UPDATE SET
			country_name      = EXCLUDED.country_name,
			country_uschina   = EXCLUDED.country_uschina,
			institution_name  = EXCLUDED.institution_name,
			enrichment_method = EXCLUDED.enrichment_method
	`, e.PaperID, e.CountryName, e.CountryUSChina, e.InstitutionName, e.EnrichmentMethod)
	return err
}

// CategoryEnrichment is one row of enrichment_category, backed by the
// arXiv taxonomy this repo keeps in internal/domain/categories.go.
type CategoryEnrichment struct {
	PaperID       uuid.UUID
	CategoryID    string
	CategoryName  string
	CategoryGroup string
}

func (r *EnrichmentRepository) UpsertCategory(ctx context.Context, e CategoryEnrichment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO enrichment_category (paper_id, category_id, category_name, category_group)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (paper_id) DO UPDATE SET
			category_id    = EXCLUDED.category_id,
			category_name  = EXCLUDED.category_name,
			category_group = EXCLUDED.category_group
	`, e.PaperID, e.CategoryID, e.CategoryName, e.CategoryGroup)
	return err
}

// CategoryFromTaxonomy resolves a raw arXiv-style category ID against the
// built-in taxonomy and builds the row to upsert. Unrecognized IDs still
// produce a row (GetCategoryInfo falls back to grouping them as "Other")
// rather than being silently dropped from enrichment_category.
func CategoryFromTaxonomy(paperID uuid.UUID, categoryID string) CategoryEnrichment {
	info := domain.GetCategoryInfo(categoryID)
	return CategoryEnrichment{
		PaperID:       paperID,
		CategoryID:    categoryID,
		CategoryName:  info.Name,
		CategoryGroup: info.Group,
	}
}

// ArXivMetadata is one row of arxiv_metadata.
type ArXivMetadata struct {
	PaperID         uuid.UUID
	PrimaryCategory string
	Comment         string
}

func (r *EnrichmentRepository) UpsertArXivMetadata(ctx context.Context, m ArXivMetadata) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO arxiv_metadata (paper_id, primary_category, comment)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id) DO UPDATE SET
			primary_category = EXCLUDED.primary_category,
			comment          = EXCLUDED.comment
	`, m.PaperID, m.PrimaryCategory, m.Comment)
	return err
}

// RandPubMetadata is one row of randpub_metadata.
type RandPubMetadata struct {
	PaperID      uuid.UUID
	ReportNumber string
	Program      string
}

func (r *EnrichmentRepository) UpsertRandPubMetadata(ctx context.Context, m RandPubMetadata) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO randpub_metadata (paper_id, report_number, program)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id) DO UPDATE SET
			report_number = EXCLUDED.report_number,
			program       = EXCLUDED.program
	`, m.PaperID, m.ReportNumber, m.Program)
	return err
}

// ExtPubMetadata is one row of extpub_metadata: an externally authored
// publication's citation link back into the RAND publication graph.
type ExtPubMetadata struct {
	PaperID        uuid.UUID
	CitingDOI      string
	CitesRandPubID *uuid.UUID
}

func (r *EnrichmentRepository) UpsertExtPubMetadata(ctx context.Context, m ExtPubMetadata) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO extpub_metadata (paper_id, citing_doi, cites_randpub_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id) DO UPDATE SET
			citing_doi       = EXCLUDED.citing_doi,
			cites_randpub_id = EXCLUDED.cites_randpub_id
	`, m.PaperID, m.CitingDOI, m.CitesRandPubID)
	return err
}
