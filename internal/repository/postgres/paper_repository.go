package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/randcorp/docscope/internal/domain"
)

// PaperRepository is the canonical-paper storage layer: upsert-by-source
// (the ingestion pipeline's restart/idempotency contract) plus the single
// reads the delivery layer needs outside of Planner/Executor queries
// (fetch-by-id, streaming scan for administrative tooling).
//
// Grounded on the teacher's PaperRepository (same constructor shape, same
// per-call context.WithTimeout, same ON CONFLICT ... DO UPDATE upsert
// pattern), generalized from the teacher's single (external_id) uniqueness
// key to spec.md §3's (source, source_id) pair.
type PaperRepository struct {
	db *pgxpool.Pool
}

func NewPaperRepository(db *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{db: db}
}

// Upsert inserts or updates one canonical paper row, keyed on (source,
// source_id). publication_year is always recomputed from primary_date
// (invariant 5 of spec.md §3) rather than trusted from the caller.
func (r *PaperRepository) Upsert(ctx context.Context, p *domain.Paper) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if p.PaperID == uuid.Nil {
		p.PaperID = uuid.New()
	}
	p.PublicationYear = domain.YearFromDate(p.PrimaryDate)
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}

	var embeddingLiteral any
	if p.Embedding != nil {
		embeddingLiteral = vectorLiteral(p.Embedding)
	}
	var point2DLiteral any
	if p.Embedding2D != nil {
		point2DLiteral = fmt.Sprintf("(%f,%f)", p.Embedding2D.X, p.Embedding2D.Y)
	}

	query := `
		INSERT INTO papers
			(paper_id, source, source_id, title, abstract, authors, primary_date,
			 publication_year, doi, links, embedding, embedding_2d, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::vector, $12::point, $13, $14)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title            = EXCLUDED.title,
			abstract         = EXCLUDED.abstract,
			authors          = EXCLUDED.authors,
			primary_date     = EXCLUDED.primary_date,
			publication_year = EXCLUDED.publication_year,
			doi              = EXCLUDED.doi,
			links            = EXCLUDED.links,
			embedding        = COALESCE(EXCLUDED.embedding, papers.embedding),
			embedding_2d     = COALESCE(EXCLUDED.embedding_2d, papers.embedding_2d),
			updated_at       = EXCLUDED.updated_at
		RETURNING paper_id
	`

	return r.db.QueryRow(ctx, query,
		p.PaperID, p.Source, p.SourceID, p.Title, p.Abstract, authorsJSON, p.PrimaryDate,
		p.PublicationYear, p.DOI, p.Links, embeddingLiteral, point2DLiteral, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.PaperID)
}

// GetByID fetches one paper by its primary key, returning (nil, nil) when
// absent so callers can map that directly onto apierr.CodePaperNotFound.
func (r *PaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT paper_id, source, source_id, title, abstract, authors, primary_date,
		       publication_year, doi, links, created_at, updated_at
		FROM papers WHERE paper_id = $1
	`

	var authorsJSON []byte
	p := &domain.Paper{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.PaperID, &p.Source, &p.SourceID, &p.Title, &p.Abstract, &authorsJSON,
		&p.PrimaryDate, &p.PublicationYear, &p.DOI, &p.Links, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(authorsJSON) > 0 {
		if err := json.Unmarshal(authorsJSON, &p.Authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
	}
	return p, nil
}

// StreamAll yields every paper of the given source in ascending paper_id
// order, so an interrupted ingestion run can restart at the last-seen paper_id
// instead of rescanning the whole source from the beginning.
func (r *PaperRepository) StreamAll(ctx context.Context, source domain.Source, afterID uuid.UUID, fn func(*domain.Paper) error) error {
	query := `
		SELECT paper_id, source, source_id, title, abstract, primary_date, publication_year, doi, links, created_at, updated_at
		FROM papers
		WHERE source = $1 AND paper_id > $2
		ORDER BY paper_id ASC
	`

	rows, err := r.db.Query(ctx, query, source, afterID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		p := &domain.Paper{}
		if err := rows.Scan(
			&p.PaperID, &p.Source, &p.SourceID, &p.Title, &p.Abstract,
			&p.PrimaryDate, &p.PublicationYear, &p.DOI, &p.Links, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Stats aggregates the GET /stats response: total row count, how many
// carry an embedding, and the per-source breakdown spec.md §6 names.
//
// The per-source breakdown avoids a GROUP BY source over the whole table:
// it runs one COUNT(*) WHERE source = $1 per entry of sources (cmd/server
// passes its ENABLED_SOURCES list) and sorts the results in memory, largest
// count first; sources with equal counts keep the order they were given in.
func (r *PaperRepository) Stats(ctx context.Context, sources []domain.Source) (total, withEmbeddings int64, bySource []domain.CategoryCount, err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.db.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE embedding IS NOT NULL)
		FROM papers
	`).Scan(&total, &withEmbeddings); err != nil {
		return 0, 0, nil, err
	}

	bySource = make([]domain.CategoryCount, 0, len(sources))
	for _, s := range sources {
		var n int64
		if err := r.db.QueryRow(ctx, `SELECT count(*) FROM papers WHERE source = $1`, s).Scan(&n); err != nil {
			return 0, 0, nil, err
		}
		bySource = append(bySource, domain.CategoryCount{Category: string(s), Count: n})
	}
	sort.SliceStable(bySource, func(i, j int) bool { return bySource[i].Count > bySource[j].Count })

	return total, withEmbeddings, bySource, nil
}

// GetByIDWithEnrichment fetches the canonical row plus every enrichment
// field joined, for GET /papers/{id} (spec.md §6: "returns full canonical
// row plus all enrichment fields joined"). All five side tables are 1:1 on
// paper_id (schema.go), so one query with a LEFT JOIN per side table covers
// every source without conditional branching on p.source.
func (r *PaperRepository) GetByIDWithEnrichment(ctx context.Context, id uuid.UUID) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	const query = `
		SELECT
			p.paper_id, p.source, p.source_id, p.title, p.abstract, p.authors,
			p.primary_date, p.publication_year, p.doi, p.links, p.created_at, p.updated_at,
			ec.country_name, ec.country_uschina, ec.institution_name, ec.enrichment_method,
			ecat.category_id, ecat.category_name, ecat.category_group,
			rm.report_number, rm.program,
			am.primary_category, am.comment,
			em.citing_doi, em.cites_randpub_id
		FROM papers p
		LEFT JOIN enrichment_country ec ON ec.paper_id = p.paper_id
		LEFT JOIN enrichment_category ecat ON ecat.paper_id = p.paper_id
		LEFT JOIN randpub_metadata rm ON rm.paper_id = p.paper_id
		LEFT JOIN arxiv_metadata am ON am.paper_id = p.paper_id
		LEFT JOIN extpub_metadata em ON em.paper_id = p.paper_id
		WHERE p.paper_id = $1
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	fields := rows.FieldDescriptions()
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	record := make(map[string]any, len(values))
	for i, v := range values {
		record[string(fields[i].Name)] = v
	}

	if authorsJSON, ok := record["authors"].([]byte); ok && len(authorsJSON) > 0 {
		var authors []domain.Author
		if err := json.Unmarshal(authorsJSON, &authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
		record["authors"] = authors
	}

	return record, rows.Err()
}

// EnrichmentValue is one row of the GET /enrichment/data response.
type EnrichmentValue struct {
	PaperID uuid.UUID `json:"paper_id"`
	Value   any       `json:"value"`
}

// EnrichmentData resolves one (table, field) pair to a value per
// paper_id in ids, for GET /enrichment/data. table/field are validated
// against the catalog by the caller before this is invoked, so this method
// trusts them as already-safe identifiers.
func (r *PaperRepository) EnrichmentData(ctx context.Context, table, field string, ids []uuid.UUID) ([]EnrichmentValue, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := fmt.Sprintf(`SELECT paper_id, %s FROM %s WHERE paper_id = ANY($1)`, field, table)
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnrichmentValue
	for rows.Next() {
		var ev EnrichmentValue
		if err := rows.Scan(&ev.PaperID, &ev.Value); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func vectorLiteral(embedding []float32) string {
	out := make([]byte, 0, len(embedding)*8)
	out = append(out, '[')
	for i, f := range embedding {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, []byte(fmt.Sprintf("%g", f))...)
	}
	out = append(out, ']')
	return string(out)
}
