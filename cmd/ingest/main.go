// Command ingest runs one harvest-and-upsert pass of internal/ingest's
// Pipeline against a single source, from the command line. Grounded on
// the teacher's flag-based bulk loader (same DB-connect-then-stream
// shape), rewritten as a spf13/cobra command tree — one subcommand per
// canonical source — per SPEC_FULL.md §2's "cmd/ingest and cmd/harvest CLI
// command trees (subcommands per source)".
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/randcorp/docscope/internal/config"
	"github.com/randcorp/docscope/internal/executor"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/internal/ingest/transform"
	"github.com/randcorp/docscope/internal/repository/postgres"
	"github.com/randcorp/docscope/pkg/arxiv"
	"github.com/randcorp/docscope/pkg/oaipmh"
	"github.com/randcorp/docscope/pkg/openalex"
	"github.com/randcorp/docscope/pkg/semanticscholar"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "ingest",
		Short: "Run one harvest-and-upsert pass against a single paper source",
	}

	var query string
	var pageSize int
	var set string
	var seedQuery string
	var citesRandPubID string

	newRunCmd := func(use, short string, build func(p *ingest.Pipeline) ingest.Source) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), log, build)
			},
		}
	}

	openAlexCmd := newRunCmd("openalex", "Harvest OpenAlex works matching a query", func(p *ingest.Pipeline) ingest.Source {
		return transform.NewOpenAlexSource(openalex.NewClient(os.Getenv("OPENALEX_POLITE_EMAIL")), query, pageSize)
	})
	openAlexCmd.Flags().StringVar(&query, "query", "", "OpenAlex search query")
	openAlexCmd.Flags().IntVar(&pageSize, "page-size", 100, "results per page")

	arxivCmd := newRunCmd("arxiv", "Harvest arXiv papers matching a search query", func(p *ingest.Pipeline) ingest.Source {
		return transform.NewArXivSource(arxiv.NewClient(), query, pageSize)
	})
	arxivCmd.Flags().StringVar(&query, "query", "", "arXiv search query")
	arxivCmd.Flags().IntVar(&pageSize, "page-size", 100, "results per page")

	randPubCmd := newRunCmd("randpub", "Harvest randpub records via OAI-PMH from the default OAI-PMH endpoint", func(p *ingest.Pipeline) ingest.Source {
		return transform.NewRandPubSource(oaipmh.NewClient(), set)
	})
	randPubCmd.Flags().StringVar(&set, "set", "", "optional OAI-PMH set to restrict the harvest to")

	extPubCmd := newRunCmd("extpub", "Harvest Semantic Scholar paper-search results for a seed query", func(p *ingest.Pipeline) ingest.Source {
		return transform.NewExtPubSource(semanticscholar.NewClient(), seedQuery, citesRandPubID, pageSize)
	})
	extPubCmd.Flags().StringVar(&seedQuery, "seed-query", "", "Semantic Scholar seed query")
	extPubCmd.Flags().StringVar(&citesRandPubID, "cites-randpub-id", "", "paper_id (UUID) of the RAND publication these results are linked to")
	extPubCmd.Flags().IntVar(&pageSize, "page-size", 100, "results per page")

	root.AddCommand(openAlexCmd, arxivCmd, randPubCmd, extPubCmd)

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("ingest run failed")
	}
}

// run wires the shared dependencies (DB pool, embedder, pipeline) once and
// hands build a Pipeline it can build its source against, then executes
// and reports the run.
func run(ctx context.Context, log zerolog.Logger, build func(*ingest.Pipeline) ingest.Source) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := pgxpool.New(connectCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool, cfg.Embedding.Dim); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	embedder := executor.NewEmbeddingClient(
		cfg.Embedding.ServiceURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dim,
		cfg.Embedding.RequestTimeout, cfg.Embedding.CacheTTL, cfg.Embedding.CacheMaxItems,
	)

	paperRepo := postgres.NewPaperRepository(pool)
	enrichmentRepo := postgres.NewEnrichmentRepository(pool)
	pipeline := ingest.New(paperRepo, enrichmentRepo, embedder, 500, log)

	src := build(pipeline)

	start := time.Now()
	result, err := pipeline.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("run %s pipeline: %w", src.Name(), err)
	}

	log.Info().
		Str("source", string(src.Name())).
		Int("total", result.Total).
		Int("processed", result.Processed).
		Int("errors", result.Errors).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion run complete")

	if err := postgres.RefreshSortedView(ctx, pool); err != nil {
		log.Warn().Err(err).Msg("failed to refresh papers_sorted_by_year")
	}

	return nil
}
