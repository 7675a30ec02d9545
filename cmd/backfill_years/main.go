// Command backfill_years is a one-shot migration utility: it derives
// publication_year from primary_date for rows ingested before that
// derivation existed (invariant 5 of the paper schema: publication_year
// = extract_year(primary_date) when primary_date is set). Repurposed
// from the teacher's cmd/backfill_cats, which ran the same
// batch-update-until-zero-rows loop over a different pair of columns.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const batchSize = 10000

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse DATABASE_URL")
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping failed")
	}
	log.Info().Msg("connected to database")

	var totalUpdated int64

	for {
		batchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := pool.Exec(batchCtx, `
			UPDATE papers
			SET publication_year = EXTRACT(YEAR FROM primary_date)::integer
			WHERE paper_id IN (
				SELECT paper_id FROM papers
				WHERE publication_year IS NULL
				  AND primary_date IS NOT NULL
				LIMIT $1
			)
		`, batchSize)
		cancel()

		if err != nil {
			log.Error().Err(err).Msg("batch failed, retrying once")
			retryCtx, retryCancel := context.WithTimeout(ctx, 60*time.Second)
			res, err = pool.Exec(retryCtx, `
				UPDATE papers
				SET publication_year = EXTRACT(YEAR FROM primary_date)::integer
				WHERE paper_id IN (
					SELECT paper_id FROM papers
					WHERE publication_year IS NULL
					  AND primary_date IS NOT NULL
					LIMIT $1
				)
			`, batchSize)
			retryCancel()
			if err != nil {
				log.Fatal().Err(err).Int64("total_updated", totalUpdated).Msg("retry also failed")
			}
		}

		affected := res.RowsAffected()
		totalUpdated += affected
		log.Info().Int64("batch", affected).Int64("total", totalUpdated).Msg("backfilled batch")

		if affected == 0 {
			break
		}
		time.Sleep(1 * time.Second)
	}

	log.Info().Int64("total_updated", totalUpdated).Msg("backfill complete")
}
