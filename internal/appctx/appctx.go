// Package appctx bundles the process-wide dependencies — config, the
// pgx pool, the embedding cache, and the logger — into one object passed
// explicitly through the call chain, instead of the package-level
// globals a smaller program might reach for. Grounded on the teacher's
// cmd/server/main.go wiring block, which builds every dependency once in
// main and threads it into usecases/handlers by constructor injection;
// Context here is that same wiring collected into a single struct.
package appctx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/config"
)

// Context is the application-wide dependency bundle.
type Context struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Catalog  *catalog.Catalog
	Log      zerolog.Logger
	Embedder EmbeddingClient
}

// EmbeddingClient resolves search text into a vector, implemented by
// internal/executor's HTTP client against EMBEDDING_SERVICE_URL. Declared
// here (not in executor) so appctx.Context can reference it without
// importing the executor package.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New assembles a Context from its already-constructed dependencies.
func New(cfg *config.Config, pool *pgxpool.Pool, cat *catalog.Catalog, log zerolog.Logger, embedder EmbeddingClient) *Context {
	return &Context{Config: cfg, Pool: pool, Catalog: cat, Log: log, Embedder: embedder}
}
