package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VijayarajParamasivam/PaperMind/config"
	"github.com/VijayarajParamasivam/PaperMind/document"
	"github.com/VijayarajParamasivam/PaperMind/embeddings"
)

// Store is a named retrieval collection backend. Drop tolerates a missing
// collection silently; Add is all-or-nothing from the caller's point of view.
type Store interface {
	Drop(ctx context.Context, name string) error
	Create(ctx context.Context, name string) error
	Add(ctx context.Context, name string, units []document.TextUnit) error
	Query(ctx context.Context, name string, query string, k int) ([]document.TextUnit, error)
}

func NewStore(cfg config.Config, pool *pgxpool.Pool, embedder embeddings.Embedder) (Store, error) {
	switch cfg.Index.Provider {
	case config.IndexPostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres index selected but no connection pool supplied")
		}
		return NewPostgresStore(pool, embedder), nil
	case config.IndexQdrant:
		return NewQdrantStore(QdrantOptions{
			URL:       cfg.QdrantURL,
			APIKey:    cfg.QdrantAPIKey,
			Dimension: cfg.Embeddings.Dimension,
		}, embedder), nil
	default:
		return nil, fmt.Errorf("unknown index provider: %s", cfg.Index.Provider)
	}
}

// embedInput substitutes a single space for empty page texts; embedding
// providers reject empty input, but the stored text stays empty.
func embedInput(units []document.TextUnit) []string {
	texts := make([]string, len(units))
	for i, unit := range units {
		if unit.Text == "" {
			texts[i] = " "
		} else {
			texts[i] = unit.Text
		}
	}
	return texts
}
