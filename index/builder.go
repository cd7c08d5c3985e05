package index

import (
	"context"
	"fmt"
	"log"

	"github.com/VijayarajParamasivam/PaperMind/document"
)

// Builder owns the rebuild cycle of the active collection: drop any prior
// collection of the same name, create a fresh one, load every unit. Callers
// never observe a partially loaded collection as usable: any failure fails
// the rebuild as a whole and the collection must not be queried.
type Builder struct {
	store  Store
	logger *log.Logger
}

func NewBuilder(store Store, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{store: store, logger: logger}
}

func (b *Builder) Rebuild(ctx context.Context, name string, units []document.TextUnit) error {
	if b.store == nil {
		return fmt.Errorf("index store is not configured")
	}

	if err := b.store.Drop(ctx, name); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}

	if err := b.store.Create(ctx, name); err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}

	if len(units) == 0 {
		b.logger.Printf("collection %q rebuilt empty: document has no pages", name)
		return nil
	}

	if err := b.store.Add(ctx, name, units); err != nil {
		return fmt.Errorf("load collection %q: %w", name, err)
	}

	b.logger.Printf("collection %q rebuilt with %d units", name, len(units))
	return nil
}

// Drop removes the named collection. A missing collection is not an error.
func (b *Builder) Drop(ctx context.Context, name string) error {
	if b.store == nil {
		return fmt.Errorf("index store is not configured")
	}
	if err := b.store.Drop(ctx, name); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}
	return nil
}

// Retrieve runs a top-k similarity lookup. k is an advisory upper bound; the
// store may return fewer units, in best-effort relevance order.
func (b *Builder) Retrieve(ctx context.Context, name, query string, k int) ([]document.TextUnit, error) {
	if b.store == nil {
		return nil, fmt.Errorf("index store is not configured")
	}
	units, err := b.store.Query(ctx, name, query, k)
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", name, err)
	}
	return units, nil
}
