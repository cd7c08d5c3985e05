package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/VijayarajParamasivam/PaperMind/document"
	"github.com/VijayarajParamasivam/PaperMind/embeddings"
)

type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
}

func NewPostgresStore(pool *pgxpool.Pool, embedder embeddings.Embedder) *PostgresStore {
	return &PostgresStore{pool: pool, embedder: embedder}
}

func (s *PostgresStore) Drop(ctx context.Context, name string) error {
	// Chunks go with the collection row via ON DELETE CASCADE; deleting a
	// collection that does not exist affects zero rows and is not an error.
	if _, err := s.pool.Exec(ctx, "DELETE FROM papermind_collections WHERE name = $1", name); err != nil {
		return fmt.Errorf("delete collection row: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, "INSERT INTO papermind_collections (name) VALUES ($1)", name); err != nil {
		return fmt.Errorf("insert collection row: %w", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, name string, units []document.TextUnit) (err error) {
	if s.embedder == nil {
		return fmt.Errorf("embedder is not configured")
	}

	vectors, err := s.embedder.Embed(ctx, embedInput(units))
	if err != nil {
		return fmt.Errorf("embed units: %w", err)
	}
	if len(vectors) != len(units) {
		return fmt.Errorf("embedding count mismatch: have %d units, %d vectors", len(units), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, unit := range units {
		if _, err = tx.Exec(ctx, `
			INSERT INTO papermind_chunks (collection, unit_id, page, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, name, unit.ID, unit.Page, unit.Text, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert unit %s: %w", unit.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *PostgresStore) Query(ctx context.Context, name, query string, k int) ([]document.TextUnit, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if k <= 0 {
		k = 3
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT unit_id, page, content
		FROM papermind_chunks
		WHERE collection = $1
		ORDER BY embedding <-> $2::vector
		LIMIT $3
	`, name, pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("query similar units: %w", err)
	}
	defer rows.Close()

	results := make([]document.TextUnit, 0, k)
	for rows.Next() {
		var unit document.TextUnit
		if scanErr := rows.Scan(&unit.ID, &unit.Page, &unit.Text); scanErr != nil {
			return nil, fmt.Errorf("scan similar unit: %w", scanErr)
		}
		results = append(results, unit)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

var _ Store = (*PostgresStore)(nil)
