package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionsAnswered is the row holding the global count of successfully
// answered questions across all sessions.
const QuestionsAnswered = "questions_answered"

// Store persists named integer counters. Reading an absent row yields 0 and
// the first write inserts it. Updates are read-then-write on purpose: the
// counter is an approximation and concurrent sessions may lose increments.
type Store interface {
	Read(ctx context.Context, id string) (int64, error)
	Write(ctx context.Context, id string, value int64) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Read(ctx context.Context, id string) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx, "SELECT value FROM papermind_stats WHERE id = $1", id).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read counter %s: %w", id, err)
	}
	return value, nil
}

func (s *PostgresStore) Write(ctx context.Context, id string, value int64) error {
	tag, err := s.pool.Exec(ctx, "UPDATE papermind_stats SET value = $2 WHERE id = $1", id, value)
	if err != nil {
		return fmt.Errorf("update counter %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := s.pool.Exec(ctx, "INSERT INTO papermind_stats (id, value) VALUES ($1, $2)", id, value); err != nil {
		return fmt.Errorf("insert counter %s: %w", id, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)

// MemoryStore keeps counters in process memory. Used by the one-shot CLI and
// in tests, where durability across restarts does not matter.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (s *MemoryStore) Read(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[id], nil
}

func (s *MemoryStore) Write(_ context.Context, id string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = value
	return nil
}

var _ Store = (*MemoryStore)(nil)
