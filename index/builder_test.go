package index

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/VijayarajParamasivam/PaperMind/document"
)

type stubStore struct {
	calls []string

	dropErr   error
	createErr error
	addErr    error
	queryErr  error

	added   map[string][]document.TextUnit
	results []document.TextUnit
	lastK   int
}

func newStubStore() *stubStore {
	return &stubStore{added: make(map[string][]document.TextUnit)}
}

func (s *stubStore) Drop(_ context.Context, name string) error {
	s.calls = append(s.calls, "drop")
	if s.dropErr != nil {
		return s.dropErr
	}
	delete(s.added, name)
	return nil
}

func (s *stubStore) Create(_ context.Context, name string) error {
	s.calls = append(s.calls, "create")
	if s.createErr != nil {
		return s.createErr
	}
	s.added[name] = nil
	return nil
}

func (s *stubStore) Add(_ context.Context, name string, units []document.TextUnit) error {
	s.calls = append(s.calls, "add")
	if s.addErr != nil {
		return s.addErr
	}
	s.added[name] = append(s.added[name], units...)
	return nil
}

func (s *stubStore) Query(_ context.Context, name, query string, k int) ([]document.TextUnit, error) {
	s.calls = append(s.calls, "query")
	s.lastK = k
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.results, nil
}

var _ Store = (*stubStore)(nil)

func testUnits() []document.TextUnit {
	return []document.TextUnit{
		{ID: "id1", Page: 1, Text: "Alpha"},
		{ID: "id2", Page: 2, Text: "Beta"},
		{ID: "id3", Page: 3, Text: "Gamma"},
	}
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRebuildDropsBeforeCreateBeforeAdd(t *testing.T) {
	store := newStubStore()
	builder := NewBuilder(store, testLogger())

	if err := builder.Rebuild(context.Background(), "pdf_collection", testUnits()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"drop", "create", "add"}
	if len(store.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, store.calls)
	}
	for i, call := range want {
		if store.calls[i] != call {
			t.Fatalf("expected calls %v, got %v", want, store.calls)
		}
	}

	if got := len(store.added["pdf_collection"]); got != 3 {
		t.Fatalf("expected 3 units loaded, got %d", got)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	store := newStubStore()
	builder := NewBuilder(store, testLogger())

	for i := 0; i < 2; i++ {
		if err := builder.Rebuild(context.Background(), "pdf_collection", testUnits()); err != nil {
			t.Fatalf("rebuild %d: unexpected error: %v", i+1, err)
		}
	}

	if got := len(store.added["pdf_collection"]); got != 3 {
		t.Fatalf("rebuilding twice must not accumulate units: got %d", got)
	}
}

func TestRebuildFailsAsAWholeOnInsertError(t *testing.T) {
	store := newStubStore()
	store.addErr = errors.New("insert exploded")
	builder := NewBuilder(store, testLogger())

	if err := builder.Rebuild(context.Background(), "pdf_collection", testUnits()); err == nil {
		t.Fatal("expected rebuild to fail when the load fails")
	}
}

func TestRebuildEmptyDocumentCreatesEmptyCollection(t *testing.T) {
	store := newStubStore()
	builder := NewBuilder(store, testLogger())

	if err := builder.Rebuild(context.Background(), "pdf_collection", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, call := range store.calls {
		if call == "add" {
			t.Fatal("no load call expected for an empty document")
		}
	}
}

func TestRetrievePassesAdvisoryLimit(t *testing.T) {
	store := newStubStore()
	store.results = testUnits()[:2]
	builder := NewBuilder(store, testLogger())

	units, err := builder.Retrieve(context.Background(), "pdf_collection", "what is on page 2?", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastK != 3 {
		t.Fatalf("expected k=3 passed through, got %d", store.lastK)
	}
	if len(units) != 2 {
		t.Fatalf("fewer than k results must be allowed, got %d", len(units))
	}
}
