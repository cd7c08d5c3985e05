package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.LLM.Provider != ProviderGemini {
		t.Fatalf("expected gemini as the default llm provider, got %s", cfg.LLM.Provider)
	}
	if cfg.Index.Provider != IndexPostgres {
		t.Fatalf("expected postgres as the default index provider, got %s", cfg.Index.Provider)
	}
	if cfg.Index.Collection != "pdf_collection" {
		t.Fatalf("unexpected default collection: %s", cfg.Index.Collection)
	}
	if cfg.RetrievalK != 3 {
		t.Fatalf("expected retrieval k of 3, got %d", cfg.RetrievalK)
	}
	if cfg.HistoryWindow != 6 {
		t.Fatalf("expected history window of 6, got %d", cfg.HistoryWindow)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderOllama)
	t.Setenv("INDEX_PROVIDER", IndexQdrant)
	t.Setenv("RETRIEVAL_K", "5")
	t.Setenv("EMBEDDINGS_DIMENSION", "1536")

	cfg := Load()

	if cfg.LLM.Provider != ProviderOllama {
		t.Fatalf("env override ignored for llm provider: %s", cfg.LLM.Provider)
	}
	if cfg.Index.Provider != IndexQdrant {
		t.Fatalf("env override ignored for index provider: %s", cfg.Index.Provider)
	}
	if cfg.RetrievalK != 5 {
		t.Fatalf("env override ignored for retrieval k: %d", cfg.RetrievalK)
	}
	if cfg.Embeddings.Dimension != 1536 {
		t.Fatalf("env override ignored for dimension: %d", cfg.Embeddings.Dimension)
	}
}

func TestLoadIgnoresUnparseableInt(t *testing.T) {
	t.Setenv("RETRIEVAL_K", "lots")

	cfg := Load()
	if cfg.RetrievalK != 3 {
		t.Fatalf("unparseable int must fall back to the default, got %d", cfg.RetrievalK)
	}
}
