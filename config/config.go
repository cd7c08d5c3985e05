package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	IndexPostgres = "postgres"
	IndexQdrant   = "qdrant"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type IndexConfig struct {
	Provider   string
	Collection string
}

type Config struct {
	Addr    string
	TempDir string

	PostgresDSN  string
	QdrantURL    string
	QdrantAPIKey string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string

	Embeddings EmbeddingsConfig
	LLM        LLMConfig
	Index      IndexConfig

	RetrievalK    int
	HistoryWindow int
}

func Load() Config {
	// Best effort: running without a .env file is the normal case.
	_ = godotenv.Load()

	return Config{
		Addr:    getEnv("PAPERMIND_ADDR", ":8080"),
		TempDir: getEnv("PAPERMIND_TEMP_DIR", "./temp"),

		PostgresDSN:  getEnv("POSTGRES_DSN", "postgres://localhost:5432/papermind?sslmode=disable"),
		QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderGemini),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 768),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderGemini),
			Model:    getEnv("LLM_MODEL", "gemini-1.5-flash"),
		},
		Index: IndexConfig{
			Provider:   getEnv("INDEX_PROVIDER", IndexPostgres),
			Collection: getEnv("INDEX_COLLECTION", "pdf_collection"),
		},

		RetrievalK:    getEnvInt("RETRIEVAL_K", 3),
		HistoryWindow: getEnvInt("HISTORY_WINDOW", 6),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
