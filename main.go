package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/VijayarajParamasivam/PaperMind/api"
	"github.com/VijayarajParamasivam/PaperMind/config"
	"github.com/VijayarajParamasivam/PaperMind/counter"
	"github.com/VijayarajParamasivam/PaperMind/database"
	"github.com/VijayarajParamasivam/PaperMind/embeddings"
	"github.com/VijayarajParamasivam/PaperMind/extractor"
	"github.com/VijayarajParamasivam/PaperMind/index"
	"github.com/VijayarajParamasivam/PaperMind/llm"
	"github.com/VijayarajParamasivam/PaperMind/session"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.Addr, "address to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, counterStore, cleanup, err := buildSession(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("session setup: %v", err)
	}
	defer cleanup()

	server := api.New(sess, counterStore, cfg.TempDir, logger)

	httpServer := &http.Server{Addr: *addr, Handler: server.Handler()}
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	logger.Printf("papermind listening on %s (index: %s, llm: %s/%s)", *addr, cfg.Index.Provider, cfg.LLM.Provider, cfg.LLM.Model)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("serve: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	file := flags.String("file", "", "path to the PDF to question")
	question := flags.String("question", "", "question to ask about the document")
	key := flags.String("key", "", "API key for the generation endpoint (defaults to the provider's env key)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if *file == "" || *question == "" {
		logger.Fatalf("ask requires --file and --question")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, _, cleanup, err := buildSession(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("session setup: %v", err)
	}
	defer cleanup()

	// The session owns (and deletes) its document file, so work on a copy.
	tempPath, err := copyToTemp(cfg.TempDir, *file)
	if err != nil {
		logger.Fatalf("stage document: %v", err)
	}

	credential := *key
	if credential == "" {
		credential = defaultCredential(cfg)
	}

	if err := sess.Submit(credential, tempPath); err != nil {
		logger.Fatalf("submit: %v", err)
	}
	if err := sess.Process(ctx); err != nil {
		logger.Fatalf("process: %v", err)
	}

	answer, err := sess.Ask(ctx, *question)
	if err != nil {
		logger.Printf("ask: %v", err)
	}
	fmt.Println(answer)

	sess.Clear(ctx)
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, _, cleanup, err := buildSession(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("session setup: %v", err)
	}
	defer cleanup()

	sess.Clear(ctx)

	if err := os.RemoveAll(cfg.TempDir); err != nil {
		logger.Printf("remove temp dir: %v", err)
	}
	logger.Printf("collection %q dropped and temp files removed", cfg.Index.Collection)
}

// buildSession wires the collaborators for one live session: the embedder,
// the vector store behind the index builder, the generation model factory and
// the global counter. With the postgres index the counter shares the pool;
// with qdrant there is no durable store attached, so the counter is held in
// memory.
func buildSession(ctx context.Context, cfg config.Config, logger *log.Logger) (*session.Session, counter.Store, func(), error) {
	embedder, err := embeddings.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embedder setup: %w", err)
	}

	cleanup := func() {}
	var counterStore counter.Store = counter.NewMemoryStore()
	var store index.Store

	switch cfg.Index.Provider {
	case config.IndexPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres connection: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		cleanup = pool.Close
		counterStore = counter.NewPostgresStore(pool)
		store = index.NewPostgresStore(pool, embedder)
	default:
		store, err = index.NewStore(cfg, nil, embedder)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("index setup: %w", err)
		}
		logger.Printf("global counter kept in memory: index provider %s has no durable store attached", cfg.Index.Provider)
	}

	builder := index.NewBuilder(store, logger)

	newModel := func(ctx context.Context, credential string) (llm.Client, error) {
		return llm.New(ctx, cfg, credential)
	}

	sess := session.New(extractor.Extract, builder, newModel, counterStore, logger, session.Options{
		Collection:    cfg.Index.Collection,
		RetrievalK:    cfg.RetrievalK,
		HistoryWindow: cfg.HistoryWindow,
	})

	return sess, counterStore, cleanup, nil
}

func copyToTemp(tempDir, path string) (string, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(tempDir, filepath.Base(path))
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("copy document: %w", err)
	}

	return dstPath, nil
}

func defaultCredential(cfg config.Config) string {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return cfg.GeminiAPIKey
	case config.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	case config.ProviderOllama:
		// Ollama needs no key; the workflow still requires a non-empty
		// credential on submit.
		return "local"
	default:
		return ""
	}
}

func printUsage() {
	fmt.Println("Usage: papermind <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP server with the chat UI")
	fmt.Println("  ask      Process a PDF and answer a single question")
	fmt.Println("  clear    Drop the active collection and remove temp files")
}
