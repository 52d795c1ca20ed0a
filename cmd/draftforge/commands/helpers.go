package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// getEnvOrDefault returns the value of the environment variable, or def when
// it is unset or empty.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the integer value of the environment variable, or def
// when it is unset or not a valid integer.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// openStore opens the knowledge store selected by DRAFTFORGE_STORE:
//
//	sqlite  — documents and chunk records in one local SQLite file (default)
//	qdrant  — chunk records in Qdrant, documents in local SQLite
//	memory  — everything in process memory, lost on exit
//
// It returns the combined store, the raw vector backend (for health probes),
// and a cleanup function that releases both.
func openStore(ctx context.Context, log *slog.Logger) (knowledge.Store, knowledge.VectorStore, func(), error) {
	backend := getEnvOrDefault("DRAFTFORGE_STORE", "sqlite")

	switch backend {
	case "memory":
		store := knowledge.NewMemoryStore()
		return store, store, func() {}, nil

	case "sqlite":
		path, err := sqlitePath()
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := knowledge.OpenSQLite(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("store: open sqlite at %s: %w", path, err)
		}
		log.Info("knowledge store opened", slog.String("backend", "sqlite"), slog.String("path", path))
		return store, store, func() { _ = store.Close() }, nil

	case "qdrant":
		// Chunk records live in Qdrant; document registrations stay local.
		path, err := sqlitePath()
		if err != nil {
			return nil, nil, nil, err
		}
		docs, err := knowledge.OpenSQLite(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("store: open sqlite at %s: %w", path, err)
		}

		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		vectors, err := knowledge.NewQdrantStore(ctx, &knowledge.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "draftforge-chunks"),
			VectorSize: uint64(getEnvInt("QDRANT_VECTOR_SIZE", 768)), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			_ = docs.Close()
			return nil, nil, nil, fmt.Errorf("store: connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("knowledge store opened",
			slog.String("backend", "qdrant"),
			slog.String("host", host),
			slog.Int("port", port),
		)
		store := knowledge.NewSplitStore(vectors, docs)
		return store, vectors, func() { _ = store.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("store: unknown DRAFTFORGE_STORE %q (valid: sqlite, qdrant, memory)", backend)
	}
}

// sqlitePath resolves the SQLite knowledge database path. DRAFTFORGE_DB
// overrides the default (~/.draftforge/knowledge.db).
func sqlitePath() (string, error) {
	if path := os.Getenv("DRAFTFORGE_DB"); path != "" {
		return path, nil
	}
	path, err := knowledge.DefaultDBPath()
	if err != nil {
		return "", fmt.Errorf("store: resolve default DB path: %w", err)
	}
	return path, nil
}
