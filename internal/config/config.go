// Package config loads runtime configuration from the environment and the
// category taxonomy from YAML, falling back to a built-in default set.
package config

import "os"

// Config carries the settings shared by the binaries. Values come from
// environment variables; flags in cmd/* may override individual fields.
type Config struct {
	// HTTP
	Port string

	// Profile store
	ProfileDBPath string

	// Category taxonomy file; empty means built-in defaults.
	CategoriesPath string

	// Vector index (Qdrant). An empty URL selects the in-memory index.
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Gemini models. The API key is read by the genai SDK itself
	// (GEMINI_API_KEY / GOOGLE_API_KEY).
	EmbeddingModel  string
	CompletionModel string

	// Notion export (optional).
	NotionToken    string
	NotionDatabase string
}

// FromEnv builds a Config from environment variables with defaults suitable
// for local development.
func FromEnv() Config {
	return Config{
		Port:             getenv("PORT", "8080"),
		ProfileDBPath:    getenv("PROFILE_DB", "finance-advisor.db"),
		CategoriesPath:   os.Getenv("CATEGORIES_PATH"),
		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: getenv("QDRANT_COLLECTION", "finance_advisor_transactions"),
		EmbeddingModel:   getenv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CompletionModel:  getenv("COMPLETION_MODEL", "gemini-2.0-flash"),
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionDatabase:   os.Getenv("NOTION_DATABASE_ID"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
