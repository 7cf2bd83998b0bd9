package config

import (
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	TablePrefix string
	CORSOrigins string
	Storage     string // postgres | memory

	// Resource management
	ResourceManagement bool // master switch for the resource store
	Parser             string
	ParserOutputDir    string
	ParseMethod        string

	// Multi-tenancy identifiers (both empty = single-tenant)
	UserID    string
	SessionID string

	// Storage-role selectors checked by the session configurator
	KVStorage        string
	VectorStorage    string
	GraphStorage     string
	DocStatusStorage string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		Storage:     getEnv("STORAGE", "postgres"),

		ResourceManagement: getEnv("RESOURCE_MANAGEMENT", "false") == "true",
		Parser:             getEnv("PARSER", "mineru"),
		ParserOutputDir:    getEnv("PARSER_OUTPUT_DIR", "./output"),
		ParseMethod:        getEnv("PARSE_METHOD", "auto"),

		UserID:    getEnv("USER_ID", ""),
		SessionID: getEnv("SESSION_ID", ""),

		KVStorage:        getEnv("KV_STORAGE", "PGKVStorage"),
		VectorStorage:    getEnv("VECTOR_STORAGE", "PGVectorStorage"),
		GraphStorage:     getEnv("GRAPH_STORAGE", "PGGraphStorage"),
		DocStatusStorage: getEnv("DOC_STATUS_STORAGE", "PGDocStatusStorage"),
	}
}

// Validate checks option values that have a closed set of legal choices
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, is.Digit),
		validation.Field(&c.Storage, validation.In("postgres", "memory")),
		validation.Field(&c.Parser, validation.Required),
		validation.Field(&c.ParseMethod, validation.In("auto", "txt", "ocr", "vlm")),
	)
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
