package session

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"ragstore/internal/config"
)

func sessionConfig() *config.Config {
	return &config.Config{
		UserID:           "alice",
		SessionID:        "s1",
		KVStorage:        "PGKVStorage",
		VectorStorage:    "PGVectorStorage",
		GraphStorage:     "PGGraphStorage",
		DocStatusStorage: "PGDocStatusStorage",
	}
}

func newConfigurator(cfg *config.Config) *Configurator {
	return NewConfigurator(cfg, slog.New(slog.DiscardHandler))
}

func TestApply(t *testing.T) {
	t.Setenv(EnvPostgresDatabase, "ragdb")

	derived, applied := newConfigurator(sessionConfig()).Apply()
	if !applied {
		t.Fatal("Apply() = false, want true")
	}
	if derived != "alice_s1_ragdb" {
		t.Errorf("derived = %q, want alice_s1_ragdb", derived)
	}
	if got := os.Getenv(EnvPostgresDatabase); got != "alice_s1_ragdb" {
		t.Errorf("env = %q, want alice_s1_ragdb", got)
	}
}

func TestApplyBackendMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"kv storage", func(c *config.Config) { c.KVStorage = "JsonKVStorage" }},
		{"vector storage", func(c *config.Config) { c.VectorStorage = "QdrantVectorStorage" }},
		{"graph storage", func(c *config.Config) { c.GraphStorage = "Neo4JStorage" }},
		{"doc status storage", func(c *config.Config) { c.DocStatusStorage = "JsonDocStatusStorage" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPostgresDatabase, "ragdb")

			cfg := sessionConfig()
			tt.mutate(cfg)

			if _, applied := newConfigurator(cfg).Apply(); applied {
				t.Error("Apply() = true with mismatched backend")
			}
			// No partial effect: the environment is left unchanged
			if got := os.Getenv(EnvPostgresDatabase); got != "ragdb" {
				t.Errorf("env = %q, want ragdb", got)
			}
		})
	}
}

func TestApplyMissingBaseDatabase(t *testing.T) {
	t.Setenv(EnvPostgresDatabase, "")
	os.Unsetenv(EnvPostgresDatabase)

	if _, applied := newConfigurator(sessionConfig()).Apply(); applied {
		t.Error("Apply() = true without POSTGRES_DATABASE")
	}
}

func TestApplyDisabled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"no user id", func(c *config.Config) { c.UserID = "" }},
		{"no session id", func(c *config.Config) { c.SessionID = "" }},
		{"neither", func(c *config.Config) { c.UserID = ""; c.SessionID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPostgresDatabase, "ragdb")

			cfg := sessionConfig()
			tt.mutate(cfg)

			conf := newConfigurator(cfg)
			if conf.Enabled() {
				t.Error("Enabled() = true")
			}
			if _, applied := conf.Apply(); applied {
				t.Error("Apply() = true without both tenant identifiers")
			}
			if got := os.Getenv(EnvPostgresDatabase); got != "ragdb" {
				t.Errorf("env = %q, want ragdb", got)
			}
		})
	}
}

func TestScopedRestores(t *testing.T) {
	t.Setenv(EnvPostgresDatabase, "ragdb")
	conf := newConfigurator(sessionConfig())

	var inside string
	err := conf.Scoped(func() error {
		inside = os.Getenv(EnvPostgresDatabase)
		return nil
	})
	if err != nil {
		t.Fatalf("Scoped: %v", err)
	}

	if inside != "alice_s1_ragdb" {
		t.Errorf("inside scope env = %q, want alice_s1_ragdb", inside)
	}
	if got := os.Getenv(EnvPostgresDatabase); got != "ragdb" {
		t.Errorf("after scope env = %q, want ragdb", got)
	}
}

func TestScopedPropagatesError(t *testing.T) {
	t.Setenv(EnvPostgresDatabase, "ragdb")
	conf := newConfigurator(sessionConfig())

	sentinel := errors.New("construction failed")
	if err := conf.Scoped(func() error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
	if got := os.Getenv(EnvPostgresDatabase); got != "ragdb" {
		t.Errorf("env not restored on error: %q", got)
	}
}
