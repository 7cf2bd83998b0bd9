// Package session scopes the backing Postgres database per
// (user_id, session_id) pair by rewriting the database name the storage
// layer reads from the environment.
//
// The rewrite is process-wide mutable state: only one session may be
// active per process, and Apply must run before any storage handle is
// constructed. Concurrent sessions in one process require external
// serialization (one process per session, or Scoped held across the
// handle-construction window).
package session

import (
	"fmt"
	"log/slog"
	"os"

	"ragstore/internal/config"
)

// EnvPostgresDatabase is the environment variable holding the base
// database name; Apply overwrites it with the tenant-scoped name.
const EnvPostgresDatabase = "POSTGRES_DATABASE"

// Approved storage backends. Tenant scoping works by renaming the Postgres
// database, so every storage role must resolve to the Postgres
// implementation or the rewrite would only partially take effect.
const (
	approvedKVStorage        = "PGKVStorage"
	approvedVectorStorage    = "PGVectorStorage"
	approvedGraphStorage     = "PGGraphStorage"
	approvedDocStatusStorage = "PGDocStatusStorage"
)

// Configurator derives a per-tenant database name from configuration
type Configurator struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewConfigurator(cfg *config.Config, logger *slog.Logger) *Configurator {
	return &Configurator{
		cfg:    cfg,
		logger: logger,
	}
}

// Enabled reports whether multi-session management is on: both a user and
// a session identifier must be configured.
func (c *Configurator) Enabled() bool {
	if c.cfg.UserID == "" || c.cfg.SessionID == "" {
		return false
	}
	c.logger.Info("multi-session management enabled",
		"user_id", c.cfg.UserID,
		"session_id", c.cfg.SessionID,
	)
	return true
}

// Apply rewrites the environment-held database name to
// {user_id}_{session_id}_{base}. It returns the derived name and true on
// success so callers can thread the name explicitly instead of reading
// the environment again. Every precondition failure logs a warning and
// returns ("", false) with no effect.
func (c *Configurator) Apply() (string, bool) {
	if !c.Enabled() {
		c.logger.Warn("multi-session management is not enabled",
			"reason", "user_id and session_id must both be set")
		return "", false
	}

	if !c.checkBackends() {
		return "", false
	}

	base := os.Getenv(EnvPostgresDatabase)
	if base == "" {
		c.logger.Warn("session scoping requires POSTGRES_DATABASE to be set")
		return "", false
	}

	derived := fmt.Sprintf("%s_%s_%s", c.cfg.UserID, c.cfg.SessionID, base)
	if err := os.Setenv(EnvPostgresDatabase, derived); err != nil {
		c.logger.Warn("failed to set POSTGRES_DATABASE", "error", err)
		return "", false
	}

	c.logger.Info("database scoped to session", "database", derived)
	return derived, true
}

// Scoped applies the tenant rewrite for the duration of fn and restores
// the previous environment value on return, bounding the mutation to the
// storage-handle construction window. fn runs either way; when the
// preconditions fail it runs against the unscoped database.
func (c *Configurator) Scoped(fn func() error) error {
	prev, had := os.LookupEnv(EnvPostgresDatabase)

	if _, applied := c.Apply(); applied {
		defer func() {
			if had {
				os.Setenv(EnvPostgresDatabase, prev)
			} else {
				os.Unsetenv(EnvPostgresDatabase)
			}
		}()
	}

	return fn()
}

// checkBackends verifies every storage role names its approved Postgres
// implementation; the first mismatch warns with the offending role and
// aborts the reconfiguration.
func (c *Configurator) checkBackends() bool {
	checks := []struct {
		role     string
		got      string
		approved string
	}{
		{"kv_storage", c.cfg.KVStorage, approvedKVStorage},
		{"vector_storage", c.cfg.VectorStorage, approvedVectorStorage},
		{"graph_storage", c.cfg.GraphStorage, approvedGraphStorage},
		{"doc_status_storage", c.cfg.DocStatusStorage, approvedDocStatusStorage},
	}

	for _, check := range checks {
		if check.got != check.approved {
			c.logger.Warn("session scoping requires an approved storage backend",
				"role", check.role,
				"configured", check.got,
				"required", check.approved,
			)
			return false
		}
	}
	return true
}
