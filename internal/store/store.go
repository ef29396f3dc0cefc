// Package store persists the usage log: which source URLs backed which
// generated content, and when.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// UsageRecord is one persisted attribution event.
type UsageRecord struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	SourceURLs []string  `json:"source_urls"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the usage-log persistence interface.
type Store interface {
	Migrate(ctx context.Context) error
	LogUsage(ctx context.Context, content string, sourceURLs []string) (*UsageRecord, error)
	ListUsage(ctx context.Context, limit int) ([]UsageRecord, error)
	Close() error
}

// Config selects and configures the backend driver.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// NewStore creates a Store for the configured driver.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
