package refdata

import (
	"time"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

// Config is the immutable acquisition configuration. Callers construct one
// and pass it to Initialize; a new Config replaces the old one wholesale on
// Reconfigure.
type Config struct {
	// Enabled turns live acquisition on. When false the manager serves the
	// embedded catalog only and never touches the network or disk.
	Enabled bool

	// LocalStoragePath is the cache root directory. Empty disables the
	// on-disk cache (allowed only when FallbackToHardcoded is true).
	LocalStoragePath string

	GenrePages   []string
	MetaTagPages []string
	TipPages     []string

	// RefreshInterval is the maximum age before a cached document is
	// considered stale and refetched.
	RefreshInterval time.Duration

	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// FallbackToHardcoded substitutes the embedded catalog for a document
	// type whose live acquisition failed.
	FallbackToHardcoded bool

	// UserAgent sent on every request. Optional.
	UserAgent string
}

// DefaultConfig returns the full default table. Callers start from it and
// override fields explicitly; boolean fields have no "omitted" state, so the
// defaults for Enabled and FallbackToHardcoded only apply when starting here.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		RefreshInterval:     24 * time.Hour,
		RequestTimeout:      30 * time.Second,
		MaxRetries:          3,
		RetryDelay:          time.Second,
		FallbackToHardcoded: true,
	}
}

// WithDefaults fills zero-valued numeric and duration fields from the
// default table. Boolean and string fields are kept as given.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = def.RefreshInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	return c
}

// Validate rejects self-contradictory configurations. Network, parse, and
// cache problems are runtime conditions, never validation failures.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.FallbackToHardcoded {
		return nil
	}
	if c.LocalStoragePath == "" {
		return &ConfigError{Reason: "enabled without local storage path and with fallback disabled"}
	}
	if len(c.GenrePages)+len(c.MetaTagPages)+len(c.TipPages) == 0 {
		return &ConfigError{Reason: "enabled without any source pages and with fallback disabled"}
	}
	return nil
}

// Pages returns the configured source URLs for a document type.
func (c Config) Pages(t model.DocumentType) []string {
	switch t {
	case model.DocGenres:
		return c.GenrePages
	case model.DocMetaTags:
		return c.MetaTagPages
	case model.DocTechniques:
		return c.TipPages
	}
	return nil
}
