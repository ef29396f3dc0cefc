// Package attribution renders provenance for generated content: which
// source URLs backed it and a human-readable citation list.
package attribution

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stanza-labs/refdata-cli/internal/model"
	"github.com/stanza-labs/refdata-cli/internal/store"
)

// SourceLookup resolves a URL to its document type and fetch time.
// *refdata.Manager satisfies it; a nil lookup leaves those fields unset.
type SourceLookup interface {
	SourceInfo(url string) (model.Source, bool)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithUsageStore persists every built context to the usage log.
func WithUsageStore(s store.Store) Option {
	return func(m *Manager) { m.store = s }
}

// Manager builds attributed contexts. Every Source in a result comes from
// the supplied URLs — it never attributes to a URL it was not told about,
// and never drops a supplied URL.
type Manager struct {
	lookup SourceLookup
	store  store.Store
}

// NewManager creates an attribution manager. lookup may be nil.
func NewManager(lookup SourceLookup, opts ...Option) *Manager {
	m := &Manager{lookup: lookup}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BuildContext wraps content with deduplicated Sources for the supplied
// URLs and a rendered citation list. Usage-log persistence is best effort;
// a store failure is logged, never surfaced.
func (m *Manager) BuildContext(ctx context.Context, content any, sourceURLs []string) *model.AttributedContext {
	sources := m.resolveSources(sourceURLs)

	ac := &model.AttributedContext{
		Content:         content,
		Sources:         sources,
		AttributionText: renderCitations(sources),
	}

	if m.store != nil && len(sources) > 0 {
		urls := make([]string, len(sources))
		for i, s := range sources {
			urls[i] = s.URL
		}
		if _, err := m.store.LogUsage(ctx, summarize(content), urls); err != nil {
			zap.L().Warn("usage log write failed", zap.Error(err))
		}
	}

	return ac
}

// resolveSources deduplicates by URL preserving first-seen order and fills
// document type and fetch time from the lookup when available.
func (m *Manager) resolveSources(sourceURLs []string) []model.Source {
	seen := make(map[string]bool, len(sourceURLs))
	var sources []model.Source
	for _, u := range sourceURLs {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		if m.lookup != nil {
			if src, ok := m.lookup.SourceInfo(u); ok {
				sources = append(sources, src)
				continue
			}
		}
		sources = append(sources, model.Source{URL: u})
	}
	return sources
}

// renderCitations formats a numbered citation list:
//
//	[1] https://example.org/genres (genres, fetched 2026-08-23)
func renderCitations(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Sources:\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] %s", i+1, s.URL)
		if s.DocumentType != "" && !s.FetchedAt.IsZero() {
			fmt.Fprintf(&b, " (%s, fetched %s)", s.DocumentType, s.FetchedAt.Format("2006-01-02"))
		} else if s.DocumentType != "" {
			fmt.Fprintf(&b, " (%s)", s.DocumentType)
		}
		if i < len(sources)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

const maxSummaryLen = 500

func summarize(content any) string {
	s := fmt.Sprintf("%v", content)
	if len(s) > maxSummaryLen {
		s = s[:maxSummaryLen]
	}
	return s
}
