// Package refdata acquires reference documentation (genres, prompt
// meta-tags, production techniques), parses it into typed records, caches
// raw documents locally, and degrades to an embedded catalog when any part
// of the pipeline fails. Readers always observe a whole snapshot.
package refdata

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stanza-labs/refdata-cli/internal/cache"
	"github.com/stanza-labs/refdata-cli/internal/fetcher"
	"github.com/stanza-labs/refdata-cli/internal/model"
	"github.com/stanza-labs/refdata-cli/internal/parser"
)

// FetcherFactory builds a Fetcher for a given configuration. Reconfiguring
// rebuilds the fetcher so new timeout and retry settings take effect.
type FetcherFactory func(Config) fetcher.Fetcher

// Option customizes a Manager.
type Option func(*Manager)

// WithFetcherFactory overrides how the manager builds its HTTP fetcher.
func WithFetcherFactory(f FetcherFactory) Option {
	return func(m *Manager) { m.fetcherFactory = f }
}

// WithAutoRefresh enables a background pass that re-runs acquisition every
// RefreshInterval. Reads stay non-blocking throughout.
func WithAutoRefresh() Option {
	return func(m *Manager) { m.autoRefresh = true }
}

// Manager owns the fetch/parse/cache/fallback lifecycle and exposes
// non-blocking reads over an atomically swapped snapshot.
type Manager struct {
	fetcherFactory FetcherFactory
	autoRefresh    bool

	// mu guards cfg, fetch, lc, and the refresh goroutine handles.
	mu     sync.Mutex
	cfg    Config
	fetch  fetcher.Fetcher
	lc     *cache.LocalCache
	stopCh chan struct{}
	doneCh chan struct{}

	snap   atomic.Pointer[model.Snapshot]
	gen    atomic.Uint64
	busy   atomic.Bool
	closed atomic.Bool
}

// NewManager creates an uninitialized Manager. Call Initialize before reads.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		fetcherFactory: func(cfg Config) fetcher.Fetcher {
			return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:  cfg.UserAgent,
				Timeout:    cfg.RequestTimeout,
				MaxRetries: cfg.MaxRetries,
				RetryDelay: cfg.RetryDelay,
			})
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize runs one full acquisition pass under cfg and installs the
// resulting snapshot. It returns an error only for a structurally invalid
// Config, a concurrent pass already in flight (ErrBusy), or a cleaned-up
// manager; network, parse, and cache failures degrade to fallback records.
func (m *Manager) Initialize(ctx context.Context, cfg Config) error {
	if m.closed.Load() {
		return ErrClosed
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !m.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.busy.Store(false)

	var lc *cache.LocalCache
	if cfg.Enabled && cfg.LocalStoragePath != "" {
		c, err := cache.New(cfg.LocalStoragePath)
		if err != nil {
			// Cache failures never surface; acquisition proceeds uncached.
			zap.L().Warn("local cache unavailable, proceeding without it",
				zap.String("path", cfg.LocalStoragePath),
				zap.Error(err),
			)
		} else {
			lc = c
		}
	}

	f := m.fetcherFactory(cfg)
	snap := m.acquire(ctx, cfg, f, lc)

	m.mu.Lock()
	m.cfg = cfg
	m.fetch = f
	m.lc = lc
	prevDone := m.signalRefreshStopLocked()
	m.mu.Unlock()
	if prevDone != nil {
		<-prevDone
	}

	m.install(snap)

	m.mu.Lock()
	m.startRefreshLocked(cfg)
	m.mu.Unlock()

	return nil
}

// Reconfigure replaces the configuration wholesale and rebuilds the
// snapshot. The previous snapshot stays fully readable until the new one is
// installed; a concurrent Initialize/Reconfigure is rejected with ErrBusy.
func (m *Manager) Reconfigure(ctx context.Context, cfg Config) error {
	return m.Initialize(ctx, cfg)
}

// Cleanup stops the background refresh and releases the snapshot. All
// subsequent calls return ErrClosed.
func (m *Manager) Cleanup() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	m.mu.Lock()
	done := m.signalRefreshStopLocked()
	m.mu.Unlock()
	// Wait without holding mu: an in-flight tick needs mu to read its
	// working set before it can observe the stop signal and exit.
	if done != nil {
		<-done
	}
	m.snap.Store(nil)
	return nil
}

// install stamps the snapshot with the next generation and publishes it.
func (m *Manager) install(snap *model.Snapshot) {
	snap.Generation = m.gen.Add(1)
	m.snap.Store(snap)
	zap.L().Info("snapshot installed",
		zap.Uint64("generation", snap.Generation),
		zap.Int("genres", len(snap.Genres)),
		zap.Int("meta_tags", len(snap.MetaTags)),
		zap.Int("techniques", len(snap.Techniques)),
	)
}

// Snapshot returns the current whole snapshot.
func (m *Manager) Snapshot() (*model.Snapshot, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	s := m.snap.Load()
	if s == nil {
		return nil, ErrNotInitialized
	}
	return s, nil
}

// Genres returns the current genre records. Non-blocking.
func (m *Manager) Genres() ([]model.GenreRecord, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.Genres, nil
}

// MetaTags returns the current meta-tag records. Non-blocking.
func (m *Manager) MetaTags() ([]model.MetaTagRecord, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.MetaTags, nil
}

// Techniques returns the current technique records. Non-blocking.
func (m *Manager) Techniques() ([]model.TechniqueRecord, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.Techniques, nil
}

// SourceURLs returns the distinct live source URLs in the current snapshot
// for the given scope: "genres", "meta_tags", "techniques", or "all". The
// embedded-default sentinel is never included.
func (m *Manager) SourceURLs(scope string) ([]string, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}

	var types []model.DocumentType
	if scope == "all" {
		types = model.AllDocumentTypes()
	} else {
		t := model.DocumentType(scope)
		if !t.Valid() {
			return nil, eris.Errorf("refdata: unknown scope %q", scope)
		}
		types = []model.DocumentType{t}
	}

	seen := make(map[string]bool)
	var urls []string
	for _, t := range types {
		for _, u := range s.SourceURLs(t) {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	sort.Strings(urls)
	return urls, nil
}

// SourceInfo resolves a URL against the current snapshot for attribution:
// which document type it backs and when the snapshot was fetched.
func (m *Manager) SourceInfo(url string) (model.Source, bool) {
	s, err := m.Snapshot()
	if err != nil {
		return model.Source{}, false
	}
	for _, t := range model.AllDocumentTypes() {
		for _, u := range s.SourceURLs(t) {
			if u == url {
				return model.Source{URL: url, DocumentType: t, FetchedAt: s.FetchedAt}, true
			}
		}
	}
	return model.Source{}, false
}

// acquire runs one full pass and returns the new snapshot. Document types
// proceed in parallel and independently; each resolves to live records or
// whole-type fallback.
func (m *Manager) acquire(ctx context.Context, cfg Config, f fetcher.Fetcher, lc *cache.LocalCache) *model.Snapshot {
	snap := &model.Snapshot{FetchedAt: time.Now().UTC()}

	if !cfg.Enabled {
		snap.Genres = FallbackGenres()
		snap.MetaTags = FallbackMetaTags()
		snap.Techniques = FallbackTechniques()
		return snap
	}

	var g errgroup.Group
	for _, t := range model.AllDocumentTypes() {
		g.Go(func() error {
			res := m.acquireType(ctx, cfg, f, lc, t)
			switch t {
			case model.DocGenres:
				snap.Genres = res.Genres
			case model.DocMetaTags:
				snap.MetaTags = res.MetaTags
			case model.DocTechniques:
				snap.Techniques = res.Techniques
			}
			return nil
		})
	}
	_ = g.Wait()

	return snap
}

// acquireType fetches and parses every configured URL for one document type
// concurrently. Any per-URL failure triggers whole-type fallback so a type
// is never a silent half-mix of live and default records.
func (m *Manager) acquireType(ctx context.Context, cfg Config, f fetcher.Fetcher, lc *cache.LocalCache, t model.DocumentType) parser.Result {
	pages := cfg.Pages(t)
	if len(pages) == 0 {
		return m.typeFallback(cfg, t, "no source pages configured")
	}

	results := make([]parser.Result, len(pages))
	failed := make([]bool, len(pages))

	var g errgroup.Group
	for i, url := range pages {
		g.Go(func() error {
			res, err := m.acquireURL(ctx, cfg, f, lc, t, url)
			if err != nil {
				failed[i] = true
				zap.L().Warn("source acquisition failed",
					zap.String("type", string(t)),
					zap.String("url", url),
					zap.Error(err),
				)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var anyFailed, anyOK bool
	for i := range pages {
		if failed[i] {
			anyFailed = true
		} else {
			anyOK = true
		}
	}

	if anyFailed {
		if cfg.FallbackToHardcoded {
			return m.typeFallback(cfg, t, "one or more sources failed")
		}
		if !anyOK {
			zap.L().Error("all sources failed with fallback disabled; type will be empty",
				zap.String("type", string(t)),
			)
			return parser.Result{}
		}
		// Fallback disabled: serve whatever live data survived.
		zap.L().Warn("partial live data with fallback disabled",
			zap.String("type", string(t)),
		)
	}

	return mergeResults(t, results)
}

func (m *Manager) typeFallback(cfg Config, t model.DocumentType, reason string) parser.Result {
	if !cfg.FallbackToHardcoded {
		return parser.Result{}
	}
	zap.L().Info("using embedded fallback records",
		zap.String("type", string(t)),
		zap.String("reason", reason),
	)
	switch t {
	case model.DocGenres:
		return parser.Result{Genres: FallbackGenres()}
	case model.DocMetaTags:
		return parser.Result{MetaTags: FallbackMetaTags()}
	default:
		return parser.Result{Techniques: FallbackTechniques()}
	}
}

// acquireURL resolves one source URL to parsed records: a still-fresh cache
// entry wins, then a (conditionally revalidated) fetch, then a stale cache
// entry as a last resort for transient outages.
func (m *Manager) acquireURL(ctx context.Context, cfg Config, f fetcher.Fetcher, lc *cache.LocalCache, t model.DocumentType, url string) (parser.Result, error) {
	now := time.Now().UTC()

	var entry *cache.Entry
	if lc != nil {
		e, err := lc.Get(t, url)
		if err != nil {
			zap.L().Warn("cache read failed",
				zap.String("url", url),
				zap.Error(err),
			)
		} else {
			entry = e
		}
	}

	if entry.Fresh(cfg.RefreshInterval, now) {
		if res, err := parseNonEmpty(t, url, entry.Raw); err == nil {
			return res, nil
		}
		// Fresh but unparsable: refetch below.
	}

	doc, err := m.fetchURL(ctx, f, url, entry, now)
	if err != nil {
		// Transient outage: stale cached content is better than fallback.
		if entry != nil {
			if res, perr := parseNonEmpty(t, url, entry.Raw); perr == nil {
				zap.L().Info("serving stale cached document after fetch failure",
					zap.String("url", url),
				)
				return res, nil
			}
		}
		return parser.Result{}, &acquireError{Kind: FailureNetwork, URL: url, Err: err}
	}

	res, err := parseNonEmpty(t, url, doc.Body)
	if err != nil {
		return parser.Result{}, &acquireError{Kind: FailureParse, URL: url, Err: err}
	}

	if lc != nil {
		putErr := lc.Put(t, cache.Entry{
			URL:       url,
			FetchedAt: doc.FetchedAt,
			ETag:      doc.ETag,
			Raw:       doc.Body,
		})
		if putErr != nil {
			zap.L().Warn("cache write failed",
				zap.String("url", url),
				zap.Error(putErr),
			)
		}
	}

	return res, nil
}

// fetchURL performs the GET, revalidating with the cached ETag when one is
// available. A 304 refreshes the entry's timestamp and reuses its body.
func (m *Manager) fetchURL(ctx context.Context, f fetcher.Fetcher, url string, entry *cache.Entry, now time.Time) (*fetcher.Document, error) {
	if entry != nil && entry.ETag != "" {
		doc, changed, err := f.FetchIfChanged(ctx, url, entry.ETag)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &fetcher.Document{
				URL:       url,
				Body:      entry.Raw,
				ETag:      entry.ETag,
				FetchedAt: now,
			}, nil
		}
		return doc, nil
	}
	return f.Fetch(ctx, url)
}

// parseNonEmpty parses raw content and treats zero extracted records as a
// failure; the embedded catalog is never empty, so an empty live result only
// means the page structure was not recognized.
func parseNonEmpty(t model.DocumentType, url string, raw []byte) (parser.Result, error) {
	res, err := parser.Parse(t, url, raw)
	if err != nil {
		return parser.Result{}, err
	}
	if res.Count() == 0 {
		return parser.Result{}, eris.Errorf("refdata: no %s records recognized in %s", t, url)
	}
	return res, nil
}

// mergeResults unions per-URL results for one type, deduplicating records
// case-insensitively by their natural key with first-seen-wins order.
func mergeResults(t model.DocumentType, results []parser.Result) parser.Result {
	var merged parser.Result
	seen := make(map[string]bool)

	key := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

	for _, res := range results {
		switch t {
		case model.DocGenres:
			for _, r := range res.Genres {
				if k := key(r.Name); k != "" && !seen[k] {
					seen[k] = true
					merged.Genres = append(merged.Genres, r)
				}
			}
		case model.DocMetaTags:
			for _, r := range res.MetaTags {
				if k := key(r.Tag); k != "" && !seen[k] {
					seen[k] = true
					merged.MetaTags = append(merged.MetaTags, r)
				}
			}
		case model.DocTechniques:
			for _, r := range res.Techniques {
				if k := key(r.Title); k != "" && !seen[k] {
					seen[k] = true
					merged.Techniques = append(merged.Techniques, r)
				}
			}
		}
	}

	return merged
}

// startRefreshLocked launches the background refresh goroutine for the new
// configuration. Caller holds mu and has already stopped any previous loop.
func (m *Manager) startRefreshLocked(cfg Config) {
	if !m.autoRefresh || !cfg.Enabled || cfg.RefreshInterval <= 0 {
		return
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	m.stopCh = stopCh
	m.doneCh = doneCh

	go m.refreshLoop(cfg.RefreshInterval, stopCh, doneCh)
}

// signalRefreshStopLocked closes the stop channel and hands the done channel
// to the caller, who must wait on it only after releasing mu. Waiting under
// mu would deadlock against a tick that has passed its busy check and is
// about to take mu for its working set.
func (m *Manager) signalRefreshStopLocked() chan struct{} {
	if m.stopCh == nil {
		return nil
	}
	close(m.stopCh)
	done := m.doneCh
	m.stopCh = nil
	m.doneCh = nil
	return done
}

func (m *Manager) refreshLoop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.refreshOnce()
		}
	}
}

// refreshOnce re-runs acquisition with the current configuration. A pass
// already in flight wins; the tick is skipped rather than queued.
func (m *Manager) refreshOnce() {
	if m.closed.Load() {
		return
	}
	if !m.busy.CompareAndSwap(false, true) {
		zap.L().Debug("refresh skipped, acquisition already in progress")
		return
	}
	defer m.busy.Store(false)

	m.mu.Lock()
	cfg, f, lc := m.cfg, m.fetch, m.lc
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshBudget(cfg))
	defer cancel()

	snap := m.acquire(ctx, cfg, f, lc)
	m.install(snap)
}

// refreshBudget bounds one background pass: every URL can exhaust its full
// retry budget and the pass still terminates.
func refreshBudget(cfg Config) time.Duration {
	urls := len(cfg.GenrePages) + len(cfg.MetaTagPages) + len(cfg.TipPages)
	if urls == 0 {
		urls = 1
	}
	perURL := time.Duration(cfg.MaxRetries) * (cfg.RequestTimeout + cfg.RetryDelay)
	return time.Duration(urls)*perURL + 30*time.Second
}
