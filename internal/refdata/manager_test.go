package refdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

const genrePage = `# Rock
Guitar-driven band music with a strong backbeat.
Characteristics: energetic, rebellious, driving

# Jazz
Improvisational music with swing feel and extended harmony.
- improvisational
- sophisticated

# Ambient
Atmospheric music emphasizing tone and texture.
Characteristics: atmospheric, calm, spacious
`

const metaTagPage = `# Mood
[melancholic] - a wistful, sorrowful tone
[uplifting] - a hopeful, rising tone
[dark] - a brooding, ominous tone

# Structure
[verse] - marks a verse section
[chorus] - marks the chorus section
[bridge] - marks a contrasting bridge
`

const tipPage = `1. Lead with genre
Open the style prompt with the genre before mood words.
Example: dark synthwave, slow tempo

2. Keep prompts short
Pick the descriptors that matter and drop the rest.
`

// newRefServer serves the three reference pages under /genres, /metatags,
// and /tips.
func newRefServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/genres", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, genrePage)
	})
	mux.HandleFunc("/metatags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metaTagPage)
	})
	mux.HandleFunc("/tips", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tipPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srvURL string) Config {
	t.Helper()
	return Config{
		Enabled:             true,
		LocalStoragePath:    t.TempDir(),
		GenrePages:          []string{srvURL + "/genres"},
		MetaTagPages:        []string{srvURL + "/metatags"},
		TipPages:            []string{srvURL + "/tips"},
		RequestTimeout:      5 * time.Second,
		MaxRetries:          1,
		RetryDelay:          time.Millisecond,
		FallbackToHardcoded: true,
	}
}

func TestInitialize_LiveSources(t *testing.T) {
	srv := newRefServer(t)
	m := NewManager()
	cfg := testConfig(t, srv.URL)

	require.NoError(t, m.Initialize(context.Background(), cfg))

	genres, err := m.Genres()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(genres), 3)
	for _, g := range genres {
		assert.Equal(t, srv.URL+"/genres", g.SourceURL)
	}

	tags, err := m.MetaTags()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(tags), 6)

	techniques, err := m.Techniques()
	require.NoError(t, err)
	assert.NotEmpty(t, techniques)

	urls, err := m.SourceURLs("all")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		srv.URL + "/genres",
		srv.URL + "/metatags",
		srv.URL + "/tips",
	}, urls)
}

func TestInitialize_DisabledServesFallback(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), Config{Enabled: false}))

	genres, err := m.Genres()
	require.NoError(t, err)
	assert.Equal(t, FallbackGenres(), genres)

	tags, err := m.MetaTags()
	require.NoError(t, err)
	assert.Equal(t, FallbackMetaTags(), tags)

	techniques, err := m.Techniques()
	require.NoError(t, err)
	assert.Equal(t, FallbackTechniques(), techniques)

	urls, err := m.SourceURLs("all")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestInitialize_Idempotent(t *testing.T) {
	srv := newRefServer(t)
	m := NewManager()
	cfg := testConfig(t, srv.URL)

	require.NoError(t, m.Initialize(context.Background(), cfg))
	first, err := m.Snapshot()
	require.NoError(t, err)

	require.NoError(t, m.Initialize(context.Background(), cfg))
	second, err := m.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, first.Genres, second.Genres)
	assert.Equal(t, first.MetaTags, second.MetaTags)
	assert.Equal(t, first.Techniques, second.Techniques)
	assert.Greater(t, second.Generation, first.Generation)
}

func TestInitialize_PartialOutage_TypeGranularFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/genres", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/metatags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metaTagPage)
	})
	mux.HandleFunc("/tips", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tipPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), testConfig(t, srv.URL)))

	// Genres fell back whole-type to the embedded catalog.
	genres, err := m.Genres()
	require.NoError(t, err)
	require.NotEmpty(t, genres)
	for _, g := range genres {
		assert.Equal(t, model.EmbeddedSourceURL, g.SourceURL)
	}

	// Meta-tags stayed live.
	tags, err := m.MetaTags()
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	for _, tag := range tags {
		assert.Equal(t, srv.URL+"/metatags", tag.SourceURL)
	}

	urls, err := m.SourceURLs("all")
	require.NoError(t, err)
	assert.NotContains(t, urls, model.EmbeddedSourceURL)
	assert.NotContains(t, urls, srv.URL+"/genres")
	assert.Contains(t, urls, srv.URL+"/metatags")
}

func TestInitialize_TotalOutage_AllFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused for every URL

	m := NewManager()
	cfg := testConfig(t, srv.URL)

	start := time.Now()
	require.NoError(t, m.Initialize(context.Background(), cfg))
	// Bounded termination: 3 URLs x 1 attempt x (timeout + delay) plus slack.
	assert.Less(t, time.Since(start), 10*time.Second)

	genres, err := m.Genres()
	require.NoError(t, err)
	assert.NotEmpty(t, genres)

	urls, err := m.SourceURLs("all")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestInitialize_InvalidConfig(t *testing.T) {
	m := NewManager()
	err := m.Initialize(context.Background(), Config{
		Enabled:             true,
		FallbackToHardcoded: false,
	})
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	// Nothing was installed.
	_, err = m.Genres()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestReconfigure_BusyRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 3)
	mux := http.NewServeMux()
	slow := func(page string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			started <- struct{}{}
			<-release
			fmt.Fprint(w, page)
		}
	}
	mux.HandleFunc("/genres", slow(genrePage))
	mux.HandleFunc("/metatags", slow(metaTagPage))
	mux.HandleFunc("/tips", slow(tipPage))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := NewManager()
	cfg := testConfig(t, srv.URL)

	done := make(chan error, 1)
	go func() {
		done <- m.Initialize(context.Background(), cfg)
	}()

	<-started // first pass is mid-fetch

	err := m.Reconfigure(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	// The first pass completed undisturbed.
	genres, err := m.Genres()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(genres), 3)
}

func TestReconfigure_ReadsSeeWholeSnapshots(t *testing.T) {
	srvA := newRefServer(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/genres", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "# Synthwave\nRetro-futuristic electronic music.\nCharacteristics: neon, retro\n\n# Metal\nHeavy distorted guitars.\nCharacteristics: aggressive, heavy\n")
	})
	mux.HandleFunc("/metatags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metaTagPage)
	})
	mux.HandleFunc("/tips", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tipPage)
	})
	srvB := httptest.NewServer(mux)
	defer srvB.Close()

	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), testConfig(t, srvA.URL)))

	oldFirst := "Rock"
	newFirst := "Synthwave"

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				genres, err := m.Genres()
				if err != nil {
					t.Errorf("read failed: %v", err)
					return
				}
				// Whole old list or whole new list, never a blend.
				switch genres[0].Name {
				case oldFirst:
					if len(genres) != 3 {
						t.Errorf("mixed snapshot: first=%s len=%d", genres[0].Name, len(genres))
						return
					}
				case newFirst:
					if len(genres) != 2 {
						t.Errorf("mixed snapshot: first=%s len=%d", genres[0].Name, len(genres))
						return
					}
				default:
					t.Errorf("unexpected first genre %q", genres[0].Name)
					return
				}
			}
		}()
	}

	require.NoError(t, m.Reconfigure(context.Background(), testConfig(t, srvB.URL)))
	close(stop)
	wg.Wait()

	genres, err := m.Genres()
	require.NoError(t, err)
	assert.Equal(t, newFirst, genres[0].Name)
}

func TestInitialize_CorruptedCacheFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // network down: only the cache or fallback can serve

	dir := t.TempDir()
	// Plant garbage where a genres cache entry could live.
	genresDir := filepath.Join(dir, "genres")
	require.NoError(t, os.MkdirAll(genresDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(genresDir, "deadbeef00000000.json"), []byte("{not json"), 0o644))

	cfg := testConfig(t, srv.URL)
	cfg.LocalStoragePath = dir

	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), cfg))

	genres, err := m.Genres()
	require.NoError(t, err)
	assert.NotEmpty(t, genres)
	for _, g := range genres {
		assert.Equal(t, model.EmbeddedSourceURL, g.SourceURL)
	}
}

func TestInitialize_StaleCacheServedOnOutage(t *testing.T) {
	srv := newRefServer(t)
	dir := t.TempDir()

	cfg := testConfig(t, srv.URL)
	cfg.LocalStoragePath = dir

	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), cfg))
	srv.Close()

	// Same storage, dead network, cache immediately stale.
	cfg2 := cfg
	cfg2.RefreshInterval = time.Nanosecond

	m2 := NewManager()
	require.NoError(t, m2.Initialize(context.Background(), cfg2))

	genres, err := m2.Genres()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(genres), 3)
	for _, g := range genres {
		assert.Equal(t, srv.URL+"/genres", g.SourceURL)
	}
}

func TestInitialize_FreshCacheSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	counting := func(page string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, page)
		}
	}
	mux.HandleFunc("/genres", counting(genrePage))
	mux.HandleFunc("/metatags", counting(metaTagPage))
	mux.HandleFunc("/tips", counting(tipPage))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.RefreshInterval = time.Hour

	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), cfg))
	firstHits := hits.Load()

	m2 := NewManager()
	require.NoError(t, m2.Initialize(context.Background(), cfg))
	assert.Equal(t, firstHits, hits.Load(), "second pass should be served from cache")
}

func TestSourceURLs_Scopes(t *testing.T) {
	srv := newRefServer(t)
	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), testConfig(t, srv.URL)))

	urls, err := m.SourceURLs("genres")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/genres"}, urls)

	_, err = m.SourceURLs("bogus")
	assert.Error(t, err)
}

func TestCleanup_DuringRefreshTick(t *testing.T) {
	// Slow handlers keep each background pass in flight long enough for
	// Cleanup to overlap a tick that has already started working.
	mux := http.NewServeMux()
	slow := func(page string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(10 * time.Millisecond)
			fmt.Fprint(w, page)
		}
	}
	mux.HandleFunc("/genres", slow(genrePage))
	mux.HandleFunc("/metatags", slow(metaTagPage))
	mux.HandleFunc("/tips", slow(tipPage))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := NewManager(WithAutoRefresh())
	cfg := testConfig(t, srv.URL)
	// Short interval: cache entries go stale every tick, so every tick
	// really fetches.
	cfg.RefreshInterval = 5 * time.Millisecond
	require.NoError(t, m.Initialize(context.Background(), cfg))

	// Let a few ticks start.
	time.Sleep(25 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- m.Cleanup() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Cleanup did not return while a refresh tick was in flight")
	}

	_, err := m.Genres()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCleanup(t *testing.T) {
	srv := newRefServer(t)
	m := NewManager()
	require.NoError(t, m.Initialize(context.Background(), testConfig(t, srv.URL)))

	require.NoError(t, m.Cleanup())

	_, err := m.Genres()
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, m.Cleanup(), ErrClosed)
	assert.ErrorIs(t, m.Initialize(context.Background(), Config{}), ErrClosed)
}
