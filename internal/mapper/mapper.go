// Package mapper scores character traits against the current genre records.
package mapper

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

// DefaultMaxResults bounds result count when the caller passes zero.
const DefaultMaxResults = 10

// GenreProvider supplies the current snapshot. *refdata.Manager satisfies it.
type GenreProvider interface {
	Snapshot() (*model.Snapshot, error)
}

// GenreMapper maps free-form character traits to scored genre matches.
// Results are cached per (traits, maxResults) key for the lifetime of one
// snapshot generation; installing a new snapshot invalidates the whole cache.
type GenreMapper struct {
	provider GenreProvider

	mu       sync.Mutex
	cacheGen uint64
	cache    map[string][]model.GenreMatch
}

// NewGenreMapper creates a mapper reading genres from the given provider.
func NewGenreMapper(p GenreProvider) *GenreMapper {
	return &GenreMapper{
		provider: p,
		cache:    make(map[string][]model.GenreMatch),
	}
}

// MapTraits scores each genre by overlap between traits and the genre's
// characteristics and description keywords, case-insensitively and
// unicode-safely, and returns the top maxResults matches with ties broken
// by genre name. Empty, whitespace-only, and duplicate traits are ignored;
// an empty effective trait list returns an empty result, not an error.
func (g *GenreMapper) MapTraits(traits []string, maxResults int) ([]model.GenreMatch, error) {
	normed := normalizeTraits(traits)
	if len(normed) == 0 {
		return []model.GenreMatch{}, nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	snap, err := g.provider.Snapshot()
	if err != nil {
		return nil, err
	}

	key := strings.Join(normed, "\x1f") + "\x1e" + strconv.Itoa(maxResults)

	g.mu.Lock()
	if g.cacheGen != snap.Generation {
		g.cacheGen = snap.Generation
		g.cache = make(map[string][]model.GenreMatch)
	}
	if cached, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return cloneMatches(cached), nil
	}
	g.mu.Unlock()

	matches := scoreGenres(snap.Genres, normed)
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	g.mu.Lock()
	if g.cacheGen == snap.Generation {
		g.cache[key] = matches
	}
	g.mu.Unlock()

	// Callers get their own slice; mutating a result must not poison the
	// cached copy.
	return cloneMatches(matches), nil
}

func cloneMatches(matches []model.GenreMatch) []model.GenreMatch {
	return append([]model.GenreMatch(nil), matches...)
}

func scoreGenres(genres []model.GenreRecord, traits []string) []model.GenreMatch {
	var matches []model.GenreMatch
	for _, genre := range genres {
		score := scoreGenre(genre, traits)
		if score <= 0 {
			continue
		}
		matches = append(matches, model.GenreMatch{Genre: genre, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Genre.Name < matches[j].Genre.Name
	})

	return matches
}

// scoreGenre returns the fraction of traits the genre accounts for: a
// characteristic match counts full, a description keyword match counts half.
func scoreGenre(genre model.GenreRecord, traits []string) float64 {
	chars := make(map[string]bool, len(genre.Characteristics))
	for _, c := range genre.Characteristics {
		chars[foldText(c)] = true
	}
	descWords := make(map[string]bool)
	for _, w := range tokenize(genre.Description) {
		descWords[w] = true
	}
	nameFolded := foldText(genre.Name)

	var total float64
	for _, trait := range traits {
		switch {
		case chars[trait] || trait == nameFolded:
			total += 1.0
		case descWords[trait]:
			total += 0.5
		}
	}

	score := total / float64(len(traits))
	if score > 1 {
		score = 1
	}
	return score
}

// foldText lowercases unicode-safely and normalizes to NFKC so visually
// equivalent traits compare equal. Casers are stateful, so build one per call.
func foldText(s string) string {
	return norm.NFKC.String(cases.Fold().String(strings.TrimSpace(s)))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(foldText(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	})
}

func normalizeTraits(traits []string) []string {
	seen := make(map[string]bool, len(traits))
	var out []string
	for _, t := range traits {
		f := foldText(t)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
