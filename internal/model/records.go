package model

import "time"

// EmbeddedSourceURL is the sentinel source for records that came from the
// embedded fallback catalog rather than a fetched page.
const EmbeddedSourceURL = "embedded-default"

// DocumentType identifies one of the three categories of reference data.
type DocumentType string

const (
	DocGenres     DocumentType = "genres"
	DocMetaTags   DocumentType = "meta_tags"
	DocTechniques DocumentType = "techniques"
)

// AllDocumentTypes lists every document type in a stable order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{DocGenres, DocMetaTags, DocTechniques}
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocGenres, DocMetaTags, DocTechniques:
		return true
	}
	return false
}

// GenreRecord describes one music genre extracted from a reference page.
type GenreRecord struct {
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	Characteristics []string `json:"characteristics" yaml:"characteristics"`
	SourceURL       string   `json:"source_url" yaml:"source_url"`
}

// MetaTagRecord describes one prompt meta-tag, e.g. "[melancholic]".
type MetaTagRecord struct {
	Tag         string `json:"tag" yaml:"tag"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
	SourceURL   string `json:"source_url" yaml:"source_url"`
}

// TechniqueRecord describes one production-technique section.
type TechniqueRecord struct {
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"body" yaml:"body"`
	Examples  []string `json:"examples" yaml:"examples"`
	SourceURL string   `json:"source_url" yaml:"source_url"`
}

// Snapshot is the immutable bundle of all current records. The manager
// replaces whole snapshots atomically; readers never observe a partially
// built one.
type Snapshot struct {
	Genres     []GenreRecord
	MetaTags   []MetaTagRecord
	Techniques []TechniqueRecord
	FetchedAt  time.Time

	// Generation increases monotonically with every installed snapshot.
	// Consumers key derived caches on it to invalidate wholesale on swap.
	Generation uint64
}

// SourceURLs returns the distinct live source URLs present in the snapshot
// for the given document type, excluding the embedded-default sentinel.
func (s *Snapshot) SourceURLs(t DocumentType) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u == "" || u == EmbeddedSourceURL || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	switch t {
	case DocGenres:
		for _, r := range s.Genres {
			add(r.SourceURL)
		}
	case DocMetaTags:
		for _, r := range s.MetaTags {
			add(r.SourceURL)
		}
	case DocTechniques:
		for _, r := range s.Techniques {
			add(r.SourceURL)
		}
	}
	return urls
}
