package refdata

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type fallbackCatalog struct {
	Genres     []model.GenreRecord     `yaml:"genres"`
	MetaTags   []model.MetaTagRecord   `yaml:"meta_tags"`
	Techniques []model.TechniqueRecord `yaml:"techniques"`
}

var (
	fallbackOnce sync.Once
	fallback     fallbackCatalog
)

// loadFallback parses the embedded catalog once. The asset is compiled in,
// so a parse failure is a build defect, not a runtime condition.
func loadFallback() fallbackCatalog {
	fallbackOnce.Do(func() {
		if err := yaml.Unmarshal(fallbackYAML, &fallback); err != nil {
			panic(fmt.Sprintf("refdata: embedded fallback catalog is invalid: %v", err))
		}
		if len(fallback.Genres) == 0 || len(fallback.MetaTags) == 0 || len(fallback.Techniques) == 0 {
			panic("refdata: embedded fallback catalog has an empty document type")
		}
	})
	return fallback
}

// FallbackGenres returns a fresh copy of the embedded genre records, each
// stamped with the embedded-default source sentinel.
func FallbackGenres() []model.GenreRecord {
	src := loadFallback().Genres
	out := make([]model.GenreRecord, len(src))
	for i, r := range src {
		r.Characteristics = append([]string(nil), r.Characteristics...)
		r.SourceURL = model.EmbeddedSourceURL
		out[i] = r
	}
	return out
}

// FallbackMetaTags returns a fresh copy of the embedded meta-tag records.
func FallbackMetaTags() []model.MetaTagRecord {
	src := loadFallback().MetaTags
	out := make([]model.MetaTagRecord, len(src))
	for i, r := range src {
		r.SourceURL = model.EmbeddedSourceURL
		out[i] = r
	}
	return out
}

// FallbackTechniques returns a fresh copy of the embedded technique records.
func FallbackTechniques() []model.TechniqueRecord {
	src := loadFallback().Techniques
	out := make([]model.TechniqueRecord, len(src))
	for i, r := range src {
		r.Examples = append([]string(nil), r.Examples...)
		r.SourceURL = model.EmbeddedSourceURL
		out[i] = r
	}
	return out
}
