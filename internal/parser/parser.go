// Package parser converts fetched reference pages into typed records.
// Each document type has its own structural heuristics: headed lists for
// genres, bracket-tag lines for meta-tags, numbered sections for techniques.
// A page with no recognizable structure yields zero records, never an error;
// the manager decides what emptiness means.
package parser

import (
	"github.com/rotisserie/eris"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

// Result holds the records extracted from one document. Only the slice
// matching the requested document type is populated.
type Result struct {
	Genres     []model.GenreRecord
	MetaTags   []model.MetaTagRecord
	Techniques []model.TechniqueRecord
}

// Count returns the total number of extracted records.
func (r Result) Count() int {
	return len(r.Genres) + len(r.MetaTags) + len(r.Techniques)
}

// Parse extracts records of the given type from raw page content, tagging
// every record with sourceURL. HTML pages are reduced to structured text
// first; markdown and plain text pass through unchanged.
func Parse(t model.DocumentType, sourceURL string, raw []byte) (Result, error) {
	if !t.Valid() {
		return Result{}, eris.Errorf("parser: unknown document type %q", t)
	}

	text := string(raw)
	if looksLikeHTML(raw) {
		text = ExtractText(text)
	}

	switch t {
	case model.DocGenres:
		return Result{Genres: parseGenres(sourceURL, text)}, nil
	case model.DocMetaTags:
		return Result{MetaTags: parseMetaTags(sourceURL, text)}, nil
	default:
		return Result{Techniques: parseTechniques(sourceURL, text)}, nil
	}
}
