package model

import "time"

// Source identifies one reference page that backed some generated content.
// Identity is the URL; attribution deduplicates by it.
type Source struct {
	URL          string       `json:"url"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	FetchedAt    time.Time    `json:"fetched_at,omitzero"`
}

// AttributedContext wraps a piece of generated content with the sources that
// backed it and a rendered citation string.
type AttributedContext struct {
	Content         any      `json:"content"`
	Sources         []Source `json:"sources"`
	AttributionText string   `json:"attribution_text"`
}

// GenreMatch pairs a genre with its trait-overlap score in [0,1].
type GenreMatch struct {
	Genre GenreRecord `json:"genre"`
	Score float64     `json:"score"`
}
