package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTypeValid(t *testing.T) {
	for _, dt := range AllDocumentTypes() {
		assert.True(t, dt.Valid(), "expected %q to be valid", dt)
	}
	assert.False(t, DocumentType("").Valid())
	assert.False(t, DocumentType("playlists").Valid())
}

func TestSnapshotSourceURLs(t *testing.T) {
	s := &Snapshot{
		Genres: []GenreRecord{
			{Name: "Rock", SourceURL: "https://a.example.com"},
			{Name: "Jazz", SourceURL: "https://a.example.com"},
			{Name: "Ambient", SourceURL: "https://b.example.com"},
			{Name: "Fallback", SourceURL: EmbeddedSourceURL},
			{Name: "Unset"},
		},
		MetaTags: []MetaTagRecord{
			{Tag: "[verse]", SourceURL: "https://c.example.com"},
		},
	}

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, s.SourceURLs(DocGenres))
	assert.Equal(t, []string{"https://c.example.com"}, s.SourceURLs(DocMetaTags))
	assert.Empty(t, s.SourceURLs(DocTechniques))
}
