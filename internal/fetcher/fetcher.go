package fetcher

import (
	"context"
	"time"
)

// Document is one successfully fetched reference page.
type Document struct {
	URL       string
	Body      []byte
	ETag      string
	FetchedAt time.Time
}

// Fetcher downloads remote reference pages.
type Fetcher interface {
	// Fetch performs a GET and returns the document body. Any non-2xx
	// response or exhausted retry budget is returned as an error; callers
	// treat it as a per-URL failure.
	Fetch(ctx context.Context, url string) (*Document, error)

	// FetchIfChanged performs a conditional GET with If-None-Match.
	// Returns (nil, false, nil) when the server answers 304 Not Modified.
	FetchIfChanged(ctx context.Context, url string, etag string) (*Document, bool, error)
}
