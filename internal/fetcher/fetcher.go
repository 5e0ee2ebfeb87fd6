// Package fetcher downloads remote EDGAR and FASB documents with
// per-host rate limiting.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// NotFoundError marks a 404 response. Callers treat a missing
// document as an empty result, not a failure.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return "fetcher: not found: " + e.URL
}
