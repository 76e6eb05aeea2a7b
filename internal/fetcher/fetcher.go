package fetcher

import (
	"context"
)

// PageFetcher retrieves the raw HTML of a source page.
// Failures are reported as *TransportError.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}
