package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// PageOptions parameterise the HTTP page fetcher.
type PageOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// Page fetches source pages over HTTP(S).
type Page struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewPage constructs a page fetcher. Timeout defaults to 15s.
func NewPage(opts PageOptions, logger zerolog.Logger) *Page {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", ua)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Page{
		client: client,
		logger: logger.With().Str("component", "page_fetcher").Logger(),
	}
}

// FetchPage performs one GET. Any transport failure or non-2xx status is a *TransportError.
func (p *Page) FetchPage(ctx context.Context, url string) ([]byte, error) {
	started := time.Now()
	resp, err := p.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode()}
	}

	p.logger.Debug().Str("url", url).
		Int("bytes", len(resp.Body())).
		Dur("elapsed", time.Since(started)).
		Msg("page fetched")
	return resp.Body(), nil
}

var _ PageFetcher = (*Page)(nil)
