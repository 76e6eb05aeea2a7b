package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metalbot/internal/catalog"
	"metalbot/internal/fetcher"
	"metalbot/internal/pricecache"
	"metalbot/internal/table"
)

const defaultSourceName = "GoodReturns.in"

// PriceOptions configure a PriceService.
type PriceOptions struct {
	BaseURL    string
	SourceName string
	Location   *time.Location
	Now        func() time.Time
}

// PriceService turns (metal, city) requests into display-ready messages,
// reusing cached renders while they are fresh.
type PriceService struct {
	pages  fetcher.PageFetcher
	cache  *pricecache.Cache
	opts   PriceOptions
	logger zerolog.Logger
}

// NewPriceService wires the page fetcher and the shared cache.
func NewPriceService(pages fetcher.PageFetcher, cache *pricecache.Cache, opts PriceOptions, logger zerolog.Logger) *PriceService {
	if opts.SourceName == "" {
		opts.SourceName = defaultSourceName
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PriceService{
		pages:  pages,
		cache:  cache,
		opts:   opts,
		logger: logger.With().Str("component", "prices").Logger(),
	}
}

// Cache exposes the shared price cache.
func (s *PriceService) Cache() *pricecache.Cache {
	return s.cache
}

// GetPrices returns the price message for a pair.
//
// Only *catalog.ValidationError is returned as an error; transport, layout and
// unexpected failures come back as a fallback message with a manual-check link.
func (s *PriceService) GetPrices(ctx context.Context, metal, city string, force bool) (string, error) {
	m, c, err := catalog.Resolve(metal, city)
	if err != nil {
		return "", err
	}

	if !force {
		if entry, ok := s.cache.Get(m.Slug, c.Slug); ok {
			s.logger.Debug().Str("metal", m.Slug).Str("city", c.Slug).Msg("cache hit")
			return entry.Message, nil
		}
	}

	return s.refresh(ctx, m, c), nil
}

// FetchTable fetches and extracts the pair's table without touching the cache.
func (s *PriceService) FetchTable(ctx context.Context, metal, city string) (fetcher.PriceTable, error) {
	m, c, err := catalog.Resolve(metal, city)
	if err != nil {
		return fetcher.PriceTable{}, err
	}
	body, err := s.pages.FetchPage(ctx, s.URL(m, c))
	if err != nil {
		return fetcher.PriceTable{}, err
	}
	return fetcher.Extract(bytes.NewReader(body), m)
}

// URL is the source page for a resolved pair.
func (s *PriceService) URL(m catalog.Metal, c catalog.City) string {
	return catalog.SourceURL(s.opts.BaseURL, m, c)
}

func (s *PriceService) refresh(ctx context.Context, m catalog.Metal, c catalog.City) (msg string) {
	url := s.URL(m, c)
	log := s.logger.With().Str("metal", m.Slug).Str("city", c.Slug).Logger()

	body, err := s.pages.FetchPage(ctx, url)
	if err != nil {
		var te *fetcher.TransportError
		if errors.As(err, &te) && te.StatusCode != 0 {
			log.Warn().Int("status", te.StatusCode).Str("url", url).Msg("source returned non-success status")
			return statusFallback(m, c, url, te.StatusCode)
		}
		log.Error().Err(err).Str("url", url).Msg("network error fetching source page")
		return networkFallback(m, c, url)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("url", url).Msg("unexpected failure processing page")
			msg = unexpectedFallback(m, c, url)
		}
	}()

	parsed, err := fetcher.Extract(bytes.NewReader(body), m)
	if err != nil {
		var se *fetcher.StructureError
		if errors.As(err, &se) {
			log.Error().Str("kind", se.Kind.String()).Str("reason", se.Reason).Msg("source page layout not recognised")
			return structureFallback(m, c, url, se.Reason)
		}
		log.Error().Err(err).Str("url", url).Msg("unexpected failure processing page")
		return unexpectedFallback(m, c, url)
	}

	rendered := table.Render(parsed.Headers, parsed.Rows)
	msg = priceMessage(m, c, rendered, s.opts.Now().In(s.opts.Location), url, s.opts.SourceName)

	price := decimal.Zero
	if parsed.HasPrice {
		price = parsed.CurrentPrice
	}
	s.cache.Set(m.Slug, c.Slug, msg, price)

	log.Info().Str("price", price.String()).Int("rows", len(parsed.Rows)).Msg("prices refreshed")
	return msg
}
