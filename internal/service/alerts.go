package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metalbot/internal/pricecache"
	"metalbot/internal/storage"
)

// PriceGetter is the part of PriceService the evaluator needs.
type PriceGetter interface {
	GetPrices(ctx context.Context, metal, city string, force bool) (string, error)
}

// Fired is an alert whose threshold is above the current price.
type Fired struct {
	Alert storage.Alert
	Price decimal.Decimal
}

// Evaluator checks alerts against cached prices, fetching each (metal, city)
// at most once per run.
type Evaluator struct {
	prices PriceGetter
	cache  *pricecache.Cache
	logger zerolog.Logger
}

// NewEvaluator constructs an Evaluator over the shared cache.
func NewEvaluator(prices PriceGetter, cache *pricecache.Cache, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		prices: prices,
		cache:  cache,
		logger: logger.With().Str("component", "evaluator").Logger(),
	}
}

type group struct {
	metal  string
	city   string
	alerts []storage.Alert
}

// Evaluate returns the fired alerts in group order (first appearance of each pair).
func (e *Evaluator) Evaluate(ctx context.Context, alerts []storage.Alert) []Fired {
	var fired []Fired
	for _, g := range groupAlerts(alerts) {
		price, ok := e.currentPrice(ctx, g.metal, g.city)
		if !ok {
			continue
		}
		for _, a := range g.alerts {
			if price.LessThan(a.Threshold) {
				fired = append(fired, Fired{Alert: a, Price: price})
			}
		}
	}
	return fired
}

func (e *Evaluator) currentPrice(ctx context.Context, metal, city string) (decimal.Decimal, bool) {
	log := e.logger.With().Str("metal", metal).Str("city", city).Logger()

	entry, ok := e.cache.Get(metal, city)
	if !ok {
		// populates the cache on success; no lock is held across the fetch
		if _, err := e.prices.GetPrices(ctx, metal, city, false); err != nil {
			log.Warn().Err(err).Msg("alert check fetch failed, skipping group")
			return decimal.Zero, false
		}
		entry, ok = e.cache.Get(metal, city)
		if !ok {
			log.Warn().Msg("no price available after fetch, skipping group")
			return decimal.Zero, false
		}
	}

	if !entry.Price.IsPositive() {
		log.Debug().Str("price", entry.Price.String()).Msg("price unknown, skipping group")
		return decimal.Zero, false
	}
	return entry.Price, true
}

func groupAlerts(alerts []storage.Alert) []*group {
	index := make(map[[2]string]*group)
	var groups []*group
	for _, a := range alerts {
		k := [2]string{strings.ToLower(a.Metal), strings.ToLower(a.City)}
		g, ok := index[k]
		if !ok {
			g = &group{metal: k[0], city: k[1]}
			index[k] = g
			groups = append(groups, g)
		}
		g.alerts = append(g.alerts, a)
	}
	return groups
}
