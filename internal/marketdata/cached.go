package marketdata

import (
	"context"
	"time"

	"signal-trader/internal/errors"
	"signal-trader/internal/logging"
	"signal-trader/internal/models"
	"signal-trader/internal/store"
)

// CachedProvider decorates a Provider with the candle store. Fetched
// history is written through; when the upstream fails, the cached window
// is served with an error wrapping ErrStaleMarketData so the caller can
// degrade instead of aborting.
type CachedProvider struct {
	upstream Provider
	store    store.Store
}

func NewCachedProvider(upstream Provider, st store.Store) *CachedProvider {
	return &CachedProvider{upstream: upstream, store: st}
}

// Quote passes through to the upstream. Failures are tagged stale so the
// caller skips the symbol's mark-to-market for the day.
func (c *CachedProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	q, err := c.upstream.Quote(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStaleMarketData, "quote %s: %v", symbol, err)
	}
	return q, nil
}

// History fetches from the upstream and writes through to the store. On
// upstream failure it serves the cached window, returning the candles
// together with a stale error.
func (c *CachedProvider) History(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	candles, err := c.upstream.History(ctx, symbol, days)
	if err == nil {
		if saveErr := c.store.SaveCandles(ctx, candles); saveErr != nil {
			log := logging.FromContext(ctx)
			log.Warn().
				Str("symbol", symbol).
				Err(saveErr).
				Msg("candle cache write failed")
		}
		return candles, nil
	}

	from := time.Now().AddDate(0, 0, -days)
	cached, cacheErr := c.store.GetCandles(ctx, symbol, from)
	if cacheErr != nil || len(cached) == 0 {
		return nil, errors.Wrapf(errors.ErrStaleMarketData, "history %s: %v", symbol, err)
	}
	return cached, errors.Wrapf(errors.ErrStaleMarketData, "history %s served from cache: %v", symbol, err)
}
