package marketdata

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/resilience"
	"signal-trader/pkg/utils"
)

// YahooProvider fetches quotes and daily charts from Yahoo Finance.
// Transient failures are retried with backoff; a persistently failing
// upstream trips the circuit breaker.
type YahooProvider struct {
	breaker *resilience.CircuitBreaker
	retry   utils.RetryConfig
}

func NewYahooProvider(breaker *resilience.CircuitBreaker) *YahooProvider {
	return &YahooProvider{
		breaker: breaker,
		retry:   utils.DefaultRetryConfig(),
	}
}

func (y *YahooProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	q, err := resilience.ExecuteWithResult(y.breaker, ctx, func() (*finance.Quote, error) {
		return utils.RetryWithResult(ctx, y.retry, func() (*finance.Quote, error) {
			return quote.Get(symbol)
		})
	})
	if err != nil {
		return nil, errors.NewDataError("quote", symbol, "quote fetch failed", err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return nil, errors.NewDataError("quote", symbol, "empty quote", nil)
	}

	ts := time.Now()
	if q.RegularMarketTime > 0 {
		ts = time.Unix(int64(q.RegularMarketTime), 0)
	}

	return &models.Quote{
		Symbol:      symbol,
		Price:       q.RegularMarketPrice,
		Open:        q.RegularMarketOpen,
		High:        q.RegularMarketDayHigh,
		Low:         q.RegularMarketDayLow,
		Volume:      int64(q.RegularMarketVolume),
		MarketState: marketState(string(q.MarketState)),
		Timestamp:   ts,
	}, nil
}

func (y *YahooProvider) History(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	candles, err := resilience.ExecuteWithResult(y.breaker, ctx, func() ([]models.Candle, error) {
		return utils.RetryWithResult(ctx, y.retry, func() ([]models.Candle, error) {
			return fetchChart(symbol, start, end)
		})
	})
	if err != nil {
		return nil, errors.NewDataError("history", symbol, "chart fetch failed", err)
	}
	return candles, nil
}

func fetchChart(symbol string, start, end time.Time) ([]models.Candle, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	candles := make([]models.Candle, 0, 64)
	for iter.Next() {
		bar := iter.Bar()
		candles = append(candles, models.Candle{
			Symbol: symbol,
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get chart for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	return candles, nil
}

// marketState maps Yahoo's session labels onto ours.
func marketState(state string) models.MarketState {
	switch state {
	case "REGULAR":
		return models.MarketRegular
	case "PRE", "PREPRE":
		return models.MarketPre
	case "POST", "POSTPOST":
		return models.MarketPost
	default:
		return models.MarketClosed
	}
}
