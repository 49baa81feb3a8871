package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/resilience"
	"signal-trader/pkg/utils"
)

// Wire format of the model-serving endpoint.
type remoteRequest struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

type remoteResponse struct {
	PredictedPrice float64 `json:"predicted_price"`
	Confidence     float64 `json:"confidence"`
}

// RemotePredictor calls an external model-serving endpoint. Transient
// failures are retried with backoff; a persistently failing endpoint trips
// the circuit breaker so later runs skip straight to the fallbacks.
type RemotePredictor struct {
	client     *resty.Client
	breaker    *resilience.CircuitBreaker
	retry      utils.RetryConfig
	minHistory int
}

func NewRemotePredictor(cfg config.RemoteModelConfig, apiToken string, breaker *resilience.CircuitBreaker) *RemotePredictor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(cfg.URL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	if apiToken != "" {
		client.SetAuthToken(apiToken)
	}

	minHistory := cfg.MinHistory
	if minHistory <= 0 {
		minHistory = 30
	}

	return &RemotePredictor{
		client:     client,
		breaker:    breaker,
		retry:      utils.DefaultRetryConfig(),
		minHistory: minHistory,
	}
}

func (r *RemotePredictor) Name() string { return "remote" }

func (r *RemotePredictor) MinHistory() int { return r.minHistory }

func (r *RemotePredictor) Predict(ctx context.Context, symbol string, history []models.Candle) (*models.PricePrediction, error) {
	if len(history) < r.minHistory {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory, "%s: %d candles, need %d", symbol, len(history), r.minHistory)
	}

	closes := closePrices(history)
	current := closes[len(closes)-1]

	parsed, err := resilience.ExecuteWithResult(r.breaker, ctx, func() (*remoteResponse, error) {
		return utils.RetryWithResult(ctx, r.retry, func() (*remoteResponse, error) {
			return r.post(ctx, symbol, closes)
		})
	})
	if err != nil {
		return nil, errors.NewPredictionError(symbol, r.Name(), "model endpoint unavailable", err)
	}

	if parsed.PredictedPrice <= 0 {
		return nil, errors.NewPredictionError(symbol, r.Name(),
			fmt.Sprintf("endpoint returned non-positive price %.4f", parsed.PredictedPrice), nil)
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	pred := &models.PricePrediction{
		Symbol:         symbol,
		CurrentPrice:   current,
		PredictedPrice: parsed.PredictedPrice,
		Confidence:     confidence,
		ModelUsed:      r.Name(),
		CreatedAt:      time.Now(),
	}
	pred.Direction = models.DirectionFor(pred.ChangePct())
	return pred, nil
}

func (r *RemotePredictor) post(ctx context.Context, symbol string, closes []float64) (*remoteResponse, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(remoteRequest{Symbol: symbol, Closes: closes}).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("failed to call prediction endpoint: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, errors.Wrap(errors.ErrRateLimited, "prediction endpoint")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("prediction endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed remoteResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %w", err)
	}
	return &parsed, nil
}
