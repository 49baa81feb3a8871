package predict

import (
	"context"
	"math"
	"testing"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

func TestMomentumPredictor_ProjectsMeanReturn(t *testing.T) {
	m := NewMomentumPredictor(5)

	pred, err := m.Predict(context.Background(), "AAPL", candles(100, 110, 121))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	want := 121.0 * 1.1
	if math.Abs(pred.PredictedPrice-want) > 1e-9 {
		t.Errorf("PredictedPrice = %.9f, want %.9f", pred.PredictedPrice, want)
	}
	if pred.CurrentPrice != 121 {
		t.Errorf("CurrentPrice = %v, want 121", pred.CurrentPrice)
	}
	if pred.Direction != models.DirectionUp {
		t.Errorf("Direction = %v, want UP", pred.Direction)
	}
	if pred.Confidence != 0.4 {
		t.Errorf("Confidence = %v, want 0.4", pred.Confidence)
	}
	if pred.ModelUsed != "momentum" {
		t.Errorf("ModelUsed = %q, want momentum", pred.ModelUsed)
	}
}

func TestMomentumPredictor_LookbackDropsOldReturns(t *testing.T) {
	m := NewMomentumPredictor(5)

	// Seven closes give six returns. The first one, a 50% crash, falls
	// outside the five-day lookback and must not drag the mean to zero.
	history := candles(200, 100, 110, 121, 133.1, 146.41, 161.051)
	pred, err := m.Predict(context.Background(), "AAPL", history)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	want := 161.051 * 1.1
	if math.Abs(pred.PredictedPrice-want) > 1e-6 {
		t.Errorf("PredictedPrice = %.9f, want %.9f", pred.PredictedPrice, want)
	}
	if pred.Direction != models.DirectionUp {
		t.Errorf("Direction = %v, want UP", pred.Direction)
	}
}

func TestMomentumPredictor_ZeroLookbackDefaultsToFive(t *testing.T) {
	m := NewMomentumPredictor(0)

	history := candles(200, 100, 110, 121, 133.1, 146.41, 161.051)
	pred, err := m.Predict(context.Background(), "AAPL", history)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	want := 161.051 * 1.1
	if math.Abs(pred.PredictedPrice-want) > 1e-6 {
		t.Errorf("PredictedPrice = %.9f, want %.9f", pred.PredictedPrice, want)
	}
}

func TestMomentumPredictor_DownwardDrift(t *testing.T) {
	m := NewMomentumPredictor(5)

	pred, err := m.Predict(context.Background(), "AAPL", candles(100, 98, 96.04))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	want := 96.04 * 0.98
	if math.Abs(pred.PredictedPrice-want) > 1e-6 {
		t.Errorf("PredictedPrice = %.9f, want %.9f", pred.PredictedPrice, want)
	}
	if pred.Direction != models.DirectionDown {
		t.Errorf("Direction = %v, want DOWN", pred.Direction)
	}
}

func TestMomentumPredictor_FlatHistory(t *testing.T) {
	m := NewMomentumPredictor(5)

	pred, err := m.Predict(context.Background(), "AAPL", candles(100, 100, 100))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.PredictedPrice != 100 {
		t.Errorf("PredictedPrice = %v, want 100", pred.PredictedPrice)
	}
	if pred.Direction != models.DirectionFlat {
		t.Errorf("Direction = %v, want FLAT", pred.Direction)
	}
}

func TestMomentumPredictor_InsufficientHistory(t *testing.T) {
	m := NewMomentumPredictor(5)

	_, err := m.Predict(context.Background(), "AAPL", candles(100))
	if !errors.Is(err, errors.ErrInsufficientHistory) {
		t.Fatalf("Predict() error = %v, want ErrInsufficientHistory", err)
	}
}

func TestMomentumPredictor_UnusableHistory(t *testing.T) {
	m := NewMomentumPredictor(5)

	_, err := m.Predict(context.Background(), "AAPL", candles(0, 0))
	var perr *errors.PredictionError
	if !errors.As(err, &perr) {
		t.Fatalf("Predict() error = %v, want *errors.PredictionError", err)
	}
}
