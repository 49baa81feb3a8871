package predict

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXPredictor runs a local next-day-return model. The model takes a
// window of closes normalized against the window's first close and emits
// a single fractional return.
type ONNXPredictor struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	window  int
}

func NewONNXPredictor(cfg config.ONNXModelConfig) (*ONNXPredictor, error) {
	window := cfg.Window
	if window <= 0 {
		window = 30
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnx runtime: %w", err)
	}

	inputShape := ort.NewShape(1, int64(window))
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, window))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 1)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"input"}, []string{"output"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to load onnx model %s: %w", cfg.ModelPath, err)
	}

	return &ONNXPredictor{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		window:  window,
	}, nil
}

func (o *ONNXPredictor) Name() string { return "onnx" }

func (o *ONNXPredictor) MinHistory() int { return o.window }

func (o *ONNXPredictor) Predict(ctx context.Context, symbol string, history []models.Candle) (*models.PricePrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(history) < o.window {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory, "%s: %d candles, need %d", symbol, len(history), o.window)
	}

	closes := closePrices(history)
	tail := closes[len(closes)-o.window:]
	base := tail[0]
	if base <= 0 {
		return nil, errors.NewPredictionError(symbol, o.Name(), "non-positive price in input window", nil)
	}

	// The session reuses its tensor buffers across runs.
	o.mu.Lock()
	defer o.mu.Unlock()

	data := o.input.GetData()
	for i, c := range tail {
		data[i] = float32(c/base - 1)
	}
	if err := o.session.Run(); err != nil {
		return nil, errors.NewPredictionError(symbol, o.Name(), "inference failed", err)
	}
	predictedReturn := float64(o.output.GetData()[0])

	current := closes[len(closes)-1]
	confidence := 0.5 + math.Min(0.4, math.Abs(predictedReturn)*10)

	pred := &models.PricePrediction{
		Symbol:         symbol,
		CurrentPrice:   current,
		PredictedPrice: current * (1 + predictedReturn),
		Confidence:     confidence,
		ModelUsed:      o.Name(),
		CreatedAt:      time.Now(),
	}
	pred.Direction = models.DirectionFor(pred.ChangePct())
	return pred, nil
}

// Close releases the session and its tensors.
func (o *ONNXPredictor) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
	if o.input != nil {
		o.input.Destroy()
		o.input = nil
	}
	if o.output != nil {
		o.output.Destroy()
		o.output = nil
	}
	return nil
}
