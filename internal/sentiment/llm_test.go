package sentiment

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/resilience"
)

type fakeLLM struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testBreaker(name string) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(name, resilience.DefaultCircuitBreakerConfig())
}

func TestLLMAnalyzer_ParsesWellFormedResponse(t *testing.T) {
	client := &fakeLLM{response: "SENTIMENT: BULLISH\nCONFIDENCE: 80\nREASONING: Strong earnings coverage."}
	a := NewLLMAnalyzer(client, testBreaker("openai"), 10)

	got, err := a.Analyze(context.Background(), "AAPL", headlines("Apple beats estimates"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Label != models.SentimentBullish {
		t.Errorf("Label = %v, want BULLISH", got.Label)
	}
	if got.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}
	if got.Score != 0.8 {
		t.Errorf("Score = %v, want 0.8", got.Score)
	}
	if got.Reasoning != "Strong earnings coverage." {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}
	if got.Provider != "llm" {
		t.Errorf("Provider = %q, want llm", got.Provider)
	}
	if got.SampleCount != 1 {
		t.Errorf("SampleCount = %d, want 1", got.SampleCount)
	}
}

func TestLLMAnalyzer_BearishScoreIsNegative(t *testing.T) {
	client := &fakeLLM{response: "SENTIMENT: BEARISH\nCONFIDENCE: 65%\nREASONING: Lawsuit coverage dominates."}
	a := NewLLMAnalyzer(client, testBreaker("openai"), 10)

	got, err := a.Analyze(context.Background(), "AAPL", headlines("Apple sued"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Label != models.SentimentBearish {
		t.Errorf("Label = %v, want BEARISH", got.Label)
	}
	if got.Score != -0.65 {
		t.Errorf("Score = %v, want -0.65", got.Score)
	}
}

func TestLLMAnalyzer_MalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"free text", "The sentiment looks positive to me."},
		{"unknown label", "SENTIMENT: MIXED\nCONFIDENCE: 50\nREASONING: unclear"},
		{"confidence out of range", "SENTIMENT: BULLISH\nCONFIDENCE: 140\nREASONING: x"},
		{"confidence not a number", "SENTIMENT: BULLISH\nCONFIDENCE: high\nREASONING: x"},
		{"missing confidence", "SENTIMENT: BULLISH\nREASONING: x"},
		{"missing sentiment", "CONFIDENCE: 70\nREASONING: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeLLM{response: tt.response}
			a := NewLLMAnalyzer(client, testBreaker("openai"), 10)

			_, err := a.Analyze(context.Background(), "AAPL", headlines("Apple news"))
			var serr *errors.SentimentError
			if !errors.As(err, &serr) {
				t.Fatalf("Analyze() error = %v, want *errors.SentimentError", err)
			}
		})
	}
}

func TestLLMAnalyzer_CompletionFailure(t *testing.T) {
	client := &fakeLLM{err: stderrors.New("rate limited")}
	a := NewLLMAnalyzer(client, testBreaker("openai"), 10)

	_, err := a.Analyze(context.Background(), "AAPL", headlines("Apple news"))
	var serr *errors.SentimentError
	if !errors.As(err, &serr) {
		t.Fatalf("Analyze() error = %v, want *errors.SentimentError", err)
	}
}

func TestLLMAnalyzer_TruncatesToMaxArticles(t *testing.T) {
	client := &fakeLLM{response: "SENTIMENT: NEUTRAL\nCONFIDENCE: 50\nREASONING: mixed"}
	a := NewLLMAnalyzer(client, testBreaker("openai"), 2)

	items := headlines("one", "two", "three", "four")
	got, err := a.Analyze(context.Background(), "AAPL", items)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", got.SampleCount)
	}
	if strings.Contains(client.lastUser, "three") {
		t.Errorf("prompt contains truncated headline: %q", client.lastUser)
	}
	if !strings.Contains(client.lastUser, "two") {
		t.Errorf("prompt missing kept headline: %q", client.lastUser)
	}
}

func TestLLMAnalyzer_NoItems(t *testing.T) {
	client := &fakeLLM{response: "SENTIMENT: NEUTRAL\nCONFIDENCE: 50\nREASONING: x"}
	a := NewLLMAnalyzer(client, testBreaker("openai"), 10)

	_, err := a.Analyze(context.Background(), "AAPL", nil)
	if !errors.Is(err, errors.ErrSentimentUnavailable) {
		t.Fatalf("Analyze() error = %v, want ErrSentimentUnavailable", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times with no items, want 0", client.calls)
	}
}

func TestParseSentimentResponse_IgnoresSurroundingNoise(t *testing.T) {
	raw := "Here is my assessment.\n\nSENTIMENT: neutral\nCONFIDENCE: 55\nREASONING: Coverage is mixed.\nThanks!"
	got, err := parseSentimentResponse(raw)
	if err != nil {
		t.Fatalf("parseSentimentResponse() error = %v", err)
	}
	if got.Label != models.SentimentNeutral {
		t.Errorf("Label = %v, want NEUTRAL", got.Label)
	}
	if got.Confidence != 0.55 {
		t.Errorf("Confidence = %v, want 0.55", got.Confidence)
	}
	if got.Score != 0 {
		t.Errorf("Score = %v, want 0 for NEUTRAL", got.Score)
	}
}
