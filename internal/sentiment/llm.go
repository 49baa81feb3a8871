package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/resilience"
)

// LLMClient is the completion surface the analyzer needs.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient implements LLMClient using the OpenAI chat API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIClient(apiKey, model string, temperature float64) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: float32(temperature),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

const sentimentSystemPrompt = `You are a financial news analyst. Given recent headlines about a stock, assess the overall sentiment for the stock over the next trading day.

Respond with exactly three lines:
SENTIMENT: <BULLISH|BEARISH|NEUTRAL>
CONFIDENCE: <integer 0-100>
REASONING: <one sentence>`

// LLMAnalyzer asks a chat model to read the day's coverage. The response
// contract is line-oriented and strict: anything that does not parse is an
// error so the chain can fall back to the lexicon.
type LLMAnalyzer struct {
	client      LLMClient
	breaker     *resilience.CircuitBreaker
	maxArticles int
}

func NewLLMAnalyzer(client LLMClient, breaker *resilience.CircuitBreaker, maxArticles int) *LLMAnalyzer {
	if maxArticles <= 0 {
		maxArticles = 10
	}
	return &LLMAnalyzer{
		client:      client,
		breaker:     breaker,
		maxArticles: maxArticles,
	}
}

func (a *LLMAnalyzer) Name() string { return "llm" }

func (a *LLMAnalyzer) Analyze(ctx context.Context, symbol string, items []models.NewsItem) (*models.SentimentResult, error) {
	if len(items) == 0 {
		return nil, errors.Wrapf(errors.ErrSentimentUnavailable, "%s: no news items", symbol)
	}
	if len(items) > a.maxArticles {
		items = items[:a.maxArticles]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Headlines for %s:\n", symbol)
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s", i+1, item.Title)
		if item.Source != "" {
			fmt.Fprintf(&sb, " (%s)", item.Source)
		}
		sb.WriteString("\n")
	}

	raw, err := resilience.ExecuteWithResult(a.breaker, ctx, func() (string, error) {
		return a.client.Complete(ctx, sentimentSystemPrompt, sb.String())
	})
	if err != nil {
		return nil, errors.NewSentimentError(symbol, a.Name(), "completion failed", err)
	}

	result, err := parseSentimentResponse(raw)
	if err != nil {
		return nil, errors.NewSentimentError(symbol, a.Name(), "malformed response", err)
	}
	result.Symbol = symbol
	result.SampleCount = len(items)
	result.Provider = a.Name()
	result.CreatedAt = time.Now()
	return result, nil
}

// parseSentimentResponse parses the strict three-line response contract.
func parseSentimentResponse(raw string) (*models.SentimentResult, error) {
	var (
		label          models.SentimentLabel
		confidence     float64
		reasoning      string
		haveLabel      bool
		haveConfidence bool
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SENTIMENT:"):
			value := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "SENTIMENT:")))
			switch value {
			case "BULLISH":
				label = models.SentimentBullish
			case "BEARISH":
				label = models.SentimentBearish
			case "NEUTRAL":
				label = models.SentimentNeutral
			default:
				return nil, fmt.Errorf("unknown sentiment %q", value)
			}
			haveLabel = true
		case strings.HasPrefix(line, "CONFIDENCE:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			value = strings.TrimSuffix(value, "%")
			pct, err := strconv.Atoi(value)
			if err != nil || pct < 0 || pct > 100 {
				return nil, fmt.Errorf("bad confidence %q", value)
			}
			confidence = float64(pct) / 100
			haveConfidence = true
		case strings.HasPrefix(line, "REASONING:"):
			reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))
		}
	}

	if !haveLabel || !haveConfidence {
		return nil, fmt.Errorf("response missing SENTIMENT or CONFIDENCE line")
	}

	var score float64
	switch label {
	case models.SentimentBullish:
		score = confidence
	case models.SentimentBearish:
		score = -confidence
	}

	return &models.SentimentResult{
		Label:      label,
		Confidence: confidence,
		Score:      score,
		Reasoning:  reasoning,
	}, nil
}
