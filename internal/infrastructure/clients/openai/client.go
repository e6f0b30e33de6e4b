package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/providers"
	"github.com/pakkapols/techfinder/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client calls the OpenAI chat completions API. It implements both the
// Interpreter and Responder collaborator interfaces; every caller is
// expected to hold a deterministic local fallback for when a call fails.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

var _ providers.Interpreter = (*Client)(nil)
var _ providers.Responder = (*Client)(nil)

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: newTokenBucket(60, 5),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type interpretationPayload struct {
	Query struct {
		Categories []string `json:"categories"`
		MaxPrice   *float64 `json:"max_price"`
	} `json:"query"`
	Phrases []struct {
		Text string `json:"text"`
		Tag  string `json:"tag"`
	} `json:"phrases"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// Interpret asks the model to classify the utterance's phrases and sketch a
// structured query over the whitelisted fields.
func (c *Client) Interpret(ctx context.Context, utterance string, schema providers.SchemaContext) (*providers.Interpretation, error) {
	text, err := c.complete(ctx, interpreterSystemPrompt, buildInterpreterUserPrompt(utterance, schema), 0.1)
	if err != nil {
		return nil, err
	}

	var payload interpretationPayload
	if err := json.Unmarshal([]byte(stripMarkdownFences(text)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrInterpreterParse, err)
	}

	interp := &providers.Interpretation{
		Query: entities.StructuredQuery{
			Categories:  payload.Query.Categories,
			MaxPrice:    payload.Query.MaxPrice,
			InStockOnly: true,
		},
		Reasoning:  payload.Reasoning,
		Confidence: payload.Confidence,
	}
	for _, p := range payload.Phrases {
		tag := entities.PhraseTag(strings.ToLower(p.Tag))
		if p.Text == "" || !tag.IsValid() {
			continue
		}
		interp.Phrases = append(interp.Phrases, entities.Phrase{Text: p.Text, Tag: tag})
	}
	if len(interp.Phrases) == 0 {
		return nil, fmt.Errorf("%w: no usable phrases", providers.ErrInterpreterParse)
	}
	return interp, nil
}

// Render produces the user-facing recommendation text.
func (c *Client) Render(ctx context.Context, utterance string, query entities.StructuredQuery, reasoning string, results []entities.RankedResult) (string, error) {
	text, err := c.complete(ctx, responderSystemPrompt, buildResponderUserPrompt(utterance, query, reasoning, results), 0.7)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", providers.ErrInterpreterUnavailable, err)
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrInterpreterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: openai request failed with status %d", providers.ErrInterpreterUnavailable, resp.StatusCode)
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrInterpreterParse, err)
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: response missing content", providers.ErrInterpreterParse)
	}
	return envelope.Choices[0].Message.Content, nil
}

func stripMarkdownFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &tokenBucket{tokens: make(chan struct{}, burst)}
	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
