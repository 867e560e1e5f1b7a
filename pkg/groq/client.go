package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// BaseURL is the Groq OpenAI-compatible API base URL.
	BaseURL = "https://api.groq.com/openai/v1"

	jsonOnlyPrompt = "You are a JSON-only response bot. You MUST respond with ONLY a valid JSON object. " +
		"No explanations, no markdown, no text before or after the JSON. Start your response with { and end with }."
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("groq api key not configured")

// Client is a minimal chat-completions client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	debug      bool
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default 30s-timeout HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient constructs a new Groq client.
func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		apiKey:     apiKey,
		model:      model,
		debug:      os.Getenv("ENV") == "development",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON sends prompt with a JSON-only system instruction and returns
// the JSON object extracted from the reply.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, temperature float64) (string, error) {
	raw, err := c.Complete(ctx, jsonOnlyPrompt, prompt, temperature)
	if err != nil {
		return "", err
	}

	content := ExtractJSON(raw)
	if content == "" {
		log.Error().Str("raw_content", raw).Msg("Failed to extract JSON from AI response")
		return "", fmt.Errorf("no valid JSON found in AI response. Raw: %s", truncate(raw, 200))
	}
	return content, nil
}

// Complete sends one system and one user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq api error (status %d): %s", resp.StatusCode, truncate(string(body), 300))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no response from Groq API")
	}

	content := result.Choices[0].Message.Content
	if c.debug {
		log.Debug().Str("raw_response", content).Msg("[GROQ] Raw AI response")
	}
	return content, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
