package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// BaseURL is the Telegram Bot API base URL.
const BaseURL = "https://api.telegram.org"

// ErrNotConfigured is returned when the bot token or channel is missing.
var ErrNotConfigured = errors.New("telegram credentials not configured")

// APIError is a failure reported by the Bot API itself (ok=false).
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// Client posts to a single channel through the Bot API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatID     string
	debug      bool
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient constructs a client posting to chatID.
func NewClient(token, chatID string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		token:      token,
		chatID:     chatID,
		debug:      os.Getenv("ENV") == "development",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both token and channel are set.
func (c *Client) Configured() bool {
	return c.token != "" && c.chatID != ""
}

// SendPhoto posts photoURL with an HTML caption and returns the message id.
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	req := SendPhotoRequest{
		ChatID:    c.chatID,
		Photo:     photoURL,
		Caption:   caption,
		ParseMode: "HTML",
	}
	var resp Response[Message]
	if err := c.doRequest(ctx, "sendPhoto", req, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", &APIError{Code: resp.ErrorCode, Description: resp.Description}
	}
	return strconv.FormatInt(resp.Result.MessageID, 10), nil
}

// doRequest POSTs body as JSON to method and decodes the envelope into
// result regardless of HTTP status, since errors are described in the body.
func (c *Client) doRequest(ctx context.Context, method string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("method", method).
			Int("status_code", resp.StatusCode).
			RawJSON("response", respBody).
			Msg("[TELEGRAM] Incoming response")
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
