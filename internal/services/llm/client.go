package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyglot/internal/config"
)

const (
	// DefaultBaseURL is the chat-completion endpoint used when none is configured.
	DefaultBaseURL = "https://api.x.ai/v1/chat/completions"
	// DefaultModel is the model requested when none is configured.
	DefaultModel = "grok-beta"
	// DefaultSystemPrompt is the fixed instruction sent ahead of every prompt.
	DefaultSystemPrompt = "You are a professional translator and content localizer. Translate and adapt the content while preserving HTML formatting and maintaining cultural relevance for the target audience."

	defaultTimeoutSeconds = 120
	minTimeoutSeconds     = 30
	maxTimeoutSeconds     = 300

	requestTemperature = 0.3
	requestMaxTokens   = 4000

	testPrompt = `Test: Translate "Hello World" to Spanish.`
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	SystemPrompt   string
	TimeoutSeconds int
}

// FromConfig extracts the client settings from the [llm] section.
func FromConfig(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		SystemPrompt:   cfg.LLM.SystemPrompt,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}
}

// DefaultHTTPTimeout returns the default timeout used for LLM requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultTimeoutSeconds * time.Second
}

// ClampTimeoutSeconds bounds a configured timeout to the supported range.
// Zero or negative values select the default.
func ClampTimeoutSeconds(seconds int) int {
	switch {
	case seconds <= 0:
		return defaultTimeoutSeconds
	case seconds < minTimeoutSeconds:
		return minTimeoutSeconds
	case seconds > maxTimeoutSeconds:
		return maxTimeoutSeconds
	default:
		return seconds
	}
}

// Client wraps the chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := ClampTimeoutSeconds(cfg.TimeoutSeconds)
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			SystemPrompt:   strings.TrimSpace(cfg.SystemPrompt),
			TimeoutSeconds: timeout,
		},
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = DefaultModel
	}
	if client.cfg.SystemPrompt == "" {
		client.cfg.SystemPrompt = DefaultSystemPrompt
	}
	return client
}

// Model reports the model requested by the client.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Translate sends prompt to the model and returns the first choice's content.
// The returned text may be empty; callers decide whether that is a failure.
func (c *Client) Translate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &ConfigError{Message: "API key not configured"}
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: requestTemperature,
		MaxTokens:   requestMaxTokens,
	}
	return c.sendChatRequestOnce(ctx, payload)
}

// TestConnection issues the fixed test prompt and reports whether it
// produced a non-empty reply.
func (c *Client) TestConnection(ctx context.Context) bool {
	return c.CheckConnection(ctx) == nil
}

// CheckConnection is TestConnection with the failure preserved.
func (c *Client) CheckConnection(ctx context.Context) error {
	content, err := c.Translate(ctx, testPrompt)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return &APIError{Status: http.StatusOK, Message: "API returned empty response"}
	}
	return nil
}

// ConnectionMessage renders the operator-facing result of CheckConnection.
func (c *Client) ConnectionMessage(err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("Connection successful! Using model: %s", c.cfg.Model)
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Message: remoteErrorMessage(resp.StatusCode, body)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &APIError{Status: resp.StatusCode, Message: "Invalid API response format"}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message == nil || completion.Choices[0].Message.Content == nil {
		return "", &APIError{Status: resp.StatusCode, Message: "Invalid API response format"}
	}
	return *completion.Choices[0].Message.Content, nil
}

func remoteErrorMessage(status int, body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("API request failed with status %d", status)
}

// IsTimeout reports whether err is a transport failure caused by a deadline.
func IsTimeout(err error) bool {
	var transport *TransportError
	if !errors.As(err, &transport) {
		return false
	}
	if errors.Is(transport.Err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(transport.Err, &timeout) && timeout.Timeout()
}

// SummarizePayload condenses text for log fields.
func SummarizePayload(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
