// Package llm turns news items into prediction topics through an
// OpenAI-compatible chat completion API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/pkg/httpclient"
)

const (
	DefaultEndpoint    = "https://llm.chutes.ai/v1/chat/completions"
	DefaultModel       = "deepseek-ai/DeepSeek-V3-0324"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation and returns the assistant's reply text.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
}

// Config configures a Client.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client talks to the Chutes chat completion endpoint in JSON mode.
type Client struct {
	cfg  Config
	http *httpclient.Client
}

var _ Completer = (*Client)(nil)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a Client. Zero values in cfg select the defaults.
func NewClient(cfg Config, client *httpclient.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Client{cfg: cfg, http: client}
}

// Model reports the model name sent with each request.
func (c *Client) Model() string { return c.cfg.Model }

// ChatCompletion requests a JSON object reply. An absent first choice yields
// an empty string.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	if c.cfg.APIKey == "" {
		return "", apperr.Config("CHUTES_API_KEY environment variable is not set")
	}

	body, err := json.Marshal(chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	var resp chatResponse
	if err := c.http.DoJSON(ctx, req, &resp); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return "", &apperr.UpstreamError{Provider: "Chutes", StatusCode: se.StatusCode, Body: se.Body}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
