package ai

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
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoAPIKey signals that the client was constructed without credentials.
var ErrNoAPIKey = errors.New("ai: api key is not configured")

// ClientOption customises the Gemini client.
type ClientOption func(*Client)

// WithBaseURL overrides the upstream endpoint, primarily for testing.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client is a minimal Gemini generateContent client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Gemini client. An empty API key is allowed; calls will
// fail with ErrNoAPIKey so callers can fall back gracefully.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GenerateRequest describes one generateContent call.
type GenerateRequest struct {
	Model           string
	System          string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
	JSONResponse    bool
}

type generateContentBody struct {
	SystemInstruction *content          `json:"system_instruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent performs one model call and returns the concatenated text
// of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNoAPIKey
	}
	if strings.TrimSpace(req.Model) == "" {
		return "", errors.New("ai: model is required")
	}

	body := generateContentBody{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	cfg := &generationConfig{MaxOutputTokens: req.MaxOutputTokens}
	if req.Temperature > 0 {
		temp := req.Temperature
		cfg.Temperature = &temp
	}
	if req.JSONResponse {
		cfg.ResponseMimeType = "application/json"
	}
	if cfg.MaxOutputTokens > 0 || cfg.Temperature != nil || cfg.ResponseMimeType != "" {
		body.GenerationConfig = cfg
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ai: call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("ai: upstream error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("ai: upstream status %d", resp.StatusCode)
	}

	if len(parsed.Candidates) == 0 {
		return "", errors.New("ai: empty response")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("ai: empty response")
	}
	return text, nil
}
