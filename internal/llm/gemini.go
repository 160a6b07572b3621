package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	structuredTemperature = 0.1
	openEndedTemperature  = 0.7
	maxOutputTokens       = 1024
)

// jsonOnlyInstruction is appended to the final user message on structured
// calls, on top of the API-level response MIME type constraint.
const jsonOnlyInstruction = "Respond with a single valid JSON object and nothing else. No prose, no markdown fences."

// GeminiClient calls the Gemini generateContent API over plain HTTP.
type GeminiClient struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// GeminiOption customizes a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.httpClient = hc }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg RetryConfig) GeminiOption {
	return func(c *GeminiClient) { c.retryConfig = cfg }
}

// NewGeminiClient creates a Gemini-backed gateway. The model name defaults
// to gemini-2.0-flash when empty.
func NewGeminiClient(apiKey, model string, logger *slog.Logger, opts ...GeminiOption) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c := &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retryConfig: DefaultRetryConfig,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  map[string]any  `json:"generationConfig"`
}

// Complete sends the ordered messages to Gemini and returns the assistant
// text. Transient failures are retried with exponential backoff; after the
// final attempt the GatewayError propagates to the caller.
func (c *GeminiClient) Complete(ctx context.Context, messages []Message, structured bool) (string, error) {
	if c.apiKey == "" {
		return "", &GatewayError{Code: ErrRejected, Message: "Gemini API key not configured", Retryable: false}
	}

	body, err := c.buildRequest(messages, structured)
	if err != nil {
		return "", err
	}

	out, err := WithRetry(ctx, c.retryConfig, func(ctx context.Context) (string, error) {
		return c.call(ctx, body)
	})
	if err != nil && c.logger != nil {
		c.logger.Warn("completion failed after retries", "model", c.model, "structured", structured, "error", err)
	}
	return out, err
}

func (c *GeminiClient) buildRequest(messages []Message, structured bool) ([]byte, error) {
	req := geminiRequest{
		GenerationConfig: map[string]any{
			"temperature":     openEndedTemperature,
			"maxOutputTokens": maxOutputTokens,
		},
	}
	if structured {
		req.GenerationConfig["temperature"] = structuredTemperature
		req.GenerationConfig["responseMimeType"] = "application/json"
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(req.Contents) == 0 {
		return nil, &GatewayError{Code: ErrRejected, Message: "no user messages", Retryable: false}
	}
	if structured {
		last := &req.Contents[len(req.Contents)-1]
		last.Parts = append(last.Parts, geminiPart{Text: jsonOnlyInstruction})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return body, nil
}

func (c *GeminiClient) call(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Code: ErrUnavailable, Message: "completion request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GatewayError{Code: ErrUnavailable, Message: "read response", Retryable: true, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &GatewayError{Code: ErrRejected, Message: "malformed completion envelope", Retryable: false, Cause: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &GatewayError{Code: ErrEmptyReply, Message: "empty completion", Retryable: true}
	}

	var sb bytes.Buffer
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// classifyHTTPError converts non-200 statuses to GatewayErrors. Rate limits
// and server errors are retryable; client errors are not.
func classifyHTTPError(statusCode int, body string) *GatewayError {
	if statusCode == http.StatusTooManyRequests {
		return &GatewayError{
			Code:      ErrRateLimited,
			Message:   "completion service rate limited",
			Retryable: true,
		}
	}
	return &GatewayError{
		Code:      ErrUnavailable,
		Message:   fmt.Sprintf("completion service error (HTTP %d): %s", statusCode, truncate(body, 200)),
		Retryable: statusCode >= 500,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
