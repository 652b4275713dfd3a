package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/local/lessonplanner/internal/config"
)

type AnthropicClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

func NewAnthropicClient(cfg config.ProviderConfig, httpClient *http.Client) *AnthropicClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.anthropic.com/v1"
	}
	return &AnthropicClient{http: httpClient, apiKey: cfg.APIKey, model: cfg.Model, baseURL: base}
}

func (c *AnthropicClient) Name() string     { return "anthropic" }
func (c *AnthropicClient) Model() string    { return c.model }
func (c *AnthropicClient) Configured() bool { return c.apiKey != "" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMsgReq struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMsgResp struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Do sends a messages request. The API has no schema-constrained mode here,
// so the schema travels in the system prompt and the reply is free text.
func (c *AnthropicClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, fmt.Errorf("anthropic: %w: ANTHROPIC_API_KEY", ErrMissingCredential)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	system := req.SystemPrompt
	if req.Schema != nil {
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object that validates against this JSON Schema and nothing else:\n" + req.Schema.String())
	}

	payload := anthropicMsgReq{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, &HTTPError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: string(b)}
	}

	var r anthropicMsgResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Response{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	if r.StopReason == "refusal" {
		return Response{}, fmt.Errorf("anthropic: %w", ErrContentRefused)
	}
	var sb strings.Builder
	for _, part := range r.Content {
		if part.Type == "" || part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return Response{}, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return Response{Text: sb.String(), TokensIn: r.Usage.InputTokens, TokensOut: r.Usage.OutputTokens}, nil
}
