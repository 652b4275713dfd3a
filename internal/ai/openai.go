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

type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAIClient builds a client from provider settings. A nil httpClient uses a fresh default.
func NewOpenAIClient(cfg config.ProviderConfig, httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &OpenAIClient{http: httpClient, apiKey: cfg.APIKey, model: cfg.Model, baseURL: base}
}

func (c *OpenAIClient) Name() string     { return "openai" }
func (c *OpenAIClient) Model() string    { return c.model }
func (c *OpenAIClient) Configured() bool { return c.apiKey != "" }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIChatReq struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, fmt.Errorf("openai: %w: OPENAI_API_KEY", ErrMissingCredential)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	var messages []openAIMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	payload := openAIChatReq{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != nil {
		payload.ResponseFormat = &openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openAIJSONSchema{Name: "course_plan", Schema: req.Schema.JSONSchema()},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
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

	var r openAIChatResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Response{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(r.Choices) == 0 {
		return Response{}, fmt.Errorf("openai: %w: no choices", ErrEmptyResponse)
	}
	msg := r.Choices[0].Message
	if msg.Refusal != "" {
		return Response{}, fmt.Errorf("openai: %w: %s", ErrContentRefused, msg.Refusal)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return Response{}, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return Response{
		Text:       msg.Content,
		TokensIn:   r.Usage.PromptTokens,
		TokensOut:  r.Usage.CompletionTokens,
		Structured: req.Schema != nil,
	}, nil
}
