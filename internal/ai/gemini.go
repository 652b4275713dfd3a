package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/local/lessonplanner/internal/config"
)

// GeminiClient calls the Gemini API through the official genai SDK using
// schema-constrained JSON output.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiClient(cfg config.ProviderConfig, httpClient *http.Client) *GeminiClient {
	return &GeminiClient{apiKey: cfg.APIKey, model: cfg.Model, baseURL: cfg.BaseURL, http: httpClient}
}

func (c *GeminiClient) Name() string     { return "gemini" }
func (c *GeminiClient) Model() string    { return c.model }
func (c *GeminiClient) Configured() bool { return c.apiKey != "" }

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.http,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	cl, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	c.client = cl
	return cl, nil
}

func (c *GeminiClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, fmt.Errorf("gemini: %w: GEMINI_API_KEY", ErrMissingCredential)
	}
	cl, err := c.sdk(ctx)
	if err != nil {
		return Response{}, err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := cl.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), gc)
	if err != nil {
		return Response{}, mapGeminiError(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return Response{}, fmt.Errorf("gemini: %w: %s", ErrContentRefused, resp.PromptFeedback.BlockReason)
		}
		return Response{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	out := Response{Text: text, Structured: req.Schema != nil}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// mapGeminiError turns SDK API errors into HTTPError so status based
// classification works the same for every provider. Gemini rejects a bad key
// with 400 INVALID_ARGUMENT rather than 401, so that case is marked as
// unauthorized explicitly.
func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return err
		}
		apiErr = *ptr
	}
	httpErr := &HTTPError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	if invalidAPIKey(apiErr) {
		return fmt.Errorf("gemini: %w: %w", ErrUnauthorized, httpErr)
	}
	return httpErr
}

func invalidAPIKey(e genai.APIError) bool {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return false
	}
	for _, d := range e.Details {
		if reason, _ := d["reason"].(string); reason == "API_KEY_INVALID" {
			return true
		}
	}
	return e.Status == "INVALID_ARGUMENT" && strings.Contains(strings.ToLower(e.Message), "api key not valid")
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description:      s.Description,
		Required:         append([]string(nil), s.Required...),
		PropertyOrdering: append([]string(nil), s.Order...),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeInteger:
		out.Type = genai.TypeInteger
	case TypeNumber:
		out.Type = genai.TypeNumber
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	return out
}
