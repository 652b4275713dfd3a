package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/local/lessonplanner/internal/config"
)

func testSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"name": {Type: TypeString},
			"tags": {Type: TypeArray, Items: &Schema{Type: TypeInteger}},
		},
		Required: []string{"name"},
		Order:    []string{"name", "tags"},
	}
}

func TestOpenAIClientSendsSchemaAndParses(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"name\":\"x\"}"}}],"usage":{"prompt_tokens":11,"completion_tokens":7}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(config.ProviderConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: srv.URL + "/"}, srv.Client())
	resp, err := c.Do(context.Background(), Request{SystemPrompt: "sys", Prompt: "hi", Schema: testSchema(), Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"x"}`, resp.Text)
	assert.Equal(t, 11, resp.TokensIn)
	assert.Equal(t, 7, resp.TokensOut)
	assert.True(t, resp.Structured)

	assert.Equal(t, "gpt-test", got["model"])
	rf, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	msgs := got["messages"].([]any)
	assert.Len(t, msgs, 2)
}

func TestOpenAIClientMissingKey(t *testing.T) {
	c := NewOpenAIClient(config.ProviderConfig{}, nil)
	assert.False(t, c.Configured())
	_, err := c.Do(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.True(t, IsAuthError(err))
}

func TestOpenAIClientStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		class  string
	}{
		{http.StatusUnauthorized, "auth"},
		{http.StatusForbidden, "auth"},
		{http.StatusTooManyRequests, "rate_limited"},
		{http.StatusBadGateway, "transient"},
		{http.StatusBadRequest, "fatal"},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		c := NewOpenAIClient(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
		_, err := c.Do(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, tc.status, httpErr.StatusCode)
		assert.Equal(t, tc.class, Classify(err), "status %d", tc.status)
		srv.Close()
	}
}

func TestOpenAIClientEmptyAndRefusal(t *testing.T) {
	bodies := map[string]error{
		`{"choices":[]}`: ErrEmptyResponse,
		`{"choices":[{"message":{"content":"  "}}]}`:              ErrEmptyResponse,
		`{"choices":[{"message":{"content":"","refusal":"no"}}]}`: ErrContentRefused,
	}
	for body, want := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := NewOpenAIClient(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
		_, err := c.Do(context.Background(), Request{Prompt: "x"})
		assert.ErrorIs(t, err, want, body)
		srv.Close()
	}
}

func TestOpenAIClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOpenAIClient(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "timeout", Classify(err))
}

func TestAnthropicClientEmbedsSchema(t *testing.T) {
	var got anthropicMsgReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Here you go: {\"name\":\"x\"}"}],"usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(config.ProviderConfig{APIKey: "k", Model: "claude-test", BaseURL: srv.URL}, srv.Client())
	resp, err := c.Do(context.Background(), Request{SystemPrompt: "sys", Prompt: "hi", Schema: testSchema()})
	require.NoError(t, err)

	assert.False(t, resp.Structured)
	assert.Contains(t, resp.Text, `{"name":"x"}`)
	assert.Equal(t, 3, resp.TokensIn)
	assert.Contains(t, got.System, `"additionalProperties": false`)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 8192, got.MaxTokens)
}

func TestAnthropicClientMissingKey(t *testing.T) {
	_, err := NewAnthropicClient(config.ProviderConfig{}, nil).Do(context.Background(), Request{})
	assert.True(t, IsAuthError(err))
}

func TestGeminiClientMissingKey(t *testing.T) {
	c := NewGeminiClient(config.ProviderConfig{Model: "gemini-test"}, nil)
	assert.False(t, c.Configured())
	assert.Equal(t, "gemini-test", c.Model())
	_, err := c.Do(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

const geminiBadKey = `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT",` +
	`"details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID","domain":"googleapis.com"}]}}`

func geminiServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(srv *httptest.Server) *GeminiClient {
	return NewGeminiClient(config.ProviderConfig{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL + "/"}, srv.Client())
}

func TestGeminiClientSendsSchemaAndParses(t *testing.T) {
	var got map[string]any
	srv := geminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"name\":\"x\"}"}]}}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":3}}`,
		&got)

	resp, err := newTestGemini(srv).Do(context.Background(), Request{SystemPrompt: "sys", Prompt: "hi", Schema: testSchema(), Temperature: 0.7, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, resp.Text)
	assert.Equal(t, 5, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)
	assert.True(t, resp.Structured)

	gen, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig sent")
	assert.Equal(t, "application/json", gen["responseMimeType"])
	schema, ok := gen["responseSchema"].(map[string]any)
	require.True(t, ok, "responseSchema sent")
	assert.Equal(t, "OBJECT", schema["type"])
	assert.InDelta(t, 0.7, gen["temperature"], 1e-6)
	assert.Contains(t, got, "systemInstruction")
	assert.Contains(t, got, "contents")
}

func TestGeminiClientBlockedPrompt(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, nil)
	_, err := newTestGemini(srv).Do(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrContentRefused)
	assert.Equal(t, "content_refused", Classify(err))
}

func TestGeminiClientEmptyCandidate(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  "}]}}]}`, nil)
	_, err := newTestGemini(srv).Do(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiClientAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  string
	}{
		{"invalid key", http.StatusBadRequest, geminiBadKey, "auth"},
		{"permission denied", http.StatusForbidden, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, "auth"},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"bad schema","status":"INVALID_ARGUMENT"}}`, "fatal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := geminiServer(t, tc.status, tc.body, nil)
			_, err := newTestGemini(srv).Do(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.status, httpErr.StatusCode)
			assert.Equal(t, tc.class, Classify(err))
		})
	}
}

func TestToGenaiSchema(t *testing.T) {
	g := toGenaiSchema(testSchema())
	assert.Equal(t, genai.TypeObject, g.Type)
	assert.Equal(t, []string{"name"}, g.Required)
	assert.Equal(t, []string{"name", "tags"}, g.PropertyOrdering)
	assert.Equal(t, genai.TypeString, g.Properties["name"].Type)
	assert.Equal(t, genai.TypeArray, g.Properties["tags"].Type)
	assert.Equal(t, genai.TypeInteger, g.Properties["tags"].Items.Type)
}

func TestSchemaJSONSchemaClosesObjects(t *testing.T) {
	js := testSchema().JSONSchema()
	assert.Equal(t, false, js["additionalProperties"])
	props := js["properties"].(map[string]any)
	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, map[string]any{"type": "integer"}, tags["items"])
}

func TestFactory(t *testing.T) {
	cfg := config.ProvidersConfig{Engine: "anthropic"}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	cfg.Engine = ""
	c, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())

	_, err = New(config.ProvidersConfig{Engine: "llama"}, nil)
	assert.Error(t, err)
}
