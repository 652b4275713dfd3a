package ai

import (
	"context"
	"encoding/json"
)

// Request is a single structured completion request.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	// Schema constrains the output when the provider supports it; providers
	// that don't get it embedded in the instructions instead.
	Schema      *Schema
	Temperature float64
	MaxTokens   int
}

// Response is the raw completion text plus usage.
type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
	// Structured reports whether the provider enforced Schema itself.
	Structured bool
}

// Client interface for providers like Gemini, OpenAI, Anthropic.
type Client interface {
	Name() string
	Model() string
	// Configured reports whether a credential is present. Checked before any request.
	Configured() bool
	Do(ctx context.Context, req Request) (Response, error)
}

// SchemaType is the JSON type of a schema node.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral subset of JSON Schema, enough to describe
// nested objects and arrays of scalars.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	// Order lists property names in the order they should be generated.
	Order []string `json:"-"`
}

// JSONSchema renders the schema as a JSON Schema document. Objects are
// closed (additionalProperties false).
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Type == TypeObject {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
		out["additionalProperties"] = false
		if len(s.Required) > 0 {
			out["required"] = append([]string(nil), s.Required...)
		}
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	return out
}

// String renders the JSON Schema document, indented, for embedding in prompts.
func (s *Schema) String() string {
	b, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
