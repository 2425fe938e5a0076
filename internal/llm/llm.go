// Package llm defines the narrow LLM client interface promptgen drives its
// validate-retry loop against, plus OpenAI/Gemini adapters.
package llm

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Client is the surface promptgen needs from any model provider: a single
// prompt-in, text-out completion call.
type Client interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

// Params configures a provider client's connection.
type Params struct {
	BaseURL string
	APIKey  string
}

// Option configures Params, following this codebase's functional-options
// convention.
type Option func(*Params)

func WithBaseURL(baseURL string) Option {
	return func(p *Params) { p.BaseURL = baseURL }
}

func WithAPIKey(apiKey string) Option {
	return func(p *Params) { p.APIKey = apiKey }
}

// OpenAIClient adapts github.com/openai/openai-go to Client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds an OpenAIClient, falling back to
// OPENAI_API_BASE_URL / OPENAI_API_KEY when not given explicitly.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	params := &Params{}
	for _, opt := range opts {
		opt(params)
	}
	if params.BaseURL == "" {
		params.BaseURL = os.Getenv("OPENAI_API_BASE_URL")
		if params.BaseURL == "" {
			params.BaseURL = "https://api.openai.com/v1/"
		}
	}
	if params.APIKey == "" {
		params.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	var client *openai.Client
	if params.APIKey != "" {
		client = openai.NewClient(
			option.WithAPIKey(params.APIKey),
			option.WithBaseURL(params.BaseURL),
		)
	} else {
		client = openai.NewClient(option.WithBaseURL(params.BaseURL))
	}
	log.Println("llm: using OpenAI base URL", params.BaseURL)
	return &OpenAIClient{client: client}
}

func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(model),
	})
	if err != nil {
		return "", err
	}
	return completion.Choices[0].Message.Content, nil
}

// GeminiClient adapts google.golang.org/genai to Client.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient builds a GeminiClient, falling back to GEMINI_API_KEY
// when APIKey is not given explicitly.
func NewGeminiClient(ctx context.Context, opts ...Option) (*GeminiClient, error) {
	params := &Params{}
	for _, opt := range opts {
		opt(params)
	}
	apiKey := params.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: no GEMINI_API_KEY set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGoogleAI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	result, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("llm: empty response from gemini")
	}
	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
