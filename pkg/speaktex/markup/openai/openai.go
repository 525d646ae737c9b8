// Package openai implements the speaktex.MarkupClient interface on the
// OpenAI chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

const systemPrompt = `You convert spoken mathematical expressions into complete LaTeX code.

IMPORTANT FORMATTING RULES:
- For display equations (centered, large), wrap in $$...$$ (double dollar signs)
- For inline equations (small, in text), wrap in $...$ (single dollar signs)
- Use \begin{} and \end{} for matrices, aligned equations, cases, etc.
- Choose the most appropriate LaTeX format based on the expression complexity
- Include ALL necessary LaTeX delimiters in your output
- Return ONLY the LaTeX code, no explanations or markdown`

// Config options for the OpenAI markup client
type Config struct {
	APIKey  string
	Model   string        // Default: gpt-4o-mini
	BaseURL string        // Optional override for OpenAI-compatible services
	Timeout time.Duration // Per-request timeout (default: 30s)
}

// Client is an OpenAI implementation of the speaktex.MarkupClient interface
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new OpenAI markup client
func New(config Config) (speaktex.MarkupClient, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   config.Model,
		timeout: config.Timeout,
	}, nil
}

// ConvertToLaTeX wraps the transcript in appropriate LaTeX delimiters via
// one synchronous chat completion
func (c *Client) ConvertToLaTeX(ctx context.Context, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Spoken expression: %s", transcript),
			},
		},
		Temperature: 0.1,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}

	// Models occasionally fence the reply despite the instruction.
	latex := speaktex.StripCodeFences(resp.Choices[0].Message.Content)
	if latex == "" {
		return "", errors.New("empty LaTeX response")
	}

	return latex, nil
}
