package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andrewpaige1/doomdeck-api/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel     = openai.GPT4o
	DefaultMaxTokens = 4096
)

// ErrNoContent means the provider answered without any message content.
var ErrNoContent = errors.New("no content received from model provider")

// Completer is the slice of the OpenAI client used here.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config captures the settings needed to talk to the model provider.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Client requests JSON-mode completions and parses them into flashcards.
type Client struct {
	api       Completer
	model     string
	maxTokens int
}

// NewClient builds a Client backed by the OpenAI API (or any compatible
// endpoint when BaseURL is set).
func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return NewClientWithCompleter(openai.NewClientWithConfig(apiCfg), cfg)
}

// NewClientWithCompleter builds a Client around an existing Completer.
func NewClientWithCompleter(api Completer, cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Client{api: api, model: model, maxTokens: maxTokens}
}

// Complete sends messages once and returns the parsed cards. There is no
// retry: any failure is returned to the caller.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) ([]models.Flashcard, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices: %w", ErrNoContent)
	}

	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return nil, fmt.Errorf("chat completion (finish_reason=%q, refusal=%q): %w",
			choice.FinishReason, choice.Message.Refusal, ErrNoContent)
	}
	slog.Debug("Complete: received model output", "model", c.model, "chars", len(content))

	return ParseFlashcards(content)
}
