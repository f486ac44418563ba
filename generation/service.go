package generation

import (
	"context"

	"github.com/andrewpaige1/doomdeck-api/models"
	openai "github.com/sashabaranov/go-openai"
)

// Request is one generation call: a free-text prompt and/or uploads.
type Request struct {
	Prompt string
	Files  []Upload
}

// Result is the outcome of a successful generation.
type Result struct {
	Flashcards []models.Flashcard
	Report     Report
}

type completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage) ([]models.Flashcard, error)
}

// Service builds the prompt for a request and asks the model for cards.
type Service struct {
	builder *Builder
	client  completer
}

func NewService(builder *Builder, client *Client) *Service {
	return &Service{builder: builder, client: client}
}

func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	messages, report, err := s.builder.Build(ctx, req.Prompt, req.Files)
	if err != nil {
		return nil, err
	}
	cards, err := s.client.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	return &Result{Flashcards: cards, Report: report}, nil
}
