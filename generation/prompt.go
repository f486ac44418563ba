package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	openai "github.com/sashabaranov/go-openai"
	"github.com/vincent-petithory/dataurl"
)

const (
	SystemInstruction = "You are a helpful assistant that creates flashcards. Analyze all provided content and " +
		"return a JSON object of the form {\"flashcards\": [{\"front\": \"...\", \"back\": \"...\"}]} " +
		"where every flashcard has non-empty 'front' and 'back' string properties."
	FinalInstruction = "Based on all the content above, generate a comprehensive set of flashcards. Return them in JSON format."

	textInstruction  = "Create flashcards from this text: %s"
	imageInstruction = "Create flashcards from the content shown in this image:"
	pdfInstruction   = "Create flashcards from this document (%s, part %d of %d): %s"
)

// ErrNothingToGenerate means the request had no prompt and no file the
// model can use.
var ErrNothingToGenerate = errors.New("a prompt or at least one image/PDF file is required")

// Upload is a file received with a generation request.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Kind classifies the upload by sniffing its content, falling back to the
// declared content type when sniffing is inconclusive.
func (u Upload) Kind() (kind string, mediaType string) {
	detected := mimetype.Detect(u.Data)
	mediaType = detected.String()
	if detected.Is("application/octet-stream") && u.ContentType != "" {
		mediaType = u.ContentType
	}
	mediaType = strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0])

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return "image", mediaType
	case mediaType == "application/pdf":
		return "pdf", mediaType
	default:
		return "", mediaType
	}
}

// ChunkExtractor turns a PDF into prompt-sized text chunks.
type ChunkExtractor interface {
	ExtractChunks(ctx context.Context, name string, r io.Reader) ([]string, error)
}

// Report lists which uploads made it into the prompt.
type Report struct {
	Used    []string
	Skipped []string
}

// Builder assembles the ordered message list sent to the model.
type Builder struct {
	pdf ChunkExtractor
}

func NewBuilder(pdf ChunkExtractor) *Builder {
	return &Builder{pdf: pdf}
}

// Build returns the system instruction, the prompt, one message per image,
// one message per PDF chunk and the closing instruction, in that order. Files
// of any other type are skipped. A PDF extraction failure fails the build.
func (b *Builder) Build(ctx context.Context, prompt string, files []Upload) ([]openai.ChatCompletionMessage, Report, error) {
	var report Report
	var content []openai.ChatCompletionMessage

	if prompt = strings.TrimSpace(prompt); prompt != "" {
		content = append(content, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(textInstruction, prompt),
		})
	}

	for _, file := range files {
		kind, mediaType := file.Kind()
		switch kind {
		case "image":
			content = append(content, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: imageInstruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataurl.New(file.Data, mediaType).String(),
						},
					},
				},
			})
			report.Used = append(report.Used, file.Name)

		case "pdf":
			if b.pdf == nil {
				return nil, report, fmt.Errorf("pdf %s: no text extractor configured", file.Name)
			}
			chunks, err := b.pdf.ExtractChunks(ctx, file.Name, bytes.NewReader(file.Data))
			if err != nil {
				return nil, report, fmt.Errorf("process pdf %s: %w", file.Name, err)
			}
			for i, chunk := range chunks {
				content = append(content, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf(pdfInstruction, file.Name, i+1, len(chunks), chunk),
				})
			}
			report.Used = append(report.Used, file.Name)

		default:
			slog.Warn("Build: skipping unsupported file", "name", file.Name, "type", mediaType)
			report.Skipped = append(report.Skipped, file.Name)
		}
	}

	if len(content) == 0 {
		return nil, report, ErrNothingToGenerate
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(content)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemInstruction,
	})
	messages = append(messages, content...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: FinalInstruction,
	})
	return messages, report, nil
}
