package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/text/unicode/norm"
)

// ErrNoText is returned when a PDF parses but carries no extractable text,
// e.g. a scanned document without an OCR layer.
var ErrNoText = errors.New("pdf contains no extractable text")

// Extractor pulls plain text out of uploaded PDF documents.
type Extractor struct {
	tempDir   string
	chunkSize int
}

func NewExtractor(tempDir string, chunkSize int) *Extractor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Extractor{tempDir: tempDir, chunkSize: chunkSize}
}

// ChunkSize is the maximum rune length of each chunk ExtractChunks returns.
func (e *Extractor) ChunkSize() int {
	return e.chunkSize
}

// ExtractChunks extracts the text of the PDF read from r and splits it with
// Chunk.
func (e *Extractor) ExtractChunks(ctx context.Context, name string, r io.Reader) ([]string, error) {
	text, err := e.Extract(ctx, name, r)
	if err != nil {
		return nil, err
	}
	return Chunk(text, e.chunkSize), nil
}

// Extract writes the upload to a temporary file, validates it and returns
// the concatenated text of every page. The temp file is emptied and removed
// before returning.
func (e *Extractor) Extract(ctx context.Context, name string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(e.tempDir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Truncate(tmpPath, 0)
		_ = os.Remove(tmpPath)
	}()

	size, err := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close temp file: %w", closeErr)
	}
	slog.Debug("Extract: received pdf", "name", name, "size", humanize.Bytes(uint64(size)))

	if err := api.ValidateFile(tmpPath, nil); err != nil {
		return "", fmt.Errorf("invalid pdf %s: %w", name, err)
	}

	doc, err := fitz.New(tmpPath)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", name, err)
	}
	defer doc.Close()

	var pages []string
	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(pageNum)
		if err != nil {
			return "", fmt.Errorf("extract text from page %d of %s: %w", pageNum+1, name, err)
		}
		pages = append(pages, text)
	}

	text := CleanText(strings.Join(pages, "\n"))
	if text == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNoText)
	}
	slog.Info("Extract: extracted pdf text", "name", name, "pages", len(pages), "chars", len(text))
	return text, nil
}

// CleanText URL-decodes extracted text (some producers percent-encode text
// runs), normalizes it to NFC and trims it. Text that is not valid
// percent-encoding is kept as-is.
func CleanText(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.TrimSpace(norm.NFC.String(decoded))
}
