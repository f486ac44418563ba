package viewer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// TextSpeaker "speaks" by writing text to w, then holding for a duration
// proportional to the word count so narration pacing matches speech.
type TextSpeaker struct {
	w       io.Writer
	perWord time.Duration

	mu sync.Mutex
}

func NewTextSpeaker(w io.Writer, perWord time.Duration) *TextSpeaker {
	return &TextSpeaker{w: w, perWord: perWord}
}

func (s *TextSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	_, err := fmt.Fprintf(s.w, "  >> %s\n", text)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	hold := s.perWord * time.Duration(len(strings.Fields(text)))
	if hold <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(hold)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
