package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrewpaige1/doomdeck-api/models"
)

// Snapper is the full-screen, one-card-at-a-time view. Bringing a card into
// view starts its narration and picks a background video for it.
type Snapper struct {
	cards    []models.Flashcard
	narrator *Narrator
	videos   *VideoPool

	mu       sync.Mutex
	index    int
	backdrop *Video
}

func NewSnapper(cards []models.Flashcard, narrator *Narrator, videos *VideoPool) *Snapper {
	return &Snapper{cards: cards, narrator: narrator, videos: videos, index: -1}
}

func (s *Snapper) Len() int {
	return len(s.cards)
}

// Show snaps to card i.
func (s *Snapper) Show(ctx context.Context, i int) (<-chan struct{}, error) {
	if i < 0 || i >= len(s.cards) {
		return nil, fmt.Errorf("card %d out of range [0,%d)", i, len(s.cards))
	}

	var backdrop *Video
	if s.videos != nil {
		s.videos.PreloadNext()
		if v, ok := s.videos.Random(); ok {
			backdrop = &v
		}
	}

	s.mu.Lock()
	s.index = i
	s.backdrop = backdrop
	s.mu.Unlock()

	if s.narrator == nil {
		done := make(chan struct{})
		close(done)
		return done, nil
	}
	return s.narrator.Narrate(ctx, s.cards[i]), nil
}

// Next snaps to the following card; ok is false at the end.
func (s *Snapper) Next(ctx context.Context) (<-chan struct{}, bool) {
	s.mu.Lock()
	next := s.index + 1
	s.mu.Unlock()
	done, err := s.Show(ctx, next)
	return done, err == nil
}

// Prev snaps to the preceding card; ok is false at the start.
func (s *Snapper) Prev(ctx context.Context) (<-chan struct{}, bool) {
	s.mu.Lock()
	prev := s.index - 1
	s.mu.Unlock()
	done, err := s.Show(ctx, prev)
	return done, err == nil
}

// Current returns the card in view, if any.
func (s *Snapper) Current() (int, models.Flashcard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < 0 {
		return -1, models.Flashcard{}, false
	}
	return s.index, s.cards[s.index], true
}

func (s *Snapper) Backdrop() (Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backdrop == nil {
		return Video{}, false
	}
	return *s.backdrop, true
}
