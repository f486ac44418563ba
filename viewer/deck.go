// Package viewer holds the client-side viewing state: the swipe deck, the
// snapping viewer with narration, the preference store and the background
// video pool.
package viewer

import (
	"sync"

	"github.com/andrewpaige1/doomdeck-api/models"
)

// SwipeThreshold is the horizontal drag distance, in pixels, past which a
// drag counts as a swipe.
const SwipeThreshold = 100.0

type Direction string

const (
	SwipeLeft  Direction = "left"
	SwipeRight Direction = "right"
)

// Deck is a stack of cards where only the top card can be flipped or
// swiped away.
type Deck struct {
	mu        sync.Mutex
	cards     []models.Flashcard
	flipped   bool
	dragStart float64
	dragging  bool
}

func NewDeck(cards []models.Flashcard) *Deck {
	cp := make([]models.Flashcard, len(cards))
	copy(cp, cards)
	return &Deck{cards: cp}
}

// Top returns the card on top of the deck.
func (d *Deck) Top() (models.Flashcard, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cards) == 0 {
		return models.Flashcard{}, false
	}
	return d.cards[0], true
}

func (d *Deck) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cards)
}

// Flip toggles which face of the top card is showing and returns true when
// the back is now visible.
func (d *Deck) Flip() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cards) == 0 {
		return false
	}
	d.flipped = !d.flipped
	return d.flipped
}

func (d *Deck) Flipped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flipped
}

func (d *Deck) DragStart(x float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragStart = x
	d.dragging = true
}

// DragEnd finishes a drag at x. A drag longer than SwipeThreshold removes the
// top card and reports the direction it went.
func (d *Deck) DragEnd(x float64) (Direction, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dragging || len(d.cards) == 0 {
		return "", false
	}
	d.dragging = false

	delta := x - d.dragStart
	if delta <= SwipeThreshold && delta >= -SwipeThreshold {
		return "", false
	}
	direction := SwipeLeft
	if delta > 0 {
		direction = SwipeRight
	}
	d.cards = d.cards[1:]
	d.flipped = false
	return direction, true
}
