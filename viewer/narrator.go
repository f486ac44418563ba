package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/andrewpaige1/doomdeck-api/models"
)

// DefaultBackDelay is the pause between reading a card's front and its back.
const DefaultBackDelay = 1500 * time.Millisecond

// Speaker reads text aloud. Speak blocks until the text is spoken or ctx is
// done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Narrator reads one card at a time: front, a fixed delay, then back.
// Starting a new card, muting, pausing or cancelling the context stops the
// current narration.
type Narrator struct {
	speaker   Speaker
	prefs     *Preferences
	backDelay time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	run      uint64
	speaking bool
}

func NewNarrator(speaker Speaker, prefs *Preferences, backDelay time.Duration) *Narrator {
	if backDelay < 0 {
		backDelay = 0
	}
	n := &Narrator{speaker: speaker, prefs: prefs, backDelay: backDelay}
	if prefs != nil {
		prefs.Subscribe(func(state PreferenceState) {
			if state.Muted || state.Paused {
				n.Stop()
			}
		})
	}
	return n
}

// Narrate starts reading card and returns a channel closed when narration
// ends for any reason.
func (n *Narrator) Narrate(ctx context.Context, card models.Flashcard) <-chan struct{} {
	n.Stop()

	done := make(chan struct{})
	if n.prefs != nil {
		if state := n.prefs.State(); state.Muted || state.Paused {
			close(done)
			return done
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.run++
	run := n.run
	n.cancel = cancel
	n.speaking = true
	n.mu.Unlock()

	go func() {
		defer close(done)
		defer n.finish(run, cancel)

		if err := n.speaker.Speak(ctx, card.Front); err != nil || ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(n.backDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		_ = n.speaker.Speak(ctx, card.Back)
	}()
	return done
}

// Stop cancels the narration in progress, if any.
func (n *Narrator) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.speaking = false
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (n *Narrator) Speaking() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.speaking
}

func (n *Narrator) finish(run uint64, cancel context.CancelFunc) {
	cancel()
	n.mu.Lock()
	defer n.mu.Unlock()
	// A newer narration may already own the narrator.
	if n.run != run {
		return
	}
	n.cancel = nil
	n.speaking = false
}
