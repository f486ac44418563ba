package viewer

import "sync"

// Card types the viewer can render.
const (
	CardTypeDefault = "default"
	CardTypeVideo   = "video"
)

// PreferenceState is a snapshot of the viewer preferences.
type PreferenceState struct {
	CardType string
	Muted    bool
	Paused   bool
}

// Preferences is the small global store for mute, pause and card type.
// Subscribers are called synchronously after every change.
type Preferences struct {
	mu          sync.Mutex
	state       PreferenceState
	subscribers []func(PreferenceState)
}

func NewPreferences() *Preferences {
	return &Preferences{state: PreferenceState{CardType: CardTypeDefault}}
}

func (p *Preferences) State() PreferenceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for change notifications.
func (p *Preferences) Subscribe(fn func(PreferenceState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

func (p *Preferences) SetCardType(cardType string) {
	p.update(func(s *PreferenceState) { s.CardType = cardType })
}

func (p *Preferences) ToggleMute() {
	p.update(func(s *PreferenceState) { s.Muted = !s.Muted })
}

func (p *Preferences) TogglePause() {
	p.update(func(s *PreferenceState) { s.Paused = !s.Paused })
}

func (p *Preferences) update(mutate func(*PreferenceState)) {
	p.mu.Lock()
	mutate(&p.state)
	state := p.state
	subscribers := make([]func(PreferenceState), len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}
