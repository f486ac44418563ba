package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Card types understood by the viewer.
const (
	CardTypeBasic = "basic"
	CardTypeImage = "image"
	CardTypeVideo = "video"
)

// Flashcard represents an individual generated flashcard. Ordering inside a
// chat is Position, which is the index the model produced it at.
type Flashcard struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"-"`

	Type  string `gorm:"size:10;default:basic"`
	Front string `gorm:"type:text;not null"`
	Back  string `gorm:"type:text;not null"`

	// Image cards
	ImageURL string `gorm:"type:text"`

	// Video cards
	VideoURL        string `gorm:"type:text"`
	Caption         string `gorm:"type:text"`
	AdditionalNotes string `gorm:"type:text"`
	Duration        int    `gorm:"default:0"`

	ChatID   uint `gorm:"not null;index" json:"-"`
	Position int  `gorm:"not null;default:0" json:"-"`
}

type videoFront struct {
	VideoURL string `json:"videoUrl"`
	Caption  string `json:"caption,omitempty"`
}

type videoBack struct {
	Explanation     string `json:"explanation"`
	AdditionalNotes string `json:"additionalNotes,omitempty"`
}

// MarshalJSON writes basic and image cards with string faces and video cards
// with structured faces.
func (f Flashcard) MarshalJSON() ([]byte, error) {
	if f.Type == CardTypeVideo {
		return json.Marshal(struct {
			Type     string     `json:"type"`
			Front    videoFront `json:"front"`
			Back     videoBack  `json:"back"`
			Duration int        `json:"duration,omitempty"`
		}{
			Type:     CardTypeVideo,
			Front:    videoFront{VideoURL: f.VideoURL, Caption: f.Caption},
			Back:     videoBack{Explanation: f.Back, AdditionalNotes: f.AdditionalNotes},
			Duration: f.Duration,
		})
	}

	cardType := f.Type
	if cardType == "" {
		cardType = CardTypeBasic
	}
	return json.Marshal(struct {
		Type     string `json:"type"`
		Front    string `json:"front"`
		Back     string `json:"back"`
		ImageURL string `json:"imageUrl,omitempty"`
	}{
		Type:     cardType,
		Front:    f.Front,
		Back:     f.Back,
		ImageURL: f.ImageURL,
	})
}

// UnmarshalJSON accepts both string faces and the structured video faces.
func (f *Flashcard) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string          `json:"type"`
		Front    json.RawMessage `json:"front"`
		Back     json.RawMessage `json:"back"`
		ImageURL string          `json:"imageUrl"`
		Duration float64         `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	card := Flashcard{
		Type:     strings.ToLower(strings.TrimSpace(raw.Type)),
		ImageURL: raw.ImageURL,
		Duration: int(raw.Duration),
	}

	if front, ok := rawString(raw.Front); ok {
		card.Front = front
	} else if len(raw.Front) > 0 {
		var vf videoFront
		if err := json.Unmarshal(raw.Front, &vf); err != nil {
			return fmt.Errorf("flashcard front: %w", err)
		}
		card.VideoURL = vf.VideoURL
		card.Caption = vf.Caption
		card.Front = vf.Caption
		if card.Type == "" {
			card.Type = CardTypeVideo
		}
	}

	if back, ok := rawString(raw.Back); ok {
		card.Back = back
	} else if len(raw.Back) > 0 {
		var vb videoBack
		if err := json.Unmarshal(raw.Back, &vb); err != nil {
			return fmt.Errorf("flashcard back: %w", err)
		}
		card.Back = vb.Explanation
		card.AdditionalNotes = vb.AdditionalNotes
	}

	if card.Type == "" {
		card.Type = CardTypeBasic
		if card.ImageURL != "" {
			card.Type = CardTypeImage
		}
	}

	*f = card
	return nil
}

// Valid reports whether the card has the content its type needs.
func (f Flashcard) Valid() bool {
	switch f.Type {
	case CardTypeVideo:
		return f.VideoURL != "" && strings.TrimSpace(f.Back) != "" &&
			f.Duration >= 0 && f.Duration <= 60
	default:
		return strings.TrimSpace(f.Front) != "" && strings.TrimSpace(f.Back) != ""
	}
}

func rawString(msg json.RawMessage) (string, bool) {
	if len(msg) == 0 || msg[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", false
	}
	return s, true
}
