package models

import (
	"time"
)

// Chat is a saved generation session: what the user asked for and the
// flashcards the model produced for it.
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PublicID  string    `gorm:"size:100;uniqueIndex;not null" json:"id"`
	Title     string    `gorm:"not null;size:100" json:"title"`
	UserID    string    `gorm:"not null;size:128;index" json:"user_id"`
	SubjectID string    `gorm:"size:100;index" json:"subject_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Prompt string   `gorm:"type:text" json:"prompt,omitempty"`
	Files  []string `gorm:"serializer:json" json:"files,omitempty"`

	Flashcards []Flashcard `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE;" json:"flashcards"`
}

// Subject groups chats under a user-defined topic.
type Subject struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	PublicID    string    `gorm:"size:100;uniqueIndex;not null" json:"id"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	UserID      string    `gorm:"not null;size:128;index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
