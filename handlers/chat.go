package handlers

import (
	"net/http"

	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/andrewpaige1/doomdeck-api/webutil"

	"gorm.io/gorm"
)

func orderedFlashcards(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}

// GET /api/chats
func (db *DBHandler) ListChats(w http.ResponseWriter, r *http.Request) error {
	userID := db.requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		return webutil.ErrUnauthorized("")
	}

	query := db.WithContext(r.Context()).
		Preload("Flashcards", orderedFlashcards).
		Where("user_id = ?", userID)
	if subjectID := r.URL.Query().Get("subject_id"); subjectID != "" {
		query = query.Where("subject_id = ?", subjectID)
	}

	chats := []models.Chat{}
	if err := query.Order("created_at DESC").Find(&chats).Error; err != nil {
		return webutil.ErrInternalServerWrap("Failed to load chats", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, chats)
	return nil
}

// GET /api/chats/{chatID}
func (db *DBHandler) GetChat(w http.ResponseWriter, r *http.Request) error {
	chatID := r.PathValue("chatID")
	userID := db.requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		return webutil.ErrUnauthorized("")
	}

	var chat models.Chat
	if err := db.WithContext(r.Context()).
		Preload("Flashcards", orderedFlashcards).
		Where("public_id = ?", chatID).
		First(&chat).Error; err != nil {
		return err
	}

	if chat.UserID != userID {
		return webutil.ErrForbidden("")
	}

	webutil.RespondWithJSON(w, http.StatusOK, chat)
	return nil
}
