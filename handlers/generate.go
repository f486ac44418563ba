package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/andrewpaige1/doomdeck-api/generation"
	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/andrewpaige1/doomdeck-api/quota"
	"github.com/andrewpaige1/doomdeck-api/webutil"
)

const (
	maxUploadMemory = 32 << 20
	maxTitleRunes   = 50
	untitledChat    = "Untitled Chat"

	msgGenerateFailed  = "Failed to generate flashcards"
	msgNothingToUse    = "A prompt or at least one image/PDF file is required"
	msgLimitReached    = "Daily generation limit reached"
	msgInvalidFormData = "Invalid form data"
	msgSignInRequired  = "Sign in to generate flashcards"
	msgUnknownSubject  = "Unknown subject"
)

type generateResponse struct {
	Flashcards []models.Flashcard `json:"flashcards"`
	ChatID     string             `json:"chatId,omitempty"`
	Skipped    []string           `json:"skipped,omitempty"`
}

// POST /api/flashcards
func (db *DBHandler) GenerateFlashcards(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return webutil.ErrBadRequestWrap(msgInvalidFormData, err)
	}
	defer r.MultipartForm.RemoveAll()

	prompt := r.FormValue("prompt")
	subjectID := strings.TrimSpace(r.FormValue("subject_id"))
	userID := db.requestUserID(r, r.FormValue("user_id"))

	uploads, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		return webutil.ErrBadRequestWrap(msgInvalidFormData, err)
	}

	// Quota counts per user.
	if db.Limiter.Enabled() && userID == "" {
		return webutil.ErrUnauthorized(msgSignInRequired)
	}
	if subjectID != "" && userID != "" {
		if err := db.ownSubject(r, subjectID, userID); err != nil {
			return err
		}
	}

	if err := db.Limiter.Allow(r.Context(), userID); err != nil {
		if errors.Is(err, quota.ErrLimitReached) {
			return webutil.ErrTooManyRequestsWrap(msgLimitReached, err)
		}
		return webutil.ErrInternalServerWrap(msgGenerateFailed, err)
	}

	result, err := db.Generator.Generate(r.Context(), generation.Request{Prompt: prompt, Files: uploads})
	if err != nil {
		if errors.Is(err, generation.ErrNothingToGenerate) {
			return webutil.ErrBadRequestWrap(msgNothingToUse, err)
		}
		return webutil.ErrInternalServerWrap(msgGenerateFailed, err)
	}

	response := generateResponse{
		Flashcards: result.Flashcards,
		Skipped:    result.Report.Skipped,
	}

	if userID != "" {
		publicID, err := gonanoid.New()
		if err != nil {
			return webutil.ErrInternalServerWrap(msgGenerateFailed, fmt.Errorf("generate chat id: %w", err))
		}
		chat := models.Chat{
			PublicID:   publicID,
			Title:      chatTitle(prompt, uploads),
			UserID:     userID,
			SubjectID:  subjectID,
			Prompt:     strings.TrimSpace(prompt),
			Files:      result.Report.Used,
			Flashcards: result.Flashcards,
		}
		if err := db.WithContext(r.Context()).Create(&chat).Error; err != nil {
			return webutil.ErrInternalServerWrap(msgGenerateFailed, fmt.Errorf("save chat: %w", err))
		}
		slog.Info("GenerateFlashcards: saved chat", "chat_id", chat.PublicID, "user_id", userID, "cards", len(chat.Flashcards))
		response.ChatID = chat.PublicID
		response.Flashcards = chat.Flashcards
	}

	webutil.RespondWithJSON(w, http.StatusOK, response)
	return nil
}

func readUploads(headers []*multipart.FileHeader) ([]generation.Upload, error) {
	uploads := make([]generation.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
		}
		uploads = append(uploads, generation.Upload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

// chatTitle uses the start of the prompt, else the first file name.
func chatTitle(prompt string, uploads []generation.Upload) string {
	if title := strings.Join(strings.Fields(prompt), " "); title != "" {
		if runes := []rune(title); len(runes) > maxTitleRunes {
			return string(runes[:maxTitleRunes])
		}
		return title
	}
	for _, upload := range uploads {
		if upload.Name != "" {
			return upload.Name
		}
	}
	return untitledChat
}
