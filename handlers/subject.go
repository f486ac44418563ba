package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/andrewpaige1/doomdeck-api/webutil"

	"gorm.io/gorm"
)

// GET /api/subjects
func (db *DBHandler) ListSubjects(w http.ResponseWriter, r *http.Request) error {
	userID := db.requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		return webutil.ErrUnauthorized("")
	}

	subjects := []models.Subject{}
	if err := db.WithContext(r.Context()).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&subjects).Error; err != nil {
		return webutil.ErrInternalServerWrap("Failed to load subjects", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, subjects)
	return nil
}

// POST /api/subjects
func (db *DBHandler) CreateSubject(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		UserID      string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequestWrap(msgInvalidRequestBody, err)
	}

	userID := db.requestUserID(r, req.UserID)
	if userID == "" {
		return webutil.ErrUnauthorized("")
	}
	if req.Name = strings.TrimSpace(req.Name); req.Name == "" {
		return webutil.ErrBadRequest("Subject name is required")
	}

	publicID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generate subject id: %w", err)
	}

	subject := models.Subject{
		PublicID:    publicID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		UserID:      userID,
	}
	if err := db.WithContext(r.Context()).Create(&subject).Error; err != nil {
		return webutil.ErrInternalServerWrap("Failed to create subject", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, subject)
	return nil
}

// ownSubject checks that subjectID names one of userID's subjects.
func (db *DBHandler) ownSubject(r *http.Request, subjectID, userID string) error {
	var subject models.Subject
	err := db.WithContext(r.Context()).
		Where("public_id = ? AND user_id = ?", subjectID, userID).
		First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return webutil.ErrBadRequestWrap(msgUnknownSubject, err)
	}
	if err != nil {
		return webutil.ErrInternalServerWrap(msgGenerateFailed, fmt.Errorf("load subject %s: %w", subjectID, err))
	}
	return nil
}
