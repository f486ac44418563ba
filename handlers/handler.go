package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/andrewpaige1/doomdeck-api/billing"
	"github.com/andrewpaige1/doomdeck-api/generation"
	"github.com/andrewpaige1/doomdeck-api/quota"
	"github.com/andrewpaige1/doomdeck-api/utils"
	"github.com/andrewpaige1/doomdeck-api/viewer"
	"github.com/andrewpaige1/doomdeck-api/webutil"

	"gorm.io/gorm"
)

// Generator produces flashcards for a prompt and its uploads.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// DBHandler carries the database and the collaborators every route needs.
type DBHandler struct {
	*gorm.DB

	Generator Generator
	Checkout  billing.CheckoutCreator
	Webhooks  *billing.WebhookProcessor
	Limiter   *quota.Limiter
	Videos    *viewer.VideoPool

	AnalyticsID string

	// TrustClientUserID accepts the user_id a client sends. Only set it when
	// token verification is off; otherwise identity comes from the token.
	TrustClientUserID bool
}

// requestUserID returns the token subject. The id the client sent is used
// only when the handler trusts client ids.
func (db *DBHandler) requestUserID(r *http.Request, fallback string) string {
	if authID, ok := utils.GetAuthID(r); ok {
		return authID
	}
	if !db.TrustClientUserID {
		return ""
	}
	return strings.TrimSpace(fallback)
}

// GET /healthz
func (db *DBHandler) Healthz(w http.ResponseWriter, r *http.Request) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return webutil.ErrInternalServerWrap("Database unavailable", err)
	}
	if err := sqlDB.PingContext(r.Context()); err != nil {
		return webutil.NewHTTPErrorWrap(http.StatusServiceUnavailable, "Database unavailable", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

// GET /api/config
func (db *DBHandler) ClientConfig(w http.ResponseWriter, r *http.Request) error {
	webutil.RespondWithJSON(w, http.StatusOK, map[string]any{
		"analyticsId":  db.AnalyticsID,
		"quotaEnabled": db.Limiter.Enabled(),
		"dailyLimit":   db.Limiter.DailyLimit(),
	})
	return nil
}
