package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andrewpaige1/doomdeck-api/webutil"
)

const (
	maxWebhookBytes = 1 << 16

	msgCheckoutFailed     = "Failed to create checkout session"
	msgSignatureFailed    = "Webhook signature verification failed"
	msgWebhookFailed      = "Webhook handler failed"
	msgPriceIDRequired    = "priceId is required"
	msgInvalidRequestBody = "Invalid request body"
)

// POST /api/stripe
func (db *DBHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		PriceID string `json:"priceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return webutil.ErrBadRequestWrap(msgInvalidRequestBody, err)
	}
	if req.PriceID = strings.TrimSpace(req.PriceID); req.PriceID == "" {
		return webutil.ErrBadRequest(msgPriceIDRequired)
	}

	sessionID, err := db.Checkout.CreateCheckoutSession(r.Context(), req.PriceID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		return webutil.ErrInternalServerWrap(msgCheckoutFailed, err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
	return nil
}

// POST /api/stripe/webhook
func (db *DBHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) error {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		return webutil.ErrBadRequestWrap(msgSignatureFailed, err)
	}

	event, err := db.Webhooks.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		return webutil.ErrBadRequestWrap(msgSignatureFailed, err)
	}

	if err := db.Webhooks.Apply(r.Context(), event); err != nil {
		return webutil.ErrInternalServerWrap(msgWebhookFailed, err)
	}

	slog.Info("StripeWebhook: processed event", "event_id", event.ID, "type", event.Type)
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
	return nil
}
