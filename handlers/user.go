package handlers

import (
	"net/http"

	"github.com/andrewpaige1/doomdeck-api/utils"
	"github.com/andrewpaige1/doomdeck-api/webutil"
)

// GET /api/users/me/subscription
func (db *DBHandler) GetSubscription(w http.ResponseWriter, r *http.Request) error {
	user, ok := utils.GetUser(r)
	if !ok {
		return webutil.ErrUnauthorized("")
	}

	response := map[string]any{
		"subscriptionStatus": user.SubscriptionStatus,
		"subscribed":         user.Subscribed(),
	}
	if db.Limiter.Enabled() && !user.Subscribed() {
		used, err := db.Limiter.Used(r.Context(), user.AuthID)
		if err != nil {
			return webutil.ErrInternalServerWrap("Failed to load usage", err)
		}
		response["usedToday"] = used
		response["dailyLimit"] = db.Limiter.DailyLimit()
	}

	webutil.RespondWithJSON(w, http.StatusOK, response)
	return nil
}
