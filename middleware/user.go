package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/andrewpaige1/doomdeck-api/utils"
	"github.com/andrewpaige1/doomdeck-api/webutil"

	"gorm.io/gorm"
)

// SyncUserMiddleware ensures the token's user exists in the DB and attaches
// it to the request context. Anonymous requests pass through untouched.
func SyncUserMiddleware(db *gorm.DB) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := utils.GetClaims(r)
			if !ok || claims.RegisteredClaims.Subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			authID := claims.RegisteredClaims.Subject
			var email, nickname string
			if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil {
				email = custom.Email
				nickname = custom.Nickname
			}

			var user models.User
			result := db.WithContext(r.Context()).Where("auth_id = ?", authID).First(&user)

			if result.Error != nil {
				adopted, err := adoptBillingUser(db.WithContext(r.Context()), &user, authID, email, nickname)
				if err != nil {
					slog.Error("SyncUserMiddleware: failed to link billing user", "auth_id", authID, "error", err)
					webutil.RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
					return
				}
				if adopted {
					slog.Info("SyncUserMiddleware: linked existing billing user", "auth_id", authID, "email", email)
				} else {
					// User does not exist, create a new one
					user = models.User{
						AuthID:   authID,
						Email:    email,
						Nickname: nickname,
					}
					if err := db.WithContext(r.Context()).Create(&user).Error; err != nil {
						slog.Error("SyncUserMiddleware: failed to create user", "auth_id", authID, "error", err)
						webutil.RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
						return
					}
					slog.Info("SyncUserMiddleware: created new user", "auth_id", authID, "nickname", nickname)
				}
			} else if changed := syncIdentity(&user, email, nickname); changed {
				identity := map[string]any{"email": user.Email, "nickname": user.Nickname}
				if err := db.WithContext(r.Context()).Model(&user).Updates(identity).Error; err != nil {
					slog.Error("SyncUserMiddleware: failed to update user", "auth_id", authID, "error", err)
					webutil.RespondWithError(w, http.StatusInternalServerError, "Failed to update user")
					return
				}
				slog.Info("SyncUserMiddleware: updated user identity", "auth_id", authID)
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUser(r.Context(), &user)))
		}
	}
}

// syncIdentity copies non-empty identity claims onto the user. Subscription
// fields belong to the webhook and are never touched here.
func syncIdentity(user *models.User, email, nickname string) bool {
	changed := false
	if email != "" && user.Email != email {
		user.Email = email
		changed = true
	}
	if nickname != "" && user.Nickname != nickname {
		user.Nickname = nickname
		changed = true
	}
	return changed
}

// adoptBillingUser claims a row the payment webhook created by email before
// the user ever signed in. It reports false when there is no such row.
func adoptBillingUser(db *gorm.DB, user *models.User, authID, email, nickname string) (bool, error) {
	if email == "" {
		return false, nil
	}

	adopted := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ? AND (auth_id = '' OR auth_id IS NULL)", email).
			Order("id ASC").
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		existing.AuthID = authID
		syncIdentity(&existing, email, nickname)
		identity := map[string]any{"auth_id": existing.AuthID, "email": existing.Email, "nickname": existing.Nickname}
		// Only one concurrent first request may claim the row.
		result := tx.Model(&existing).Where("auth_id = '' OR auth_id IS NULL").Updates(identity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		*user = existing
		adopted = true
		return nil
	})
	return adopted, err
}
