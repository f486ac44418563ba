package utils

import (
	"context"
	"net/http"

	"github.com/andrewpaige1/doomdeck-api/models"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

type contextKey string

const userKey contextKey = "user"

func GetClaims(r *http.Request) (*validator.ValidatedClaims, bool) {
	claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// GetAuthID returns the token subject of an authenticated request.
func GetAuthID(r *http.Request) (string, bool) {
	claims, ok := GetClaims(r)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return "", false
	}
	return claims.RegisteredClaims.Subject, true
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the user attached by SyncUserMiddleware.
func GetUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(userKey).(*models.User)
	return user, ok && user != nil
}
