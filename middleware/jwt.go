package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/andrewpaige1/doomdeck-api/auth"
	"github.com/andrewpaige1/doomdeck-api/config"
	"github.com/andrewpaige1/doomdeck-api/webutil"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Validate is a no-op; it satisfies validator.CustomClaims.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken validates bearer tokens when present. Requests without a
// token pass through with no claims; requests with a bad token get a 401.
// Auth0 RS256 tokens are used when a domain is configured, otherwise HS256
// tokens signed with the local secret. With neither configured, every request
// is anonymous.
func EnsureValidToken(env *config.Environment) (func(http.Handler) http.Handler, error) {
	if !AuthEnabled(env) {
		slog.Warn("EnsureValidToken: no AUTH0_DOMAIN or JWT_SECRET_KEY, all requests are anonymous")
		return func(next http.Handler) http.Handler { return next }, nil
	}

	jwtValidator, err := newValidator(env)
	if err != nil {
		return nil, err
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("EnsureValidToken: encountered error while validating JWT", "error", err)
		webutil.RespondWithError(w, http.StatusUnauthorized, "Failed to validate JWT.")
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithCredentialsOptional(true),
	)

	return func(next http.Handler) http.Handler {
		return middleware.CheckJWT(next)
	}, nil
}

// AuthEnabled reports whether tokens are verified. When it is false every
// request is anonymous and callers identify themselves by user id.
func AuthEnabled(env *config.Environment) bool {
	return env.Auth.Domain != "" || env.Auth.JWTSecret != ""
}

func newValidator(env *config.Environment) (*validator.Validator, error) {
	customClaims := func() validator.CustomClaims {
		return &CustomClaims{}
	}

	if env.Auth.Domain != "" {
		issuerURL, err := url.Parse("https://" + env.Auth.Domain + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
		}

		provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

		return validator.New(
			provider.KeyFunc,
			validator.RS256,
			issuerURL.String(),
			[]string{env.Auth.Audience},
			validator.WithCustomClaims(customClaims),
			validator.WithAllowedClockSkew(time.Minute),
		)
	}

	audience := env.Auth.Audience
	if audience == "" {
		audience = auth.DevAudience
	}
	secret := []byte(env.Auth.JWTSecret)

	return validator.New(
		func(context.Context) (interface{}, error) { return secret, nil },
		validator.HS256,
		auth.DevIssuer,
		[]string{audience},
		validator.WithCustomClaims(customClaims),
		validator.WithAllowedClockSkew(time.Minute),
	)
}
