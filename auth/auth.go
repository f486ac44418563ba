package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer and audience stamped on locally minted HS256 tokens. Tokens from
// Auth0 carry the tenant's own values instead.
const (
	DevIssuer   = "doomdeck"
	DevAudience = "doomdeck-api"
)

var ErrMissingSecret = errors.New("JWT secret key not set")

// TokenRequest describes a development token.
type TokenRequest struct {
	Subject  string
	Email    string
	Nickname string
	Audience string
	TTL      time.Duration
}

// CreateToken signs an HS256 token that the HS256 validator in middleware
// accepts.
func CreateToken(secret string, req TokenRequest) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	if req.Subject == "" {
		return "", fmt.Errorf("auth.go: subject is required")
	}
	if req.Audience == "" {
		req.Audience = DevAudience
	}
	if req.TTL <= 0 {
		req.TTL = 24 * time.Hour
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{
			"sub":      req.Subject,
			"email":    req.Email,
			"nickname": req.Nickname,
			"iss":      DevIssuer,
			"aud":      []string{req.Audience},
			"iat":      now.Unix(),
			"exp":      now.Add(req.TTL).Unix(),
		})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyToken checks the signature and expiry of an HS256 token and returns
// its subject.
func VerifyToken(secret, tokenString string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(DevIssuer))
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	return token.Claims.GetSubject()
}
