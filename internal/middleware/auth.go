package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// UserIDContextKey holds the authenticated user id (the token subject).
	UserIDContextKey = "user_id"
	// TokenContextKey holds the raw bearer token so it can be forwarded.
	TokenContextKey = "bearer_token"
)

var errMissingToken = errors.New("missing bearer token")

// JWTAuth protects routes with an HS256 bearer token signed with secret.
// On success the token subject and the raw token are stored on the context.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return unauthorized(c, err.Error())
			}
			subject, err := ParseToken(secret, raw)
			if err != nil {
				FromContext(c.Request().Context()).Debug("Rejected bearer token",
					"event", "auth_token_rejected", "error", err)
				return unauthorized(c, "invalid or expired token")
			}

			c.Set(UserIDContextKey, subject)
			c.Set(TokenContextKey, raw)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header. Both
// "Bearer <token>" and the legacy "Bearer:<token>" spellings are accepted.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer") || !strings.EqualFold(header[:len("Bearer")], "Bearer") {
		return "", errMissingToken
	}
	rest := header[len("Bearer"):]
	if rest == "" || (rest[0] != ' ' && rest[0] != ':') {
		return "", errMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

// ParseToken verifies raw and returns its subject.
func ParseToken(secret []byte, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// SignToken issues an HS256 token for userID valid for ttl.
func SignToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// UserID returns the authenticated user id, or "" outside JWTAuth.
func UserID(c echo.Context) string {
	id, _ := c.Get(UserIDContextKey).(string)
	return id
}

// Token returns the raw bearer token, or "" outside JWTAuth.
func Token(c echo.Context) string {
	tok, _ := c.Get(TokenContextKey).(string)
	return tok
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"code": "unauthorized", "message": msg})
}
