package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionCookie is the cookie carrying the signed session id.
const SessionCookie = "mentor_session"

type sessionKey struct{}

// SessionOptions configures the session cookie.
type SessionOptions struct {
	Secret []byte
	Secure bool
	Logger *zap.Logger
}

// WithSessionID stores id in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id placed in ctx by Session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Session resolves the browser session from its signed cookie and issues a
// new one when the cookie is missing or invalid.
func Session(opts SessionOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("session")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				parsed, err := ParseSessionToken(opts.Secret, c.Value)
				if err != nil {
					logger.Debug("discarding session cookie", zap.Error(err))
				} else {
					id = parsed
				}
			}

			if id == "" {
				id = uuid.NewString()
				token, err := SignSessionToken(opts.Secret, id, time.Now())
				if err != nil {
					logger.Error("failed to sign session token", zap.Error(err))
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

// SignSessionToken returns an HS256 token whose subject is id.
func SignSessionToken(secret []byte, id string, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("session secret is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:  id,
		IssuedAt: jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseSessionToken verifies raw and returns the session id it carries.
func ParseSessionToken(secret []byte, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid session token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid session id: %w", err)
	}
	return claims.Subject, nil
}
