package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/logger"
)

type contextKey string

const subjectKey contextKey = "accountId"

// BearerAuth issues and verifies HS256 tokens whose subject is an account id.
type BearerAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewBearerAuth(secret string, ttl time.Duration) (*BearerAuth, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &BearerAuth{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (a *BearerAuth) Issue(accountID string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *BearerAuth) verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", err
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token carries no subject")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func (a *BearerAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			logger.Info("bearer auth middleware unauthorized request", logger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"credentials": "missing",
			})
			unauthorized(w)
			return
		}

		subject, err := a.verify(strings.TrimSpace(raw))
		if err != nil {
			logger.Info("bearer auth middleware unauthorized request", logger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"credentials": "invalid",
				"error":       err.Error(),
			})
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, subject)))
	})
}

// Subject returns the authenticated account id stored by Middleware.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(commons.NewErrorBody(commons.CodeAuthFailed, "Full authentication is required to access this resource"))
}
