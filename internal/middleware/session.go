// Package middleware provides HTTP middleware for tradernetd.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/domain/identity"
	"github.com/rapscallion45/tradernet/internal/server/tokenstore"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "tradernet_session"

type contextKey struct{}

// Claims are the JWT claims of a session token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session authenticates requests via the session cookie or a Bearer header
// (the token-auth variant) and rejects revoked or malformed tokens.
type Session struct {
	key    []byte
	tokens tokenstore.Store
	log    zerolog.Logger
}

// NewSession builds the middleware over the signing key and token store.
func NewSession(key []byte, tokens tokenstore.Store, log zerolog.Logger) *Session {
	return &Session{
		key:    key,
		tokens: tokens,
		log:    log.With().Str("component", "middleware").Logger(),
	}
}

// Issue mints a session token for the identity and registers it for
// revocation. The returned cookie carries the token.
func (s *Session) Issue(ctx context.Context, id identity.Identity, ttl time.Duration) (string, *http.Cookie, error) {
	now := time.Now()
	claims := Claims{
		UserID:   id.ID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, err
	}
	if err := s.tokens.Save(ctx, claims.ID, id.ID, ttl); err != nil {
		return "", nil, err
	}

	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return token, cookie, nil
}

// Revoke invalidates the token attached to the request, if any.
func (s *Session) Revoke(r *http.Request) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return
	}
	claims, err := s.parse(raw)
	if err != nil {
		return
	}
	if err := s.tokens.Revoke(r.Context(), claims.ID); err != nil {
		s.log.Warn().Err(err).Msg("token revoke failed")
	}
}

// Handler gates next behind a valid, unrevoked session token.
func (s *Session) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			s.unauthorized(w, r, "missing session token")
			return
		}

		claims, err := s.parse(raw)
		if err != nil {
			s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("session token rejected")
			s.unauthorized(w, r, "invalid session token")
			return
		}

		ok, err := s.tokens.Valid(r.Context(), claims.ID)
		if err != nil {
			s.log.Warn().Err(err).Msg("token store lookup failed")
			s.unauthorized(w, r, "session unavailable")
			return
		}
		if !ok {
			s.unauthorized(w, r, "session revoked or expired")
			return
		}

		id := identity.Identity{ID: claims.UserID, Username: claims.Username}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, id)))
	})
}

func (s *Session) parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (s *Session) unauthorized(w http.ResponseWriter, _ *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// IdentityFrom extracts the authenticated identity set by Handler.
func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(identity.Identity)
	return id, ok
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if parts := strings.SplitN(auth, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
