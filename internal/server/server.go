// Package server implements tradernetd, the development auth collaborator.
// It serves the login, identity-check, logout and password-change endpoints
// the client packages talk to, backed by pluggable user and token stores.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/api"
	"github.com/rapscallion45/tradernet/internal/loginflow"
	"github.com/rapscallion45/tradernet/internal/metrics"
	"github.com/rapscallion45/tradernet/internal/middleware"
	"github.com/rapscallion45/tradernet/internal/server/tokenstore"
	"github.com/rapscallion45/tradernet/internal/server/userstore"
)

// Config wires a Server.
type Config struct {
	SigningKey []byte
	SessionTTL time.Duration
	Password   loginflow.PasswordSettings
	Users      userstore.Store
	Tokens     tokenstore.Store
	Logger     zerolog.Logger

	// AllowedOrigins enables CORS for the dashboard dev origin; empty
	// disables it.
	AllowedOrigins []string
	// LoginRatePerSecond throttles the credential endpoints per client IP.
	// Zero disables throttling.
	LoginRatePerSecond float64
	LoginBurst         int
}

// Server holds the HTTP surface and its collaborators.
type Server struct {
	cfg     Config
	session *middleware.Session
	log     zerolog.Logger
	router  chi.Router
}

// New assembles the router.
func New(cfg Config) *Server {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	log := cfg.Logger.With().Str("component", "server").Logger()

	s := &Server{
		cfg:     cfg,
		session: middleware.NewSession(cfg.SigningKey, cfg.Tokens, log),
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.NewCORS(cfg.AllowedOrigins).Handler)
	}
	r.Use(metrics.Instrument)

	r.Group(func(r chi.Router) {
		if cfg.LoginRatePerSecond > 0 {
			burst := cfg.LoginBurst
			if burst == 0 {
				burst = 5
			}
			r.Use(middleware.NewRateLimiter(cfg.LoginRatePerSecond, burst, log).Handler)
		}
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/password", s.handlePasswordChange)
	})
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.session.Handler)
		r.Get("/auth/session", s.handleSession)
		r.Post("/auth/logout", s.handleLogout)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin authenticates credentials. Domain outcomes come back as 200
// with a status field; a token-mode request gets the token shape instead.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeStatus(w, api.StatusInvalidRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeStatus(w, api.StatusInvalidRequest)
		return
	}

	user, err := s.cfg.Users.GetByUsername(r.Context(), req.Username)
	switch {
	case err == userstore.ErrNotFound:
		s.writeStatus(w, api.StatusUserNotFound)
		return
	case err != nil:
		s.log.Error().Err(err).Msg("user lookup failed")
		jsonError(w, http.StatusInternalServerError, "user store unavailable")
		return
	}

	if !userstore.CheckPassword(user, req.Password) {
		s.writeStatus(w, api.StatusIncorrectCredentials)
		return
	}
	if user.PasswordExpired {
		s.writeStatus(w, api.StatusAccountPasswordExpired)
		return
	}

	token, cookie, err := s.session.Issue(r.Context(), user.Identity(), s.cfg.SessionTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("session issue failed")
		jsonError(w, http.StatusInternalServerError, "could not establish session")
		return
	}
	http.SetCookie(w, cookie)
	metrics.RecordLogin(string(api.StatusSuccess))

	if r.URL.Query().Get("mode") == "token" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token": token,
			"user": map[string]interface{}{
				"id":       user.ID,
				"username": user.Username,
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(api.StatusSuccess)})
}

// handleSession reports the authenticated identity. The session middleware
// has already rejected anonymous requests.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id.ID,
		"username": id.Username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.session.Revoke(r)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type passwordChangeRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// handlePasswordChange verifies the current credentials, validates the new
// password against the policy and stores it. Success clears the expired
// flag so the next login goes through.
func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "username, password and newPassword are required")
		return
	}

	if err := loginflow.ValidatePassword(req.NewPassword, s.cfg.Password); err != nil {
		jsonError(w, http.StatusBadRequest, "new password "+err.Error())
		return
	}

	user, err := s.cfg.Users.GetByUsername(r.Context(), req.Username)
	switch {
	case err == userstore.ErrNotFound:
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case err != nil:
		s.log.Error().Err(err).Msg("user lookup failed")
		jsonError(w, http.StatusInternalServerError, "user store unavailable")
		return
	}
	if !userstore.CheckPassword(user, req.Password) {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := s.cfg.Users.SetPassword(r.Context(), req.Username, req.NewPassword); err != nil {
		s.log.Error().Err(err).Msg("password update failed")
		jsonError(w, http.StatusInternalServerError, "could not update password")
		return
	}

	s.log.Info().Str("username", req.Username).Msg("password changed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeStatus(w http.ResponseWriter, status api.Status) {
	metrics.RecordLogin(string(status))
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
