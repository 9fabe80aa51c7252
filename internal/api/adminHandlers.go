package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"impostor-server/internal/auth"
	"impostor-server/internal/config"
	"impostor-server/internal/stats"
)

// AdminAPI exposes the global stats behind token auth. Nothing here
// touches live rooms.
type AdminAPI struct {
	tokens *auth.Tokens
	stats  *stats.Service
	cfg    *config.Config
}

func NewAdminAPI(tokens *auth.Tokens, statsService *stats.Service, cfg *config.Config) *AdminAPI {
	return &AdminAPI{tokens: tokens, stats: statsService, cfg: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (a *AdminAPI) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.cfg.AdminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.cfg.AdminPass)) == 1
	if !userOK || !passOK {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := a.tokens.Generate(req.Username)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, loginResponse{Token: token})
}

func (a *AdminAPI) StatsHandler(w http.ResponseWriter, r *http.Request) {
	global, err := a.stats.GlobalStats()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, global)
}

func (a *AdminAPI) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	analytics, err := a.stats.Analytics()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, analytics)
}

type trackRequest struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data"`
}

var trackableEvents = map[string]bool{
	"unique_visit": true,
	"page_view":    true,
	"room_shared":  true,
}

// TrackHandler records frontend analytics events. It is unauthenticated
// and only accepts a fixed set of event types.
func (a *AdminAPI) TrackHandler(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !trackableEvents[req.EventType] {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	a.stats.SaveEvent(req.EventType, req.Data)
	w.WriteHeader(http.StatusNoContent)
}

// RequireToken guards a handler with a bearer token check.
func (a *AdminAPI) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, err := a.tokens.Check(token); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
