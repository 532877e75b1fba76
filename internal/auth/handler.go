package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"portfoliovault/internal/vault/model"
	"portfoliovault/pkg/logger"
)

const SessionCookie = "vault_session"

type Handler struct {
	Gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{Gate: gate}
}

// Login unlocks admin mode for the session that sent the right password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	flag := NewFlag(h.Gate)
	if err := flag.Unlock(req.Password); err != nil {
		if errors.Is(err, ErrIncorrectPassword) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		logger.Sugar.Errorf("Handler: Failed to issue session token: %v", err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	SetSessionCookie(w, flag.Token(), h.Gate.TTL())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.LoginResponse{Token: flag.Token(), IsAdmin: true})
}

// Logout revokes the presented session token and drops the session cookie;
// every client holding that token is back to viewer mode.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if f := FlagFrom(r.Context()); f != nil {
		if token := f.Token(); token != "" {
			h.Gate.Revoke(token)
		}
		f.Lock()
	}
	ClearSessionCookie(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.AuthStatus{IsAdmin: false})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.AuthStatus{IsAdmin: IsAdmin(r.Context())})
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
