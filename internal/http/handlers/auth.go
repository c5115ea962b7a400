package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mobilerecharge/server/internal/auth"
)

// loginRequest is the request body for POST /login
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin handles POST /login. Credentials are checked for presence before any
// outbound call; the identity provider decides the rest.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		h.recordLogin("invalid_input")
		respondWithError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	token, err := h.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		var authErr *auth.AuthError
		switch {
		case errors.As(err, &authErr):
			h.recordLogin("rejected")
			h.logger.WarnContext(r.Context(), "admin login rejected",
				slog.Int("provider_status", authErr.StatusCode),
				slog.String("reason", authErr.Description),
			)
			respondWithError(w, http.StatusUnauthorized, authErr.Description)
		case errors.Is(err, auth.ErrUnreachable):
			h.recordLogin("unreachable")
			h.logger.ErrorContext(r.Context(), "identity provider unreachable", slog.String("error", err.Error()))
			respondWithError(w, http.StatusServiceUnavailable, "Unable to reach the identity provider. Please try again.")
		default:
			h.recordLogin("error")
			h.logger.ErrorContext(r.Context(), "admin login failed", slog.String("error", err.Error()))
			respondWithError(w, http.StatusInternalServerError, "Authentication failed")
		}
		return
	}

	if err := h.sessions.Establish(r.Context(), w, r, *token); err != nil {
		h.recordLogin("error")
		h.logger.ErrorContext(r.Context(), "failed to establish admin session", slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "Unable to start session")
		return
	}

	h.recordLogin("success")
	h.logger.InfoContext(r.Context(), "admin logged in")
	respondWithJSON(w, http.StatusOK, statusSuccess)
}

// HandleAdminLoginPage handles GET /admin
func (h *Handler) HandleAdminLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(r); ok {
		http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "login.html", nil)
}

// HandleLogout handles GET /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), w, r); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to clear admin session", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}
