package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mobilerecharge/server/internal/model"
	"github.com/mobilerecharge/server/internal/repo"
)

// createProfileRequest is the request body for POST /create-profile
type createProfileRequest struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Mobile    mobileField `json:"mobile"`
}

// HandleIndex handles GET /
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", nil)
}

// HandleCheckMobile handles GET /check-mobile
func (h *Handler) HandleCheckMobile(w http.ResponseWriter, r *http.Request) {
	mobile, err := model.ParseMobile(r.URL.Query().Get("mobile"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}

	exists, err := h.profiles.Exists(r.Context(), mobile)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "check mobile failed",
			slog.String("mobile", model.MaskMobile(mobile)),
			slog.String("error", err.Error()),
		)
		respondWithError(w, http.StatusInternalServerError, "Unable to check mobile number")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// HandleCreateProfile handles POST /create-profile
func (h *Handler) HandleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Mobile.Missing() {
		respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	mobile, err := model.ParseMobile(req.Mobile.raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}

	profile := model.UserProfile{
		Mobile:    mobile,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		CreatedAt: h.now().UTC(),
	}

	if err := h.profiles.Create(r.Context(), profile); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			h.logger.WarnContext(r.Context(), "profile already exists",
				slog.String("mobile", model.MaskMobile(mobile)),
			)
		} else {
			h.logger.ErrorContext(r.Context(), "create profile failed",
				slog.String("mobile", model.MaskMobile(mobile)),
				slog.String("error", err.Error()),
			)
		}
		// Duplicate and store failures look the same to the caller
		respondWithError(w, http.StatusInternalServerError, "Unable to create profile")
		return
	}

	h.logger.InfoContext(r.Context(), "profile created", slog.String("mobile", model.MaskMobile(mobile)))
	respondWithJSON(w, http.StatusOK, statusSuccess)
}
