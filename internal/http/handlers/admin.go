package handlers

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"

	"github.com/mobilerecharge/server/internal/model"
)

// adminUpdateRequest is the request body for POST /admin/update
type adminUpdateRequest struct {
	Mobile    mobileField `json:"mobile"`
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
	Email     *string     `json:"email"`
}

// adminDeleteRequest is the request body for POST /admin/delete
type adminDeleteRequest struct {
	Mobile mobileField `json:"mobile"`
}

type dashboardPage struct {
	Users []model.UserProfile
}

// HandleDashboard handles GET /admin/dashboard. A store failure renders an empty listing.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	users := h.profiles.ListAll(r.Context())
	slices.SortFunc(users, func(a, b model.UserProfile) int {
		return cmp.Compare(a.Mobile, b.Mobile)
	})
	h.render(w, r, "admin.html", dashboardPage{Users: users})
}

// HandleAdminUpdate handles POST /admin/update
func (h *Handler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mobile.Missing() {
		respondWithError(w, http.StatusBadRequest, "Mobile number is required")
		return
	}
	mobile, err := model.ParseMobile(req.Mobile.raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}

	upd := model.ProfileUpdate{
		FirstName: optional(req.FirstName),
		LastName:  optional(req.LastName),
		Email:     optional(req.Email),
	}
	if err := h.profiles.Update(r.Context(), mobile, upd); err != nil {
		h.logger.ErrorContext(r.Context(), "admin update failed",
			slog.String("mobile", model.MaskMobile(mobile)),
			slog.String("error", err.Error()),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	h.logger.InfoContext(r.Context(), "profile updated by admin", slog.String("mobile", model.MaskMobile(mobile)))
	respondWithJSON(w, http.StatusOK, statusSuccess)
}

// HandleAdminDelete handles POST /admin/delete
func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	var req adminDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mobile.Missing() {
		respondWithError(w, http.StatusBadRequest, "Mobile number is required")
		return
	}
	mobile, err := model.ParseMobile(req.Mobile.raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}

	if err := h.profiles.Delete(r.Context(), mobile); err != nil {
		h.logger.ErrorContext(r.Context(), "admin delete failed",
			slog.String("mobile", model.MaskMobile(mobile)),
			slog.String("error", err.Error()),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	h.logger.InfoContext(r.Context(), "profile deleted by admin", slog.String("mobile", model.MaskMobile(mobile)))
	respondWithJSON(w, http.StatusOK, statusSuccess)
}
