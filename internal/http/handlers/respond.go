package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

var statusSuccess = map[string]string{"status": "success"}

// respondWithJSON writes v as a JSON body with the given status
func respondWithJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// decodeJSON reads a JSON object body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

// render executes a page template into a buffer so a failing template never sends a partial page
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// mobileField accepts a mobile number sent as a JSON string or a JSON number
type mobileField struct {
	raw string
}

// UnmarshalJSON keeps the textual form; parsing happens in model.ParseMobile
func (m *mobileField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		m.raw = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		m.raw = s
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		m.raw = n.String()
	}
	return nil
}

// Missing reports whether no usable mobile value was sent
func (m mobileField) Missing() bool {
	return strings.TrimSpace(m.raw) == ""
}

// optional maps an absent, null or empty string to nil
func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
