package handlers

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/mobilerecharge/server/internal/auth"
	"github.com/mobilerecharge/server/internal/model"
	"github.com/mobilerecharge/server/internal/repo"
)

//go:embed templates/*.html
var templatesFS embed.FS

// SessionStore is the admin session surface the handlers need. *auth.SessionManager satisfies it.
type SessionStore interface {
	Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, token model.ProviderToken) error
	Current(r *http.Request) (*model.AdminSession, bool)
	Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// LoginRecorder counts admin login outcomes. *metrics.Collector satisfies it.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Deps are the collaborators shared by every handler, built once at startup
type Deps struct {
	Profiles repo.ProfileRepo
	Identity auth.IdentityProvider
	Sessions SessionStore
	Logger   *slog.Logger
	Metrics  LoginRecorder
}

// Handler serves the public profile API, the admin console and the login flow
type Handler struct {
	profiles repo.ProfileRepo
	identity auth.IdentityProvider
	sessions SessionStore
	logger   *slog.Logger
	metrics  LoginRecorder
	pages    *template.Template
	now      func() time.Time
}

// New creates a Handler. Templates are parsed eagerly so a broken page fails at startup.
func New(deps Deps) (*Handler, error) {
	pages, err := template.New("pages").Funcs(template.FuncMap{
		"date": formatDate,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		profiles: deps.Profiles,
		identity: deps.Identity,
		sessions: deps.Sessions,
		logger:   logger,
		metrics:  deps.Metrics,
		pages:    pages,
		now:      time.Now,
	}, nil
}

func (h *Handler) recordLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(outcome)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
