package page

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	"github.com/zhouzirui/study-mentor/backend/internal/model/persona"
)

//go:embed templates/*.html
var templates embed.FS

// ProfileSource resolves the profile of the calling session.
type ProfileSource interface {
	Profile(sessionID string) chat.Profile
}

// Handler renders the chat UI shell.
type Handler struct {
	profiles ProfileSource
	persona  persona.Persona
	accept   string
	tmpl     *template.Template
	logger   *zap.Logger
}

type pageData struct {
	Title    string
	Greeting string
	Accept   string
	Profile  chat.Profile
	Known    bool
}

// New parses the embedded template. extensions lists the upload formats
// offered by the file picker.
func New(profiles ProfileSource, p persona.Persona, extensions []string, logger *zap.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	accept := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		accept = append(accept, "."+strings.TrimPrefix(ext, "."))
	}

	return &Handler{
		profiles: profiles,
		persona:  p,
		accept:   strings.Join(accept, ","),
		tmpl:     tmpl,
		logger:   logger.Named("page"),
	}, nil
}

// RegisterRoutes mounts the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	profile := h.profiles.Profile(middleware.SessionID(r.Context()))
	data := pageData{
		Title:    h.persona.Title,
		Greeting: h.persona.OpeningLine,
		Accept:   h.accept,
		Profile:  profile,
		Known:    !profile.IsDefault(),
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.logger.Error("render failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
