package speech

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/study-mentor/backend/internal/handler/apierror"
	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	speechsvc "github.com/zhouzirui/study-mentor/backend/internal/service/speech"
	"github.com/zhouzirui/study-mentor/backend/pkg/utils"
)

// ProfileSource resolves the profile of the calling session.
type ProfileSource interface {
	Profile(sessionID string) chat.Profile
}

// Handler prepares reply text for browser speech synthesis.
type Handler struct {
	profiles ProfileSource
	validate *validator.Validate
}

type speakRequest struct {
	Text string `validate:"required"`
}

// New creates a speech handler.
func New(profiles ProfileSource) *Handler {
	return &Handler{profiles: profiles, validate: validator.New()}
}

// RegisterRoutes mounts the speech routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/speak", h.handleSpeak)
}

func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	fields, err := apierror.Fields(r, "text")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No text provided")
		return
	}

	payload := speakRequest{Text: fields["text"]}
	if err := h.validate.Struct(payload); err != nil || strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "No text provided")
		return
	}

	name := ""
	if profile := h.profiles.Profile(middleware.SessionID(r.Context())); !profile.IsDefault() {
		name = profile.Name
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"text": speechsvc.Clean(payload.Text, name),
	})
}
