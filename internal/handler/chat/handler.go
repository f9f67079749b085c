package chat

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/handler/apierror"
	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	docmodel "github.com/zhouzirui/study-mentor/backend/internal/model/document"
	"github.com/zhouzirui/study-mentor/backend/pkg/utils"
)

// Tutor is the part of the tutor engine the chat endpoints use.
type Tutor interface {
	SaveProfile(ctx context.Context, sessionID, name, age string) (chat.Profile, error)
	Ask(ctx context.Context, sessionID, message string) (string, error)
	Transcript(sessionID string) []chat.Turn
	Profile(sessionID string) chat.Profile
	Session(sessionID string) (chat.Session, bool)
	Document(ctx context.Context, sessionID string) (docmodel.Ref, bool)
}

// Handler serves the chat HTTP endpoints.
type Handler struct {
	tutor    Tutor
	validate *validator.Validate
	logger   *zap.Logger
}

type profileRequest struct {
	Name string `validate:"required"`
	Age  string `validate:"required"`
}

type askRequest struct {
	UserInput string `validate:"required"`
}

type historyResponse struct {
	Status   string        `json:"status"`
	Profile  chat.Profile  `json:"profile"`
	Session  *chat.Session `json:"session,omitempty"`
	Document string        `json:"document,omitempty"`
	Turns    []chat.Turn   `json:"turns"`
}

// New creates a chat handler.
func New(tutor Tutor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tutor:    tutor,
		validate: validator.New(),
		logger:   logger.Named("chat"),
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/save_user_info", h.handleSaveUserInfo)
	r.Post("/ask", h.handleAsk)
	r.Get("/history", h.handleHistory)
}

func (h *Handler) handleSaveUserInfo(w http.ResponseWriter, r *http.Request) {
	fields, err := apierror.Fields(r, "name", "age")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgMissingProfile)
		return
	}

	payload := profileRequest{
		Name: strings.TrimSpace(fields["name"]),
		Age:  strings.TrimSpace(fields["age"]),
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgMissingProfile)
		return
	}

	if _, err := h.tutor.SaveProfile(r.Context(), middleware.SessionID(r.Context()), payload.Name, payload.Age); err != nil {
		apierror.Write(w, h.logger, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": utils.StatusSuccess})
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	fields, err := apierror.Fields(r, "user_input")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgNoInput)
		return
	}

	payload := askRequest{UserInput: fields["user_input"]}
	if err := h.validate.Struct(payload); err != nil || strings.TrimSpace(payload.UserInput) == "" {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgNoInput)
		return
	}

	reply, err := h.tutor.Ask(r.Context(), middleware.SessionID(r.Context()), payload.UserInput)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}

	utils.RespondText(w, http.StatusOK, reply)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	resp := historyResponse{
		Status:  utils.StatusSuccess,
		Profile: h.tutor.Profile(sessionID),
		Turns:   h.tutor.Transcript(sessionID),
	}
	if session, ok := h.tutor.Session(sessionID); ok {
		resp.Session = &session
	}
	if ref, ok := h.tutor.Document(r.Context(), sessionID); ok {
		resp.Document = ref.Filename
	}
	if resp.Turns == nil {
		resp.Turns = []chat.Turn{}
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
