package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/study-mentor/backend/internal/model/persona"
	"github.com/zhouzirui/study-mentor/backend/internal/service/prompt"
	"github.com/zhouzirui/study-mentor/backend/pkg/utils"
)

// Handler serves the mentor persona.
type Handler struct {
	persona persona.Persona
	policy  prompt.Policy
}

type personaResponse struct {
	Persona persona.Persona `json:"persona"`
	Policy  policyView      `json:"policy"`
}

type policyView struct {
	Document   string `json:"document"`
	Greeting   string `json:"greeting"`
	Verbosity  string `json:"verbosity"`
	Formatting string `json:"formatting"`
	MaxChars   int    `json:"maxChars"`
}

// New creates a persona handler.
func New(p persona.Persona, policy prompt.Policy) *Handler {
	return &Handler{persona: p, policy: policy}
}

// RegisterRoutes mounts the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleGetPersona)
}

// handleGetPersona returns the mentor persona and prompt policy.
func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, personaResponse{
		Persona: h.persona,
		Policy: policyView{
			Document:   string(h.policy.Document),
			Greeting:   string(h.policy.Greeting),
			Verbosity:  string(h.policy.Verbosity),
			Formatting: string(h.policy.Formatting),
			MaxChars:   h.policy.MaxChars,
		},
	})
}
