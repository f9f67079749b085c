package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/handler/chat"
	"github.com/zhouzirui/study-mentor/backend/internal/handler/document"
	"github.com/zhouzirui/study-mentor/backend/internal/handler/page"
	"github.com/zhouzirui/study-mentor/backend/internal/handler/persona"
	"github.com/zhouzirui/study-mentor/backend/internal/handler/speech"
	"github.com/zhouzirui/study-mentor/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/study-mentor/backend/internal/middleware"
	personaModel "github.com/zhouzirui/study-mentor/backend/internal/model/persona"
	"github.com/zhouzirui/study-mentor/backend/internal/service/tutor"
	"github.com/zhouzirui/study-mentor/backend/pkg/utils"
)

// Options carries everything the HTTP layer needs.
type Options struct {
	Engine         *tutor.Engine
	Persona        personaModel.Persona
	SessionSecret  []byte
	SecureCookies  bool
	AllowedOrigins []string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to the tutor engine.
func NewRouter(opts Options) (http.Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pageHandler, err := page.New(opts.Engine, opts.Persona, opts.Engine.Formats(), logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(app chi.Router) {
		app.Use(middlewarePkg.Session(middlewarePkg.SessionOptions{
			Secret: opts.SessionSecret,
			Secure: opts.SecureCookies,
			Logger: logger,
		}))

		pageHandler.RegisterRoutes(app)
		chat.New(opts.Engine, logger).RegisterRoutes(app)
		document.New(opts.Engine, opts.MaxUploadBytes, logger).RegisterRoutes(app)
		speech.New(opts.Engine).RegisterRoutes(app)
		persona.New(opts.Persona, opts.Engine.Policy()).RegisterRoutes(app)
		stream.New(opts.Engine, opts.Persona.OpeningLine, opts.AllowedOrigins, logger).RegisterRoutes(app)
	})

	return r, nil
}
